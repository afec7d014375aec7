package ledger

import (
	"fmt"

	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregateKey names one derived aggregate: one inventory level, one
// party balance or one drawer amount. Its string form is stable and is
// used both as the lock key and in drift audit records.
type AggregateKey interface {
	fmt.Stringer
	Tenant() uuid.UUID
}

// InventoryKey identifies one inventory level.
type InventoryKey struct {
	TenantID   uuid.UUID
	VariantID  uuid.UUID
	LocationID uuid.UUID
	BatchID    *uuid.UUID
}

func (k InventoryKey) Tenant() uuid.UUID { return k.TenantID }

func (k InventoryKey) String() string {
	if k.BatchID != nil {
		return fmt.Sprintf("inventory/%s/%s/%s/%s", k.TenantID, k.VariantID, k.LocationID, *k.BatchID)
	}
	return fmt.Sprintf("inventory/%s/%s/%s", k.TenantID, k.VariantID, k.LocationID)
}

// BalanceKey identifies one party balance.
type BalanceKey struct {
	TenantID uuid.UUID
	Party    PartyRef
}

func (k BalanceKey) Tenant() uuid.UUID { return k.TenantID }

func (k BalanceKey) String() string {
	return fmt.Sprintf("balance/%s/%s/%s", k.TenantID, k.Party.Kind, k.Party.ID)
}

// DrawerKey identifies one cash drawer amount in one currency.
type DrawerKey struct {
	TenantID uuid.UUID
	DrawerID uuid.UUID
	Currency valueobject.Currency
}

func (k DrawerKey) Tenant() uuid.UUID { return k.TenantID }

func (k DrawerKey) String() string {
	return fmt.Sprintf("drawer/%s/%s/%s", k.TenantID, k.DrawerID, k.Currency)
}
