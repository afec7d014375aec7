package ledger

import (
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriftResolution records how a detected drift was handled
type DriftResolution string

const (
	// DriftResolutionOverwrite replaced the cached value with the ledger sum
	DriftResolutionOverwrite DriftResolution = "OVERWRITE"
	// DriftResolutionCorrectiveEntry appended an adjustment entry instead
	DriftResolutionCorrectiveEntry DriftResolution = "CORRECTIVE_ENTRY"
)

// ReconciliationDrift is the audit record written whenever reconciliation
// finds a cached aggregate that no longer matches its ledger sum.
type ReconciliationDrift struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_drift_tenant_time,priority:1"`
	AggregateKey  string          `gorm:"type:varchar(300);not null;index"`
	CachedValue   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LedgerValue   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Difference    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Resolution    DriftResolution `gorm:"type:varchar(30);not null"`
	DetectedAt    time.Time       `gorm:"type:timestamptz;not null;index:idx_drift_tenant_time,priority:2"`
	ReconcileRun  uuid.UUID       `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (ReconciliationDrift) TableName() string {
	return "reconciliation_drifts"
}

// NewReconciliationDrift records one detected drift
func NewReconciliationDrift(
	key AggregateKey,
	cached, ledger decimal.Decimal,
	resolution DriftResolution,
	runID uuid.UUID,
) (*ReconciliationDrift, error) {
	if key == nil || key.Tenant() == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Aggregate key must name a tenant")
	}
	if runID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RUN_ID", "Reconcile run ID cannot be empty")
	}
	if cached.Equal(ledger) {
		return nil, shared.NewDomainError("NO_DRIFT", "Cached and ledger values are equal")
	}

	return &ReconciliationDrift{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     key.Tenant(),
		AggregateKey: key.String(),
		CachedValue:  cached,
		LedgerValue:  ledger,
		Difference:   ledger.Sub(cached),
		Resolution:   resolution,
		DetectedAt:   time.Now(),
		ReconcileRun: runID,
	}, nil
}
