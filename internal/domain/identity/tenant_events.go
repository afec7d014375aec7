package identity

import (
	"github.com/easyshop/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantCreated   = "TenantCreated"
	EventTypeTenantSuspended = "TenantSuspended"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Status TenantStatus `json:"status"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		Name:            tenant.Name,
		Status:          tenant.Status,
	}
}

// TenantSuspendedEvent is published when a tenant is suspended
type TenantSuspendedEvent struct {
	shared.BaseDomainEvent
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// NewTenantSuspendedEvent creates a new TenantSuspendedEvent
func NewTenantSuspendedEvent(tenant *Tenant, reason string) *TenantSuspendedEvent {
	return &TenantSuspendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantSuspended, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:            tenant.Code,
		Reason:          reason,
	}
}
