package shared

import (
	"context"

	"github.com/google/uuid"
)

// NumberSequence allocates human-readable document numbers (e.g. "SALE-2026-000042").
// Allocation happens outside the atomic unit of a state transition so sequence
// contention never extends aggregate lock hold times; gaps are acceptable.
type NumberSequence interface {
	// Next returns the next number for the given tenant and document kind
	Next(ctx context.Context, tenantID uuid.UUID, kind string) (string, error)
}
