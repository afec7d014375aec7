package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReconciliationDrift(t *testing.T) {
	key := testInventoryKey()
	runID := uuid.New()

	drift, err := NewReconciliationDrift(key, decimal.NewFromInt(10), decimal.NewFromInt(7), DriftResolutionOverwrite, runID)
	require.NoError(t, err)

	assert.Equal(t, key.TenantID, drift.TenantID)
	assert.Equal(t, key.String(), drift.AggregateKey)
	assert.True(t, drift.Difference.Equal(decimal.NewFromInt(-3)), "difference is ledger minus cached")
	assert.Equal(t, DriftResolutionOverwrite, drift.Resolution)
	assert.Equal(t, runID, drift.ReconcileRun)
	assert.False(t, drift.DetectedAt.IsZero())
}

func TestNewReconciliationDrift_NoDrift(t *testing.T) {
	_, err := NewReconciliationDrift(testInventoryKey(), decimal.NewFromInt(10), decimal.NewFromInt(10), DriftResolutionOverwrite, uuid.New())
	assert.Error(t, err)
}

func TestNewReconciliationDrift_Validation(t *testing.T) {
	_, err := NewReconciliationDrift(nil, decimal.Zero, decimal.NewFromInt(1), DriftResolutionOverwrite, uuid.New())
	assert.Error(t, err)

	_, err = NewReconciliationDrift(InventoryKey{}, decimal.Zero, decimal.NewFromInt(1), DriftResolutionOverwrite, uuid.New())
	assert.Error(t, err, "key without tenant is rejected")

	_, err = NewReconciliationDrift(testInventoryKey(), decimal.Zero, decimal.NewFromInt(1), DriftResolutionOverwrite, uuid.Nil)
	assert.Error(t, err)
}
