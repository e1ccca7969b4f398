package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexgrid-bot-go/internal/models"
)

const tol = 1e-9

func TestEarmarkActivateFlow(t *testing.T) {
	l := NewFundLedger(0)
	l.SetChainTotals(1000, 50)

	l.Earmark(models.OrderTypeSell, 10)
	assert.Equal(t, 10.0, l.Virtual.Sell)

	l.Activate(models.OrderTypeSell, 10)
	assert.Zero(t, l.Virtual.Sell)
	assert.Equal(t, 10.0, l.CommittedGrid.Sell)

	l.ConfirmChain(models.OrderTypeSell, 10)
	assert.Equal(t, 10.0, l.CommittedChain.Sell)

	l.ReleaseChain(models.OrderTypeSell, 10)
	l.Release(models.OrderTypeSell, 10)
	assert.Zero(t, l.CommittedGrid.Sell)
	assert.Equal(t, 10.0, l.Available.Sell)
}

// A sell fill credits the buy side with quantity*price of the quote
// asset; a buy fill credits the sell side with quantity/price of the
// base asset.
func TestApplyFillProceeds(t *testing.T) {
	l := NewFundLedger(0)
	l.CommittedGrid.Sell = 10
	l.CommittedChain.Sell = 10
	l.TotalGrid.Sell = 10
	l.TotalChain.Sell = 10

	l.ApplyFill(models.OrderTypeSell, 0.1031, 1920)
	assert.InDelta(t, 197.952, l.PendingProceeds.Buy, tol)
	assert.InDelta(t, 10-0.1031, l.CommittedGrid.Sell, tol)
	assert.InDelta(t, 10-0.1031, l.TotalGrid.Sell, tol)

	l2 := NewFundLedger(0)
	l2.CommittedGrid.Buy = 500
	l2.TotalGrid.Buy = 500
	l2.ApplyFill(models.OrderTypeBuy, 192, 1920)
	assert.InDelta(t, 0.1, l2.PendingProceeds.Sell, tol)
	assert.InDelta(t, 308, l2.CommittedGrid.Buy, tol)
}

// Proceeds fold into the available bucket exactly once; a second fold
// is a no-op.
func TestFoldPendingOnce(t *testing.T) {
	l := NewFundLedger(0)
	l.PendingProceeds.Buy = 197.952

	l.FoldPending(models.OrderTypeBuy)
	assert.InDelta(t, 197.952, l.Available.Buy, tol)
	assert.InDelta(t, 197.952, l.TotalGrid.Buy, tol)
	assert.Zero(t, l.PendingProceeds.Buy)

	l.FoldPending(models.OrderTypeBuy)
	assert.InDelta(t, 197.952, l.Available.Buy, tol, "second fold must not double-credit")
	assert.InDelta(t, 197.952, l.TotalGrid.Buy, tol)
}

// When the rotation sizes need less than the pool, the remainder lands
// in cacheFunds for the next rotation.
func TestAllocateRotationRemainderToCache(t *testing.T) {
	l := NewFundLedger(0)
	l.Available.Buy = 60
	l.PendingProceeds.Buy = 40

	allocated := l.AllocateRotation(models.OrderTypeBuy, []float64{50, 25})
	require.Equal(t, []float64{50, 25}, allocated)
	assert.InDelta(t, 25.0, l.CacheFunds.Buy, tol, "pool 100 minus sum 75 is cached")
	assert.Zero(t, l.Available.Buy)
	assert.Zero(t, l.PendingProceeds.Buy)
	assert.InDelta(t, 75.0, l.CommittedGrid.Buy, tol)
}

// When the sizes exceed the pool, everything scales down so the sum
// matches the pool exactly and nothing is cached.
func TestAllocateRotationScalesDown(t *testing.T) {
	l := NewFundLedger(0)
	l.Available.Sell = 30

	allocated := l.AllocateRotation(models.OrderTypeSell, []float64{40, 20})
	require.Len(t, allocated, 2)
	assert.InDelta(t, 20.0, allocated[0], tol)
	assert.InDelta(t, 10.0, allocated[1], tol)
	assert.Zero(t, l.CacheFunds.Sell)
	assert.InDelta(t, 30.0, l.CommittedGrid.Sell, tol)
}

// A previous rotation's cache is consumed by the next rotation.
func TestAllocateRotationConsumesCache(t *testing.T) {
	l := NewFundLedger(0)
	l.Available.Buy = 10
	l.CacheFunds.Buy = 15

	allocated := l.AllocateRotation(models.OrderTypeBuy, []float64{20})
	assert.InDelta(t, 20.0, allocated[0], tol)
	assert.InDelta(t, 5.0, l.CacheFunds.Buy, tol)
}

func TestAllocateRotationEmpty(t *testing.T) {
	l := NewFundLedger(0)
	l.Available.Buy = 12

	allocated := l.AllocateRotation(models.OrderTypeBuy, nil)
	assert.Empty(t, allocated)
	assert.InDelta(t, 12.0, l.CacheFunds.Buy, tol, "pool survives as cache when there is nothing to size")
}

func TestUnallocateGoesToCache(t *testing.T) {
	l := NewFundLedger(0)
	l.CommittedGrid.Sell = 8

	l.Unallocate(models.OrderTypeSell, 3)
	assert.InDelta(t, 5.0, l.CommittedGrid.Sell, tol)
	assert.InDelta(t, 3.0, l.CacheFunds.Sell, tol)
	assert.Zero(t, l.Available.Sell, "fragments must not leak back into available")
}

func TestRecomputeFromOrders(t *testing.T) {
	orders := []models.GridOrder{
		{ID: "buy-0", Type: models.OrderTypeBuy, State: models.OrderStateVirtual, Price: 50, Size: 100},
		{ID: "buy-1", Type: models.OrderTypeBuy, State: models.OrderStateActive, Price: 60, Size: 200, ExternalOrderID: "1.7.100"},
		{ID: "sell-2", Type: models.OrderTypeSell, State: models.OrderStatePartial, Price: 130, Size: 4, ExternalOrderID: "1.7.101"},
		{ID: "sell-3", Type: models.OrderTypeSell, State: models.OrderStateActive, Price: 140, Size: 5},
		{ID: "buy-4", Type: models.OrderTypeSpread, State: models.OrderStateVirtual, Price: 90},
	}

	l := NewFundLedger(2)
	l.Recompute(orders, 1000, 50)

	assert.Equal(t, 100.0, l.Virtual.Buy)
	assert.Equal(t, 200.0, l.CommittedGrid.Buy)
	assert.Equal(t, 200.0, l.CommittedChain.Buy)
	assert.Equal(t, 9.0, l.CommittedGrid.Sell)
	assert.Equal(t, 4.0, l.CommittedChain.Sell, "only orders with a chain handle count as chain-committed")

	// Available excludes virtual reservations, and the fee reserve on
	// the base-asset side.
	assert.InDelta(t, 900.0, l.Available.Buy, tol)
	assert.InDelta(t, 48.0, l.Available.Sell, tol)

	assert.InDelta(t, 1200.0, l.TotalChain.Buy, tol)
	assert.InDelta(t, 54.0, l.TotalChain.Sell, tol)

	assert.True(t, l.Conserved(tol))
	// Once nothing is pending the buckets partition the grid total exactly.
	sum := l.Available.Buy + l.CommittedGrid.Buy + l.Virtual.Buy + l.CacheFunds.Buy
	assert.InDelta(t, l.TotalGrid.Buy, sum, tol)
}

// Pending proceeds and cached fragments are in-flight values that cannot
// be derived from the order set; a recompute must carry them over.
func TestRecomputePreservesInFlight(t *testing.T) {
	l := NewFundLedger(0)
	l.PendingProceeds.Buy = 197.952
	l.CacheFunds.Sell = 1.5

	l.Recompute(nil, 500, 20)
	assert.InDelta(t, 197.952, l.PendingProceeds.Buy, tol)
	assert.InDelta(t, 1.5, l.CacheFunds.Sell, tol)

	// The carried proceeds are still un-folded: available must not
	// include them, or the next fold would count them twice.
	assert.InDelta(t, 500.0, l.Available.Buy, tol)
	l.FoldPending(models.OrderTypeBuy)
	assert.InDelta(t, 697.952, l.Available.Buy, tol)
}

// Conservation holds across a full fill/fold/rotate cycle.
func TestConservationAcrossCycle(t *testing.T) {
	orders := []models.GridOrder{
		{ID: "sell-0", Type: models.OrderTypeSell, State: models.OrderStateActive, Price: 1920, Size: 10, ExternalOrderID: "1.7.1"},
	}
	l := NewFundLedger(0)
	l.Recompute(orders, 100, 0)
	require.True(t, l.Conserved(tol))

	l.ApplyFill(models.OrderTypeSell, 10, 1920)
	require.True(t, l.Conserved(tol))

	l.FoldAllPending()
	require.True(t, l.Conserved(tol))
	assert.InDelta(t, 100+19200, l.Available.Buy, tol)

	l.AllocateRotation(models.OrderTypeBuy, []float64{12000, 6000})
	assert.True(t, l.Conserved(tol))
	assert.InDelta(t, 1300.0, l.CacheFunds.Buy, tol)
}
