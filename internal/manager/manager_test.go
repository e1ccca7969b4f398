package manager

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dexgrid-bot-go/internal/models"
	"dexgrid-bot-go/internal/numeric"
)

// mockChain is a mock implementation of the Chain interface for testing.
type mockChain struct {
	marketPrice  float64
	balances     map[string]float64
	openOrders   map[string]float64
	balancesErr  error
	openOrderErr error
}

func (c *mockChain) ResolveMarketPrice(base, quote string, mode models.MarketPriceMode) (float64, error) {
	return c.marketPrice, nil
}

func (c *mockChain) GetAccountBalances(account string) (map[string]float64, error) {
	if c.balancesErr != nil {
		return nil, c.balancesErr
	}
	return c.balances, nil
}

func (c *mockChain) LookupAssetMetadata(symbol string) (*models.AssetInfo, error) {
	return &models.AssetInfo{ID: "1.3.0", Symbol: symbol, Precision: 5}, nil
}

func (c *mockChain) GetOpenOrders(account string) (map[string]float64, error) {
	if c.openOrderErr != nil {
		return nil, c.openOrderErr
	}
	return c.openOrders, nil
}

func testConfig() *models.ManagerConfig {
	return &models.ManagerConfig{
		Account:             "tester",
		BaseSymbol:          "BTS",
		QuoteSymbol:         "USDT",
		PriceMode:           models.PriceModeFixed,
		FixedMarketPrice:    100,
		MinPrice:            numeric.RelPrice{Value: 50},
		MaxPrice:            numeric.RelPrice{Value: 200},
		IncrementPercent:    10,
		TargetSpreadPercent: 20,
		BuyFunds:            numeric.Allotment{Value: 1000},
		SellFunds:           numeric.Allotment{Value: 500},
		ActiveBuyOrders:     2,
		ActiveSellOrders:    2,
		MinOrderSize:        0.5,
	}
}

func testChain() *mockChain {
	return &mockChain{
		marketPrice: 100,
		balances:    map[string]float64{"USDT": 1000, "BTS": 500},
		openOrders:  map[string]float64{},
	}
}

func newTestManager(t *testing.T) (*OrderManager, *mockChain) {
	t.Helper()
	chain := testChain()
	m := NewOrderManager(testConfig(), chain, zap.NewNop().Sugar())
	require.NoError(t, m.Initialize())
	return m, chain
}

// gridLine returns the price of line i of the test grid (min 50, 10% step).
func gridLine(i int) float64 {
	return 50 * math.Pow(1.1, float64(i))
}

func TestInitialize(t *testing.T) {
	m, _ := newTestManager(t)

	orders := m.Orders()
	require.Len(t, orders, 15)
	assert.Equal(t, 100.0, m.MarketPrice())

	// The closest sell lines above the spread band and the closest buy
	// lines below it start out active.
	active := map[string]bool{}
	for _, o := range orders {
		if o.IsLive() {
			active[o.ID] = true
			assert.Empty(t, o.ExternalOrderID, "freshly activated orders are not on chain yet")
		}
	}
	assert.Equal(t, map[string]bool{"sell-10": true, "sell-11": true, "buy-4": true, "buy-3": true}, active)

	// The ledger accounts for the whole allotment.
	l := m.Ledger()
	assert.InDelta(t, 400.0, l.CommittedGrid.Buy, 1e-9, "two active buys of 200 each")
	assert.InDelta(t, 600.0, l.Virtual.Buy, 1e-9)
	assert.InDelta(t, 200.0, l.CommittedGrid.Sell, 1e-9, "two active sells of 100 each")
	assert.InDelta(t, 300.0, l.Virtual.Sell, 1e-9)
	assert.True(t, l.Conserved(1e-9))
}

// A market price outside the configured band must abort initialization
// without committing any state.
func TestInitializeRejectsOutOfBoundsPrice(t *testing.T) {
	cfg := testConfig()
	cfg.FixedMarketPrice = 300
	m := NewOrderManager(cfg, testChain(), zap.NewNop().Sugar())
	require.Error(t, m.Initialize())
	assert.Empty(t, m.Orders())

	cfg.FixedMarketPrice = 40
	m = NewOrderManager(cfg, testChain(), zap.NewNop().Sugar())
	require.Error(t, m.Initialize())
}

// A balance query failure is non-fatal: initialization proceeds with
// unknown balances.
func TestInitializeSurvivesBalanceError(t *testing.T) {
	chain := testChain()
	chain.balancesErr = errors.New("node unreachable")
	m := NewOrderManager(testConfig(), chain, zap.NewNop().Sugar())
	require.NoError(t, m.Initialize())
	require.Len(t, m.Orders(), 15)
}

func TestConfirmPlaced(t *testing.T) {
	m, _ := newTestManager(t)

	pending := m.PendingPlacements()
	require.Len(t, pending, 4)

	require.NoError(t, m.ConfirmPlaced("sell-10", "1.7.100"))
	assert.InDelta(t, 100.0, m.Ledger().CommittedChain.Sell, 1e-9)
	assert.Len(t, m.PendingPlacements(), 3, "confirmed orders drop out of the placement queue")

	assert.Error(t, m.ConfirmPlaced("sell-99", "1.7.101"))

	// Remaining confirmations.
	require.NoError(t, m.ConfirmPlaced("sell-11", "1.7.101"))
	require.NoError(t, m.ConfirmPlaced("buy-3", "1.7.102"))
	require.NoError(t, m.ConfirmPlaced("buy-4", "1.7.103"))
	assert.Empty(t, m.PendingPlacements())
}

// A full sell fill vacates the slot, books the proceeds on the buy side
// and activates a replacement buy from the spread band.
func TestProcessFullSellFill(t *testing.T) {
	m, _ := newTestManager(t)

	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-10", Quantity: 100}})
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Filled.Sell)
	require.Equal(t, []string{"buy-5"}, res.Activated, "lowest spread slot below market activates")

	var filled, activated models.GridOrder
	for _, o := range m.Orders() {
		switch o.ID {
		case "sell-10":
			filled = o
		case "buy-5":
			activated = o
		}
	}

	// The filled slot keeps its identity but is otherwise vacated.
	assert.Equal(t, models.OrderTypeSpread, filled.Type)
	assert.Equal(t, models.OrderStateVirtual, filled.State)
	assert.Zero(t, filled.Size)
	assert.Empty(t, filled.ExternalOrderID)

	// The replacement carries the folded sell proceeds.
	proceeds := 100 * gridLine(10)
	assert.Equal(t, models.OrderTypeBuy, activated.Type)
	assert.Equal(t, models.OrderStateActive, activated.State)
	assert.InDelta(t, proceeds, activated.Size, 1e-6)

	assert.True(t, m.Ledger().Conserved(1e-6))
}

// The buy side mirrors the sell side: a full buy fill books base-asset
// proceeds and replenishes a sell from the spread band just above market.
func TestProcessFullBuyFill(t *testing.T) {
	m, _ := newTestManager(t)

	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "buy-4", Quantity: 200}})
	assert.Equal(t, 1, res.Filled.Buy)
	require.Equal(t, []string{"sell-8"}, res.Activated, "spread slot just above market activates")

	proceeds := 200 / gridLine(4)
	for _, o := range m.Orders() {
		if o.ID == "sell-8" {
			assert.Equal(t, models.OrderTypeSell, o.Type)
			assert.InDelta(t, proceeds, o.Size, 1e-6)
		}
	}
	assert.True(t, m.Ledger().Conserved(1e-6))
}

// A partial fill shrinks the slot in place; no replenishment is driven
// and the same filled quantity is never booked twice.
func TestProcessPartialFill(t *testing.T) {
	m, _ := newTestManager(t)

	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-11", Quantity: 30}})
	assert.Equal(t, 1, res.Applied)
	assert.Zero(t, res.Filled.Sell)
	assert.Empty(t, res.Activated)

	for _, o := range m.Orders() {
		if o.ID == "sell-11" {
			assert.Equal(t, models.OrderStatePartial, o.State)
			assert.InDelta(t, 70.0, o.Size, 1e-9)
		}
	}

	// Proceeds for the filled part are folded into available funds once.
	assert.InDelta(t, 30*gridLine(11), m.Ledger().Available.Buy, 1e-6)

	// The follow-up fill books only the remainder.
	res = m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-11", Quantity: 70}})
	assert.Equal(t, 1, res.Filled.Sell)
	assert.True(t, m.Ledger().Conserved(1e-6))
}

// Invalid fill records are skipped with a warning; the rest of the batch
// still applies.
func TestProcessInvalidFills(t *testing.T) {
	m, _ := newTestManager(t)

	res := m.ProcessFilledOrders([]models.FillEvent{
		{OrderID: "nope", Quantity: 1},              // unknown order
		{OrderID: "sell-10", Quantity: -5},          // non-positive quantity
		{OrderID: "sell-8", Quantity: 1},            // spread slot
		{OrderID: "buy-0", Quantity: 1},             // virtual, not live
		{OrderID: "sell-10", Quantity: 10},          // valid
	})
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 1, res.Applied)
}

// An empty batch still returns a result and re-evaluates the spread.
func TestProcessEmptyBatch(t *testing.T) {
	m, _ := newTestManager(t)
	res := m.ProcessFilledOrders(nil)
	assert.Zero(t, res.Applied)
	assert.Empty(t, res.Activated)
}

// Overfilled quantities are clamped to the slot size instead of driving
// the ledger negative.
func TestProcessFillClampsQuantity(t *testing.T) {
	m, _ := newTestManager(t)

	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-10", Quantity: 150}})
	assert.Equal(t, 1, res.Filled.Sell)
	// Only the slot's 100 left the committed bucket, not the claimed 150.
	assert.InDelta(t, 100.0, m.Ledger().CommittedGrid.Sell, 1e-9)
	assert.True(t, m.Ledger().Conserved(1e-6))
}

// With no spread slots available the manager rotates: the live order
// farthest from market is cancelled and re-placed closer in.
func TestRotation(t *testing.T) {
	cfg := testConfig()
	cfg.TargetSpreadPercent = 0 // no spread band, so no free slots
	chain := testChain()
	m := NewOrderManager(cfg, chain, zap.NewNop().Sugar())
	require.NoError(t, m.Initialize())

	// 8 buy lines of 125 and 7 sell lines of 500/7 each; buy-6/buy-7 and
	// sell-8/sell-9 are active.
	require.NoError(t, m.ConfirmPlaced("buy-6", "1.7.200"))

	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-8", Quantity: 500.0 / 7}})
	require.Equal(t, []string{"buy-6"}, res.Activated, "slot vacated by the far cancel is re-placed")

	// The cancelled chain order is queued for the poller.
	assert.Equal(t, []string{"1.7.200"}, m.DrainCancelQueue())
	assert.Empty(t, m.DrainCancelQueue(), "drain empties the queue")

	// The sell proceeds exceed the rotation sizes; the remainder is cached
	// for the next rotation instead of idling inside an order.
	proceeds := (500.0 / 7) * gridLine(8)
	assert.InDelta(t, proceeds, m.Ledger().CacheFunds.Buy, 1e-6)
	assert.True(t, m.Ledger().Conserved(1e-6))

	for _, o := range m.Orders() {
		if o.ID == "buy-6" {
			assert.Equal(t, models.OrderStateActive, o.State)
			assert.InDelta(t, 125.0, o.Size, 1e-9, "rotation re-uses the released size")
			assert.Empty(t, o.ExternalOrderID, "re-placed orders need a fresh chain handle")
		}
	}
}

// Fill detection diffs the chain's open orders against local live
// orders: a missing handle is a full fill, a smaller remainder a
// partial one.
func TestDetectFillsViaFetch(t *testing.T) {
	m, chain := newTestManager(t)

	require.NoError(t, m.ConfirmPlaced("sell-10", "1.7.10"))
	require.NoError(t, m.ConfirmPlaced("sell-11", "1.7.11"))
	require.NoError(t, m.ConfirmPlaced("buy-3", "1.7.3"))
	require.NoError(t, m.ConfirmPlaced("buy-4", "1.7.4"))
	chain.openOrders = map[string]float64{
		"1.7.10": 100, "1.7.11": 100, "1.7.3": 200, "1.7.4": 200,
	}

	// All orders untouched on chain: nothing happens.
	m.ForceRecalculation()
	live, err := m.FetchOrderUpdates()
	require.NoError(t, err)
	assert.Len(t, live, 4)

	// The cheap path returns without hitting the chain.
	chain.openOrderErr = errors.New("should not be called")
	_, err = m.FetchOrderUpdates()
	require.NoError(t, err)
	chain.openOrderErr = nil

	// sell-10 disappears (full fill), sell-11 shrinks (partial fill).
	delete(chain.openOrders, "1.7.10")
	chain.openOrders["1.7.11"] = 60
	m.ForceRecalculation()
	_, err = m.FetchOrderUpdates()
	require.NoError(t, err)

	for _, o := range m.Orders() {
		switch o.ID {
		case "sell-10":
			assert.Equal(t, models.OrderTypeSpread, o.Type)
		case "sell-11":
			assert.Equal(t, models.OrderStatePartial, o.State)
			assert.InDelta(t, 60.0, o.Size, 1e-9)
		}
	}
}

func TestFetchOrderUpdatesRequiresInit(t *testing.T) {
	m := NewOrderManager(testConfig(), testChain(), zap.NewNop().Sugar())
	_, err := m.FetchOrderUpdates()
	assert.Error(t, err)
}

func TestCheckSpreadCondition(t *testing.T) {
	m, _ := newTestManager(t)

	// Best ask sell-10 (129.69), best bid buy-4 (73.21): far beyond the
	// 20% target + 10% increment.
	spread, out := m.CheckSpreadCondition()
	expected := (gridLine(10)/gridLine(4) - 1) * 100
	assert.InDelta(t, expected, spread, 1e-9)
	assert.True(t, out)
}

func TestCheckSpreadConditionEmptySide(t *testing.T) {
	cfg := testConfig()
	cfg.FixedMarketPrice = 55
	cfg.MinPrice = numeric.RelPrice{Value: 50}
	cfg.MaxPrice = numeric.RelPrice{Value: 60}
	cfg.TargetSpreadPercent = 50 // every line sits in the band
	m := NewOrderManager(cfg, testChain(), zap.NewNop().Sugar())
	require.NoError(t, m.Initialize())

	spread, out := m.CheckSpreadCondition()
	assert.Zero(t, spread)
	assert.False(t, out)
}

func TestLoadGrid(t *testing.T) {
	m, _ := newTestManager(t)

	snapshot := m.Orders()
	// Simulate a restart after sell-10 went on chain.
	for i := range snapshot {
		if snapshot[i].ID == "sell-10" {
			snapshot[i].ExternalOrderID = "1.7.55"
		}
	}

	// In-flight values set before the load must survive it.
	m.Ledger().PendingProceeds.Buy = 197.952
	m.Ledger().CacheFunds.Sell = 1.5

	require.NoError(t, m.LoadGrid(snapshot))
	assert.InDelta(t, 197.952, m.Ledger().PendingProceeds.Buy, 1e-9)
	assert.InDelta(t, 1.5, m.Ledger().CacheFunds.Sell, 1e-9)
	first := *m.Ledger()

	// Loading the same snapshot again lands in the same state.
	require.NoError(t, m.LoadGrid(snapshot))
	assert.Equal(t, first, *m.Ledger())

	for _, o := range m.Orders() {
		if o.ID == "sell-10" {
			assert.Equal(t, "1.7.55", o.ExternalOrderID)
		}
	}
	assert.InDelta(t, 100.0, m.Ledger().CommittedChain.Sell, 1e-9)
}

func TestLoadGridRejectsBadSnapshots(t *testing.T) {
	m, _ := newTestManager(t)
	good := m.Orders()

	cases := map[string]func([]models.GridOrder) []models.GridOrder{
		"empty": func(o []models.GridOrder) []models.GridOrder { return nil },
		"duplicate id": func(o []models.GridOrder) []models.GridOrder {
			o[1].ID = o[0].ID
			return o
		},
		"spread with size": func(o []models.GridOrder) []models.GridOrder {
			for i := range o {
				if o[i].Type == models.OrderTypeSpread {
					o[i].Size = 5
					break
				}
			}
			return o
		},
		"virtual with chain handle": func(o []models.GridOrder) []models.GridOrder {
			for i := range o {
				if o[i].State == models.OrderStateVirtual {
					o[i].ExternalOrderID = "1.7.99"
					break
				}
			}
			return o
		},
		"non-positive price": func(o []models.GridOrder) []models.GridOrder {
			o[0].Price = 0
			return o
		},
	}

	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			snapshot := make([]models.GridOrder, len(good))
			copy(snapshot, good)
			require.Error(t, m.LoadGrid(corrupt(snapshot)))
			assert.Len(t, m.Orders(), len(good), "a rejected snapshot must not touch the grid")
		})
	}
}

func TestLoadGridRequiresInit(t *testing.T) {
	m := NewOrderManager(testConfig(), testChain(), zap.NewNop().Sugar())
	assert.Error(t, m.LoadGrid([]models.GridOrder{{ID: "buy-0", Price: 1}}))
}

// A partially filled sell whose price the market has crossed moves up
// into the nearest free slot toward market, keeping its accumulated
// progress instead of being thrown away by the rotation.
func TestCrossedPartialMoves(t *testing.T) {
	m, _ := newTestManager(t)

	// sell-11 fills fully and vacates its slot.
	res := m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-11", Quantity: 100}})
	require.Equal(t, 1, res.Filled.Sell)

	// sell-10 fills partially and goes on chain with the remainder.
	res = m.ProcessFilledOrders([]models.FillEvent{{OrderID: "sell-10", Quantity: 40}})
	require.Equal(t, 1, res.Applied)
	require.NoError(t, m.ConfirmPlaced("sell-10", "1.7.77"))

	// The market climbs past sell-10's line; the partial is now crossed.
	m.SetMarketPrice(gridLine(10) * 1.05)

	// A buy fill drives sell-side replenishment. There are not enough
	// free slots above the new market, so the manager rotates, and the
	// crossed partial moves up into sell-11's vacated slot first.
	res = m.ProcessFilledOrders([]models.FillEvent{{OrderID: "buy-4", Quantity: 200}})
	require.Equal(t, 1, res.Filled.Buy)

	// The chain order of the moved partial is cancelled.
	assert.Equal(t, []string{"1.7.77"}, m.DrainCancelQueue())

	for _, o := range m.Orders() {
		switch o.ID {
		case "sell-10":
			assert.Equal(t, models.OrderTypeSpread, o.Type)
			assert.Equal(t, models.OrderStateVirtual, o.State)
			assert.Zero(t, o.Size)
		case "sell-11":
			assert.Equal(t, models.OrderTypeSell, o.Type)
			assert.Equal(t, models.OrderStateActive, o.State)
			assert.InDelta(t, 60.0, o.Size, 1e-6, "the remaining 60 follow the slot")
			assert.Empty(t, o.ExternalOrderID, "the moved order needs a fresh placement")
		}
	}
	assert.True(t, m.Ledger().Conserved(1e-6))
}
