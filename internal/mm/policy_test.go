package mm

import (
	"testing"

	"alphatrade/internal/domain"
	"alphatrade/internal/manager"
	"alphatrade/internal/quote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInventoryLimits(t *testing.T) {
	cases := []struct {
		name         string
		inventory    float64
		max          float64
		atLimit      bool
		nearLimit    bool
		shouldReduce bool
	}{
		{"flat", 0, 10, false, false, false},
		{"half", 5, 10, false, false, false},
		{"at warning", 8, 10, false, true, false},
		{"above reduce", 9.5, 10, false, true, true},
		{"at limit", 10, 10, true, true, true},
		{"over limit short", -12, 10, true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := CheckInventoryLimits(tc.inventory, tc.max, 0.8)
			assert.Equal(t, tc.atLimit, status.IsAtLimit)
			assert.Equal(t, tc.nearLimit, status.IsNearLimit)
			assert.Equal(t, tc.shouldReduce, status.ShouldReduce)
		})
	}
}

func TestShouldAdjustQuotes(t *testing.T) {
	t.Run("no resting orders", func(t *testing.T) {
		assert.True(t, ShouldAdjustQuotes(0, 50010, 49990, 50012, 0.001))
		assert.True(t, ShouldAdjustQuotes(49990, 0, 49991, 50012, 0.001))
	})

	t.Run("small move keeps quotes", func(t *testing.T) {
		// 变化 0.002% < 0.1% 阈值
		assert.False(t, ShouldAdjustQuotes(50000, 50100, 50001, 50101, 0.001))
	})

	t.Run("bid move triggers", func(t *testing.T) {
		assert.True(t, ShouldAdjustQuotes(50000, 50100, 50100, 50101, 0.001))
	})

	t.Run("ask move triggers", func(t *testing.T) {
		assert.True(t, ShouldAdjustQuotes(50000, 50100, 50001, 50300, 0.001))
	})

	t.Run("relative change uses current price", func(t *testing.T) {
		// 分母是当前挂单价：0.05/100=0.05% 不触发，0.2/100=0.2% 触发
		assert.False(t, ShouldAdjustQuotes(100, 200, 100.05, 200.1, 0.001))
		assert.True(t, ShouldAdjustQuotes(100, 200, 100.2, 200, 0.001))
	})
}

func newTestPolicy(t *testing.T) (*Policy, *manager.PositionManager, *manager.OrderManager) {
	t.Helper()
	model, err := quote.NewModel(quote.Params{
		RiskAversion:      0.1,
		Volatility:        0.02,
		ArrivalRate:       1.5,
		ReservationSpread: 0.5,
	})
	require.NoError(t, err)
	positions := manager.NewPositionManager()
	orders := manager.NewOrderManager()
	return NewPolicy(model, positions, orders), positions, orders
}

func TestPolicy_Quotes_ReadsLiveInventory(t *testing.T) {
	policy, positions, _ := newTestPolicy(t)

	flat, err := policy.Quotes("BTC", 50000, 1, 10, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, flat.Inventory)
	assert.Greater(t, flat.AskPrice, flat.BidPrice)

	positions.Put(domain.NewPosition("BTC", 4, 49000))
	long, err := policy.Quotes("BTC", 50000, 1, 10, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 4.0, long.Inventory)
	// 多头库存压低双边报价
	assert.Less(t, long.BidPrice, flat.BidPrice)
	assert.Less(t, long.AskPrice, flat.AskPrice)
	assert.Greater(t, long.BidQuantity, long.AskQuantity)
}

func TestPolicy_InventoryStatus_NeverCached(t *testing.T) {
	policy, positions, _ := newTestPolicy(t)

	status := policy.InventoryStatus("BTC", 10, 0.8)
	assert.False(t, status.IsNearLimit)

	positions.Put(domain.NewPosition("BTC", 9.5, 50000))
	status = policy.InventoryStatus("BTC", 10, 0.8)
	assert.True(t, status.IsNearLimit)
	assert.True(t, status.ShouldReduce)
	assert.False(t, status.IsAtLimit)
}

func TestPolicy_MakerOrders(t *testing.T) {
	policy, _, orders := newTestPolicy(t)

	orders.Put(&domain.Order{ID: "1", Symbol: "BTC", Side: domain.SideBuy, Status: domain.StatusOpen, PostOnly: true, Price: 49990, Quantity: 1})
	orders.Put(&domain.Order{ID: "2", Symbol: "BTC", Side: domain.SideSell, Status: domain.StatusOpen, PostOnly: true, Price: 50010, Quantity: 1})
	orders.Put(&domain.Order{ID: "3", Symbol: "BTC", Side: domain.SideSell, Status: domain.StatusOpen, PostOnly: false, Price: 50020, Quantity: 1})
	orders.Put(&domain.Order{ID: "4", Symbol: "BTC", Side: domain.SideBuy, Status: domain.StatusCancelled, PostOnly: true, Price: 49000, Quantity: 1})

	bid, ask := policy.MakerOrders("BTC")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.Equal(t, "1", bid.ID)
	assert.Equal(t, "2", ask.ID)
}
