package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(Params{
		RiskAversion:      0.1,
		Volatility:        0.02,
		ArrivalRate:       1.5,
		ReservationSpread: 0.5,
	})
	require.NoError(t, err)
	return m
}

func TestNewModel_Validation(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"zero gamma", Params{RiskAversion: 0, Volatility: 0.02, ArrivalRate: 1}},
		{"negative sigma", Params{RiskAversion: 0.1, Volatility: -1, ArrivalRate: 1}},
		{"zero lambda", Params{RiskAversion: 0.1, Volatility: 0.02, ArrivalRate: 0}},
		{"negative floor", Params{RiskAversion: 0.1, Volatility: 0.02, ArrivalRate: 1, ReservationSpread: -0.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModel(tc.params)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	t.Run("default horizon", func(t *testing.T) {
		m, err := NewModel(Params{RiskAversion: 0.1, Volatility: 0.02, ArrivalRate: 1})
		require.NoError(t, err)
		assert.Equal(t, 1.0, m.Params().TimeHorizon)
	})
}

func TestOptimalSpread_Ordering(t *testing.T) {
	m := newTestModel(t)
	for _, inv := range []float64{-10, -1, 0, 1, 10} {
		bid, ask, err := m.OptimalSpread(50000, inv, 1.0)
		require.NoError(t, err)
		assert.Greater(t, ask, bid, "inventory=%v", inv)
		assert.GreaterOrEqual(t, ask-bid, m.Params().ReservationSpread-1e-9, "inventory=%v", inv)
	}
}

func TestOptimalSpread_InventorySkew(t *testing.T) {
	m := newTestModel(t)
	mid := 50000.0

	bidLong, askLong, err := m.OptimalSpread(mid, 5, 1.0)
	require.NoError(t, err)
	bidShort, askShort, err := m.OptimalSpread(mid, -5, 1.0)
	require.NoError(t, err)

	// 多头库存压低报价中点，空头抬高。
	assert.Less(t, (bidLong+askLong)/2, mid)
	assert.Greater(t, (bidShort+askShort)/2, mid)

	// 库存只平移中点，不放大价差。
	bidFlat, askFlat, err := m.OptimalSpread(mid, 0, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, askFlat-bidFlat, askLong-bidLong, 1e-9)
}

func TestOptimalSpread_InvalidMid(t *testing.T) {
	m := newTestModel(t)
	_, _, err := m.OptimalSpread(0, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = m.OptimalSpread(-100, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSpread_FloorAndMonotonicity(t *testing.T) {
	m := newTestModel(t)
	assert.GreaterOrEqual(t, m.Spread(0, 1.0), m.Params().ReservationSpread)

	// 价差随 γ 和 σ² 单调不减。
	lo, err := NewModel(Params{RiskAversion: 0.1, Volatility: 0.02, ArrivalRate: 1.5})
	require.NoError(t, err)
	hi, err := NewModel(Params{RiskAversion: 0.1, Volatility: 0.08, ArrivalRate: 1.5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, hi.Spread(0, 1.0), lo.Spread(0, 1.0))
}

func TestOptimalQuantities_Skew(t *testing.T) {
	m := newTestModel(t)
	base := 2.0
	maxInv := 10.0

	t.Run("flat", func(t *testing.T) {
		bid, ask, err := m.OptimalQuantities(50000, 0, maxInv, base, 1.0)
		require.NoError(t, err)
		assert.Equal(t, base, bid)
		assert.Equal(t, base, ask)
	})

	t.Run("long leans to sell", func(t *testing.T) {
		bid, ask, err := m.OptimalQuantities(50000, 4, maxInv, base, 1.0)
		require.NoError(t, err)
		ratio := 0.4
		assert.InDelta(t, base*(1+0.5*ratio), bid, 1e-9)
		assert.InDelta(t, base*(1-0.5*ratio), ask, 1e-9)
	})

	t.Run("short mirrors", func(t *testing.T) {
		bid, ask, err := m.OptimalQuantities(50000, -4, maxInv, base, 1.0)
		require.NoError(t, err)
		ratio := 0.4
		assert.InDelta(t, base*(1-0.5*ratio), bid, 1e-9)
		assert.InDelta(t, base*(1+0.5*ratio), ask, 1e-9)
	})
}

func TestOptimalQuantities_Dampening(t *testing.T) {
	m := newTestModel(t)
	base := 2.0
	maxInv := 10.0

	// ratio=1.0 时衰减系数应恰为 0.6。
	bid, ask, err := m.OptimalQuantities(50000, 10, maxInv, base, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, base*(1+0.5)*0.6, bid, 1e-9)
	assert.InDelta(t, base*(1-0.5)*0.6, ask, 1e-9)

	// ratio 超过 1.3 后保持 10% 保底。
	bid, ask, err = m.OptimalQuantities(50000, 20, maxInv, base, 1.0)
	require.NoError(t, err)
	scale := 0.1
	assert.InDelta(t, base*(1+0.5*2)*scale, bid, 1e-9)
	assert.GreaterOrEqual(t, ask, 0.0)
}

func TestOptimalQuantities_NonNegative(t *testing.T) {
	m := newTestModel(t)
	for _, inv := range []float64{-30, -10, 0, 10, 30} {
		bid, ask, err := m.OptimalQuantities(50000, inv, 10, 1, 1.0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bid, 0.0, "inventory=%v", inv)
		assert.GreaterOrEqual(t, ask, 0.0, "inventory=%v", inv)
		assert.False(t, math.IsNaN(bid) || math.IsNaN(ask))
	}
}

func TestOptimalQuantities_InvalidArgs(t *testing.T) {
	m := newTestModel(t)
	_, _, err := m.OptimalQuantities(50000, 0, 10, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = m.OptimalQuantities(50000, 0, 0, 1, 1.0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
