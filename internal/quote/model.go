package quote

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument 标记调用参数非法，调用方不应重试。
var ErrInvalidArgument = errors.New("invalid argument")

// Params 是 Avellaneda-Stoikov 模型参数，构造后不可变。
type Params struct {
	// RiskAversion 即 γ，对持仓风险的敏感度。
	RiskAversion float64 `json:"risk_aversion"`
	// Volatility 即 σ，瞬时波动率估计。
	Volatility float64 `json:"volatility"`
	// ArrivalRate 即 λ，订单流强度。
	ArrivalRate float64 `json:"arrival_rate"`
	// ReservationSpread 为价差下限，计算结果不允许低于它。
	ReservationSpread float64 `json:"reservation_spread"`
	// TimeHorizon 为归一化时间尺度，缺省 1.0。
	TimeHorizon float64 `json:"time_horizon"`
}

func (p Params) validate() error {
	if p.RiskAversion <= 0 {
		return fmt.Errorf("%w: risk_aversion 必须为正, got %v", ErrInvalidArgument, p.RiskAversion)
	}
	if p.Volatility <= 0 {
		return fmt.Errorf("%w: volatility 必须为正, got %v", ErrInvalidArgument, p.Volatility)
	}
	if p.ArrivalRate <= 0 {
		return fmt.Errorf("%w: arrival_rate 必须为正, got %v", ErrInvalidArgument, p.ArrivalRate)
	}
	if p.ReservationSpread < 0 {
		return fmt.Errorf("%w: reservation_spread 不允许为负, got %v", ErrInvalidArgument, p.ReservationSpread)
	}
	return nil
}

// Model 依据库存与风险参数给出最优双边报价。纯计算，无 I/O。
type Model struct {
	params Params
}

func NewModel(params Params) (*Model, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.TimeHorizon <= 0 {
		params.TimeHorizon = 1.0
	}
	return &Model{params: params}, nil
}

func (m *Model) Params() Params { return m.params }

// horizon 把调用方省略（<=0）的 ttm 归一到配置的 TimeHorizon。
func (m *Model) horizon(ttm float64) float64 {
	if ttm <= 0 {
		return m.params.TimeHorizon
	}
	return ttm
}

// reservationPrice 计算保留价 r = mid − γσ²·q·T。
// 多头库存压低 r（倾向卖出），空头抬高 r。
func (m *Model) reservationPrice(mid, inventory, ttm float64) float64 {
	adjustment := m.params.RiskAversion * m.params.Volatility * m.params.Volatility * inventory * ttm
	return mid - adjustment
}

// optimalSpread 计算总价差 γσ²T + (2/γ)·ln(1+γ/k)，k = λ/(γσ²)。
func (m *Model) optimalSpread(ttm float64) float64 {
	gamma := m.params.RiskAversion
	sigmaSq := m.params.Volatility * m.params.Volatility
	lambda := m.params.ArrivalRate

	spread := gamma * sigmaSq * ttm
	if lambda > 0 && gamma > 0 {
		k := lambda / (gamma * sigmaSq)
		if k > 0 {
			spread += (2.0 / gamma) * math.Log(1.0+gamma/k)
		}
	}
	return math.Max(spread, m.params.ReservationSpread)
}

// OptimalSpread 返回最优 bid/ask。保证 ask > bid，
// 且 ask−bid 不低于 ReservationSpread。
func (m *Model) OptimalSpread(midPrice, inventory, timeToMaturity float64) (bid, ask float64, err error) {
	if midPrice <= 0 {
		return 0, 0, fmt.Errorf("%w: mid price 必须为正, got %v", ErrInvalidArgument, midPrice)
	}
	ttm := m.horizon(timeToMaturity)
	r := m.reservationPrice(midPrice, inventory, ttm)
	spread := m.optimalSpread(ttm)

	bid = r - spread/2
	ask = r + spread/2
	// 浮点误差可能把价差压到下限以下，此时围绕 r 对称重置。
	if ask-bid < m.params.ReservationSpread {
		bid = r - m.params.ReservationSpread/2
		ask = r + m.params.ReservationSpread/2
	}
	return bid, ask, nil
}

// Spread 单独暴露价差计算（已按下限截断）。
func (m *Model) Spread(inventory, timeToMaturity float64) float64 {
	_ = inventory // 库存只平移保留价，不改变价差宽度
	return m.optimalSpread(m.horizon(timeToMaturity))
}

// OptimalQuantities 按库存比例倾斜双边报价量。
// ratio 超过 1.0 不截断，限额控制由调用方负责。
func (m *Model) OptimalQuantities(midPrice, inventory, maxInventory, baseQuantity, timeToMaturity float64) (bidQty, askQty float64, err error) {
	if baseQuantity <= 0 {
		return 0, 0, fmt.Errorf("%w: base quantity 必须为正, got %v", ErrInvalidArgument, baseQuantity)
	}
	if maxInventory <= 0 {
		return 0, 0, fmt.Errorf("%w: max inventory 必须为正, got %v", ErrInvalidArgument, maxInventory)
	}

	ratio := math.Abs(inventory) / maxInventory
	switch {
	case inventory > 0:
		bidQty = baseQuantity * (1.0 + ratio*0.5)
		askQty = baseQuantity * (1.0 - ratio*0.5)
	case inventory < 0:
		bidQty = baseQuantity * (1.0 - ratio*0.5)
		askQty = baseQuantity * (1.0 + ratio*0.5)
	default:
		bidQty = baseQuantity
		askQty = baseQuantity
	}

	bidQty = math.Max(0, bidQty)
	askQty = math.Max(0, askQty)

	// 接近库存上限时双边同时减量，线性衰减到 10% 保底，
	// 是软刹车而不是硬停。ratio=1.0 时恰好是 0.6。
	if ratio > 0.8 {
		scale := math.Max(0.1, 1.0-(ratio-0.8)*2.0)
		bidQty *= scale
		askQty *= scale
	}
	return bidQty, askQty, nil
}
