package domain

import (
	"fmt"
	"math"
	"time"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// ParseSide 校验 side 字面量（大小写敏感，与交易所一致）。
func ParseSide(s string) (OrderSide, error) {
	switch OrderSide(s) {
	case SideBuy, SideSell:
		return OrderSide(s), nil
	default:
		return "", fmt.Errorf("无效的 side: %q", s)
	}
}

type OrderType string

const (
	TypeMarket    OrderType = "MARKET"
	TypeLimit     OrderType = "LIMIT"
	TypeStop      OrderType = "STOP"
	TypeStopLimit OrderType = "STOP_LIMIT"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusOpen            OrderStatus = "OPEN"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// Order 表示一张交易所订单。
type Order struct {
	ID               string      `json:"id"`
	ClientOrderID    string      `json:"client_order_id,omitempty"`
	Symbol           string      `json:"symbol"`
	Side             OrderSide   `json:"side"`
	Type             OrderType   `json:"type"`
	Status           OrderStatus `json:"status"`
	Price            float64     `json:"price,omitempty"`
	Quantity         float64     `json:"quantity"`
	FilledQuantity   float64     `json:"filled_quantity"`
	AverageFillPrice float64     `json:"average_fill_price,omitempty"`
	ReduceOnly       bool        `json:"reduce_only"`
	PostOnly         bool        `json:"post_only"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at,omitempty"`
}

// IsOpen 判断订单是否仍可能成交。
func (o *Order) IsOpen() bool {
	switch o.Status {
	case StatusPending, StatusOpen, StatusPartiallyFilled:
		return true
	}
	return false
}

func (o *Order) IsFilled() bool    { return o.Status == StatusFilled }
func (o *Order) IsCancelled() bool { return o.Status == StatusCancelled }

// RemainingQuantity 返回未成交数量（不为负）。
func (o *Order) RemainingQuantity() float64 {
	return math.Max(0, o.Quantity-o.FilledQuantity)
}

// Fill 累计一笔成交并推进状态，均价按成交量加权。
func (o *Order) Fill(qty, price float64) error {
	if qty <= 0 || price <= 0 {
		return fmt.Errorf("成交数量/价格必须为正: qty=%v price=%v", qty, price)
	}
	if !o.IsOpen() {
		return fmt.Errorf("订单 %s 状态 %s 不可成交", o.ID, o.Status)
	}
	filled := o.FilledQuantity + qty
	if filled > o.Quantity+FlatEpsilon {
		return fmt.Errorf("订单 %s 成交超量: %v > %v", o.ID, filled, o.Quantity)
	}
	if o.FilledQuantity > 0 {
		o.AverageFillPrice = (o.AverageFillPrice*o.FilledQuantity + price*qty) / filled
	} else {
		o.AverageFillPrice = price
	}
	o.FilledQuantity = filled
	if o.RemainingQuantity() < FlatEpsilon {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel 取消未完全成交的订单。
func (o *Order) Cancel() error {
	if !o.IsOpen() {
		return fmt.Errorf("订单 %s 状态 %s 不可取消", o.ID, o.Status)
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}
