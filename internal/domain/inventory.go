package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Inventory 记录某资产的库存余额。余额运算使用 decimal，
// 避免充提/划转链路上的浮点误差。
type Inventory struct {
	Asset     string          `json:"asset"`
	Chain     string          `json:"chain"`
	Free      decimal.Decimal `json:"free"`
	Locked    decimal.Decimal `json:"locked"`
	Timestamp time.Time       `json:"timestamp"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}

func NewInventory(asset, chain string) *Inventory {
	return &Inventory{
		Asset:     asset,
		Chain:     chain,
		Timestamp: time.Now().UTC(),
	}
}

// Total 返回 free+locked。
func (i *Inventory) Total() decimal.Decimal {
	return i.Free.Add(i.Locked)
}

func (i *Inventory) Available() decimal.Decimal { return i.Free }

func (i *Inventory) IsPositive() bool {
	return i.Total().IsPositive()
}

// Deposit 增加可用余额。
func (i *Inventory) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("入账金额必须为正: %s", amount)
	}
	i.Free = i.Free.Add(amount)
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw 扣减可用余额，余额不足时报错。
func (i *Inventory) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("出账金额必须为正: %s", amount)
	}
	if i.Free.LessThan(amount) {
		return fmt.Errorf("%s 可用余额不足: %s < %s", i.Asset, i.Free, amount)
	}
	i.Free = i.Free.Sub(amount)
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Lock 把可用余额转为挂单占用。
func (i *Inventory) Lock(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("锁定金额必须为正: %s", amount)
	}
	if i.Free.LessThan(amount) {
		return fmt.Errorf("%s 可用余额不足以锁定: %s < %s", i.Asset, i.Free, amount)
	}
	i.Free = i.Free.Sub(amount)
	i.Locked = i.Locked.Add(amount)
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Unlock 释放挂单占用。
func (i *Inventory) Unlock(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("解锁金额必须为正: %s", amount)
	}
	if i.Locked.LessThan(amount) {
		return fmt.Errorf("%s 锁定余额不足以解锁: %s < %s", i.Asset, i.Locked, amount)
	}
	i.Locked = i.Locked.Sub(amount)
	i.Free = i.Free.Add(amount)
	i.UpdatedAt = time.Now().UTC()
	return nil
}
