package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferInitiated TransferStatus = "INITIATED"
	TransferConfirmed TransferStatus = "CONFIRMED"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferFailed    TransferStatus = "FAILED"
)

// Transfer 表示一次链间资产划转。
type Transfer struct {
	ID          string          `json:"id"`
	FromChain   string          `json:"from_chain"`
	ToChain     string          `json:"to_chain"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Status      TransferStatus  `json:"status"`
	TxHash      string          `json:"tx_hash,omitempty"`
	BlockNumber int64           `json:"block_number,omitempty"`
	GasFee      decimal.Decimal `json:"gas_fee,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ConfirmedAt time.Time       `json:"confirmed_at,omitempty"`
	CompletedAt time.Time       `json:"completed_at,omitempty"`
}

func NewTransfer(id, fromChain, toChain, asset string, amount decimal.Decimal) (*Transfer, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("划转金额必须为正: %s", amount)
	}
	return &Transfer{
		ID:        id,
		FromChain: fromChain,
		ToChain:   toChain,
		Asset:     asset,
		Amount:    amount,
		Status:    TransferPending,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (t *Transfer) IsCompleted() bool { return t.Status == TransferCompleted }
func (t *Transfer) IsFailed() bool    { return t.Status == TransferFailed }

// IsPending 包含尚未终态的所有状态。
func (t *Transfer) IsPending() bool {
	switch t.Status {
	case TransferPending, TransferInitiated, TransferConfirmed:
		return true
	}
	return false
}

// advance 定义合法的状态流转，终态不可再变。
func (t *Transfer) advance(next TransferStatus) error {
	if !t.IsPending() {
		return fmt.Errorf("划转 %s 已处于终态 %s", t.ID, t.Status)
	}
	t.Status = next
	return nil
}

func (t *Transfer) MarkInitiated(txHash string) error {
	if err := t.advance(TransferInitiated); err != nil {
		return err
	}
	t.TxHash = txHash
	return nil
}

func (t *Transfer) MarkConfirmed(blockNumber int64) error {
	if err := t.advance(TransferConfirmed); err != nil {
		return err
	}
	t.BlockNumber = blockNumber
	t.ConfirmedAt = time.Now().UTC()
	return nil
}

func (t *Transfer) MarkCompleted() error {
	if err := t.advance(TransferCompleted); err != nil {
		return err
	}
	t.CompletedAt = time.Now().UTC()
	return nil
}

func (t *Transfer) MarkFailed() error {
	return t.advance(TransferFailed)
}
