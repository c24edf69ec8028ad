package market

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"

	"alphatrade/internal/pkg/convert"
)

// FetchRequest 描述一次远端 K 线请求，时间为 Unix 毫秒。
type FetchRequest struct {
	Symbol   string
	Interval string
	Start    int64
	End      int64 // 0 表示不限制
	Limit    int
}

// CandleSource 统一不同交易所/数据源的拉取行为。
type CandleSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Candle, error)
	Name() string
}

// BinanceSource 基于 Binance USDT 本位合约的 K 线接口。
type BinanceSource struct {
	client *futures.Client
}

func NewBinanceSource(apiKey, secretKey string) *BinanceSource {
	return &BinanceSource{client: futures.NewClient(apiKey, secretKey)}
}

func (b *BinanceSource) Name() string { return "binance" }

func (b *BinanceSource) Fetch(ctx context.Context, req FetchRequest) ([]Candle, error) {
	if req.Symbol == "" || req.Interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > 1500 {
		limit = 1000
	}
	svc := b.client.NewKlinesService().
		Symbol(req.Symbol).
		Interval(req.Interval).
		Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance 拉取失败: %w", err)
	}
	out := make([]Candle, 0, len(klines))
	for _, k := range klines {
		out = append(out, Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      convert.ToFloat64(k.Open),
			High:      convert.ToFloat64(k.High),
			Low:       convert.ToFloat64(k.Low),
			Close:     convert.ToFloat64(k.Close),
			Volume:    convert.ToFloat64(k.Volume),
			Trades:    k.TradeNum,
		})
	}
	return out, nil
}
