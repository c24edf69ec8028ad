package signal

import (
	"fmt"
	"strconv"

	talib "github.com/markcheno/go-talib"

	"alphatrade/internal/backtest"
	"alphatrade/internal/market"
)

// GeneratorConfig 配置均线交叉信号。
type GeneratorConfig struct {
	Kind     string  `json:"kind"`     // sma | ema
	Fast     int     `json:"fast"`     // 快线周期
	Slow     int     `json:"slow"`     // 慢线周期
	Quantity float64 `json:"quantity"` // 每个信号的下单数量
}

// Generator 基于快慢均线交叉产出 BUY/SELL 信号：
// 上穿买入、下穿卖出，慢线暖机区间内不出信号。
type Generator struct {
	cfg GeneratorConfig
}

func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Kind == "" {
		cfg.Kind = "sma"
	}
	if cfg.Kind != "sma" && cfg.Kind != "ema" {
		return nil, fmt.Errorf("不支持的均线类型: %s", cfg.Kind)
	}
	if cfg.Fast <= 0 || cfg.Slow <= 0 || cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("快慢周期非法: fast=%d slow=%d", cfg.Fast, cfg.Slow)
	}
	if cfg.Quantity <= 0 {
		return nil, fmt.Errorf("quantity 需 > 0")
	}
	return &Generator{cfg: cfg}, nil
}

// Generate 对单个 symbol 的 K 线序列计算交叉信号。
func (g *Generator) Generate(symbol string, candles []market.Candle) []backtest.SignalRow {
	if len(candles) <= g.cfg.Slow {
		return nil
	}
	closes := market.Candles(candles).Closes()

	var fast, slow []float64
	switch g.cfg.Kind {
	case "ema":
		fast = talib.Ema(closes, g.cfg.Fast)
		slow = talib.Ema(closes, g.cfg.Slow)
	default:
		fast = talib.Sma(closes, g.cfg.Fast)
		slow = talib.Sma(closes, g.cfg.Slow)
	}

	var out []backtest.SignalRow
	for i := g.cfg.Slow; i < len(closes); i++ {
		crossUp := fast[i-1] <= slow[i-1] && fast[i] > slow[i]
		crossDown := fast[i-1] >= slow[i-1] && fast[i] < slow[i]
		if !crossUp && !crossDown {
			continue
		}
		side := "BUY"
		if crossDown {
			side = "SELL"
		}
		ts := candles[i].CloseTime
		if ts == 0 {
			ts = candles[i].OpenTime
		}
		out = append(out, backtest.SignalRow{
			Timestamp: strconv.FormatInt(ts, 10),
			Symbol:    symbol,
			Side:      side,
			Quantity:  g.cfg.Quantity,
		})
	}
	return out
}
