package app

import (
	"context"
	"os"
	"path/filepath"

	"alphatrade/internal/backtest"
	"alphatrade/internal/logger"
	"alphatrade/internal/market"
	"alphatrade/internal/report"
	"alphatrade/internal/signal"
)

// generatorSource 把内置均线生成器适配为回测的信号源。
type generatorSource struct {
	gen *signal.Generator
}

func (g *generatorSource) Signals(symbol string, candles []market.Candle) ([]backtest.SignalRow, error) {
	return g.gen.Generate(symbol, candles), nil
}

// htmlReporter 在回测结束后写 HTML 报告，按需追加 PNG 截图。
type htmlReporter struct {
	dir string
	png bool
}

func (r *htmlReporter) Write(runID, symbol string, result *backtest.Result) (string, error) {
	input := report.Input{RunID: runID, Symbol: symbol, Result: result}
	path, err := report.WriteHTML(input, r.dir)
	if err != nil {
		return "", err
	}
	if r.png {
		// PNG 依赖 headless chrome，缺环境时降级为仅 HTML
		img, err := report.RenderPNG(context.Background(), input)
		if err != nil {
			logger.Warnf("[report] PNG 渲染失败，保留 HTML：%v", err)
			return path, nil
		}
		pngPath := filepath.Join(r.dir, img.Filename)
		if err := os.WriteFile(pngPath, img.Bytes, 0o644); err != nil {
			logger.Warnf("[report] PNG 写盘失败：%v", err)
		}
	}
	return path, nil
}
