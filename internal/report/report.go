package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"alphatrade/internal/backtest"
)

const (
	colorBackground = "#060c1b"
	colorPrimary    = "#eceff4"
	colorSecondary  = "#9ca3af"
	colorEquity     = "#3b82f6"
	colorDrawdown   = "#f87171"
	colorWin        = "#34d399"

	chartWidthPx  = 1400
	chartHeightPx = 420
)

// Input 是渲染一份回测报告所需的全部内容。
type Input struct {
	RunID  string
	Symbol string
	Result *backtest.Result
}

// ImageResult 是渲染出的 PNG 截图。
type ImageResult struct {
	Bytes    []byte `json:"-"`
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
}

func (r *ImageResult) DataURI() string {
	if r == nil || len(r.Bytes) == 0 {
		return ""
	}
	if r.Base64 == "" {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	return "data:image/png;base64," + r.Base64
}

// BuildHTML 生成资金曲线 + 回撤 + 单笔盈亏三联图。
func BuildHTML(input Input) ([]byte, error) {
	if input.Result == nil {
		return nil, fmt.Errorf("result 不能为空")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		buildEquityChart(input),
		buildDrawdownChart(input.Result.EquityCurve),
	)
	if len(input.Result.Trades) > 0 {
		page.AddCharts(buildTradeChart(input.Result.Trades))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML 把报告写到目标目录，返回文件路径。
func WriteHTML(input Input, dir string) (string, error) {
	html, err := BuildHTML(input)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.html", input.RunID))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func buildEquityChart(input Input) *charts.Line {
	result := input.Result
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s 资金曲线", strings.ToUpper(input.Symbol)),
			Subtitle: fmt.Sprintf("收益 %.2f%%  夏普 %.2f  最大回撤 %.2f%%  胜率 %.2f%%",
				result.TotalReturn, result.SharpeRatio, result.MaxDrawdown, result.WinRate),
			TitleStyle:    &opts.TextStyle{Color: colorPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorSecondary},
		}),
	)
	xAxis := make([]string, len(result.EquityCurve))
	data := make([]opts.LineData, len(result.EquityCurve))
	for i, v := range result.EquityCurve {
		xAxis[i] = fmt.Sprintf("%d", i)
		data[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("equity", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildDrawdownChart(equity []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "回撤", TitleStyle: &opts.TextStyle{Color: colorPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Color: colorSecondary}}),
	)
	xAxis := make([]string, len(equity))
	data := make([]opts.LineData, len(equity))
	runningMax := 0.0
	for i, v := range equity {
		if v > runningMax {
			runningMax = v
		}
		dd := 0.0
		if runningMax != 0 {
			dd = (v - runningMax) / runningMax * 100
		}
		xAxis[i] = fmt.Sprintf("%d", i)
		data[i] = opts.LineData{Value: dd}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("drawdown %", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorDrawdown, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildTradeChart(trades []backtest.TradeRecord) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "单笔盈亏", TitleStyle: &opts.TextStyle{Color: colorPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{AxisLabel: &opts.AxisLabel{Color: colorSecondary}}),
	)
	xAxis := make([]string, len(trades))
	data := make([]opts.BarData, len(trades))
	for i, t := range trades {
		xAxis[i] = t.Timestamp.Format("01-02 15:04")
		color := colorWin
		if t.PnL < 0 {
			color = colorDrawdown
		}
		data[i] = opts.BarData{Value: t.PnL, ItemStyle: &opts.ItemStyle{Color: color}}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("pnl", data)
	return bar
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable 探测 headless chrome 是否可用，只探测一次。
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// RenderPNG 用 headless chrome 把报告页截成 PNG。
func RenderPNG(ctx context.Context, input Input) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return ImageResult{}, err
	}
	html, err := BuildHTML(input)
	if err != nil {
		return ImageResult{}, err
	}
	png, err := renderHTMLToPNG(ctx, html, chartWidthPx, 3*chartHeightPx)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:    png,
		Base64:   base64.StdEncoding.EncodeToString(png),
		Filename: fmt.Sprintf("%s_report.png", input.RunID),
	}, nil
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 90),
	}
	if err := chromedp.Run(timeoutCtx, tasks); err != nil {
		return nil, err
	}
	return screenshot, nil
}
