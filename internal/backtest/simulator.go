package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alphatrade/internal/logger"
	"alphatrade/internal/market"
	pkgsymbol "alphatrade/internal/pkg/symbol"
	"alphatrade/internal/profile"
	"alphatrade/internal/store"
)

// SignalSource 把 K 线转成交易信号（典型实现是均线交叉生成器）。
type SignalSource interface {
	Signals(symbol string, candles []market.Candle) ([]SignalRow, error)
}

// Reporter 在回测完成后产出报告文件，返回文件路径。
type Reporter interface {
	Write(runID, symbol string, result *Result) (string, error)
}

// SimulatorConfig 配置 Simulator 的外部依赖。
type SimulatorConfig struct {
	Market   *market.Service
	Runs     *store.RunStore
	Signals  SignalSource
	Reporter Reporter
	Profiles *profile.Loader

	// 默认成本参数，可被请求或 profile 覆盖
	InitialCapital float64
	Slippage       float64
	Commission     float64
	FundingRate    float64
}

// Simulator 负责一次回测的全流程编排：
// 补数 → 取 K 线 → 生成信号 → 引擎重放 → 落库 → 出报告。
type Simulator struct {
	market   *market.Service
	runs     *store.RunStore
	signals  SignalSource
	reporter Reporter
	profiles *profile.Loader
	defaults SimulatorConfig

	mu     sync.RWMutex
	active map[string]*Run

	baseCtx context.Context
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.Market == nil {
		return nil, fmt.Errorf("market service 不能为空")
	}
	if cfg.Runs == nil {
		return nil, fmt.Errorf("run store 不能为空")
	}
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 100000
	}
	return &Simulator{
		market:   cfg.Market,
		runs:     cfg.Runs,
		signals:  cfg.Signals,
		reporter: cfg.Reporter,
		profiles: cfg.Profiles,
		defaults: cfg,
		active:   make(map[string]*Run),
		baseCtx:  context.Background(),
	}, nil
}

// SetContext 注入宿主 ctx，用于任务取消。
func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

// StartRun 校验请求并异步启动回测，立即返回任务快照。
func (s *Simulator) StartRun(req RunRequest) (Run, error) {
	symbol := pkgsymbol.Exchange(req.Symbol)
	if symbol == "" {
		return Run{}, fmt.Errorf("symbol 不能为空")
	}
	cfg := RunConfig{
		Symbol:         symbol,
		Timeframe:      req.Timeframe,
		StartTS:        req.StartTS,
		EndTS:          req.EndTS,
		InitialCapital: req.InitialCapital,
		Slippage:       req.Slippage,
		Commission:     req.Commission,
		FundingRate:    req.FundingRate,
		Profile:        req.Profile,
	}
	s.applyDefaults(&cfg)

	tf, err := market.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return Run{}, err
	}
	start, end := tf.AlignRange(cfg.StartTS, cfg.EndTS)
	if start == end {
		return Run{}, fmt.Errorf("start 与 end 需要构成区间")
	}
	cfg.StartTS = start
	cfg.EndTS = end
	cfg.Timeframe = tf.Key

	now := time.Now()
	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunStatusPending,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.active[run.ID] = run
	s.mu.Unlock()

	if err := s.runs.Create(s.ctx(), run.ID, symbol, tf.Key, RunStatusPending, cfg.InitialCapital, cfg); err != nil {
		return Run{}, err
	}
	logger.Infof("[backtest] 任务 %s 提交：%s %s [%d,%d]", run.ID, symbol, tf.Key, start, end)

	// 先取快照再启动 worker，worker 会立刻开始改写同一个 run
	snapshot := run.copy()
	go s.runSimulation(run.ID, tf, req.Signals)
	return snapshot, nil
}

// applyDefaults 按 profile → 请求 → 全局默认 的顺序补齐配置。
func (s *Simulator) applyDefaults(cfg *RunConfig) {
	if cfg.Profile != "" && s.profiles != nil {
		if def, ok := s.profiles.Get(cfg.Profile); ok {
			if cfg.Timeframe == "" {
				cfg.Timeframe = def.Timeframe
			}
			if cfg.Slippage == 0 {
				cfg.Slippage = def.Engine.Slippage
			}
			if cfg.Commission == 0 {
				cfg.Commission = def.Engine.Commission
			}
			if cfg.FundingRate == 0 {
				cfg.FundingRate = def.Engine.FundingRate
			}
		}
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1h"
	}
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = s.defaults.InitialCapital
	}
	if cfg.Slippage == 0 {
		cfg.Slippage = s.defaults.Slippage
	}
	if cfg.Commission == 0 {
		cfg.Commission = s.defaults.Commission
	}
	if cfg.FundingRate == 0 {
		cfg.FundingRate = s.defaults.FundingRate
	}
}

func (s *Simulator) runSimulation(runID string, tf market.Timeframe, signals []SignalRow) {
	ctx := s.ctx()
	run := s.getRun(runID)
	if run == nil {
		return
	}
	cfg := run.Config
	s.setStatus(runID, RunStatusRunning, "")
	_ = s.runs.UpdateStatus(ctx, runID, RunStatusRunning, "")

	if err := s.ensureData(ctx, cfg, tf); err != nil {
		s.fail(runID, fmt.Sprintf("数据准备失败: %v", err))
		return
	}

	candles, err := s.market.Candles(ctx, cfg.Symbol, cfg.Timeframe, cfg.StartTS, cfg.EndTS)
	if err != nil {
		s.fail(runID, fmt.Sprintf("读取 K 线失败: %v", err))
		return
	}
	if len(candles) == 0 {
		s.fail(runID, "区间内没有 K 线数据")
		return
	}

	if len(signals) == 0 && s.signals != nil {
		signals, err = s.signals.Signals(cfg.Symbol, candles)
		if err != nil {
			s.fail(runID, fmt.Sprintf("信号生成失败: %v", err))
			return
		}
	}
	s.update(runID, func(r *Run) { r.Config.SignalCount = len(signals) })

	engine := NewEngine(EngineConfig{
		Slippage:    cfg.Slippage,
		Commission:  cfg.Commission,
		FundingRate: cfg.FundingRate,
	})
	result, err := engine.Run(PricesFromCandles(cfg.Symbol, candles), signals, cfg.InitialCapital, RunOptions{})
	if err != nil {
		s.fail(runID, fmt.Sprintf("回测执行失败: %v", err))
		return
	}

	summary := store.RunSummary{
		FinalCapital: result.FinalCapital,
		TotalReturn:  result.TotalReturn,
		SharpeRatio:  result.SharpeRatio,
		MaxDrawdown:  result.MaxDrawdown,
		WinRate:      result.WinRate,
		TotalTrades:  result.TotalTrades,
	}
	if err := s.runs.Complete(ctx, runID, summary, result); err != nil {
		logger.Warnf("[backtest] 任务 %s 结果落库失败: %v", runID, err)
	}

	var reportPath string
	if s.reporter != nil {
		reportPath, err = s.reporter.Write(runID, cfg.Symbol, result)
		if err != nil {
			logger.Warnf("[backtest] 任务 %s 报告生成失败: %v", runID, err)
		}
	}

	s.update(runID, func(r *Run) {
		r.Status = RunStatusDone
		r.Message = ""
		r.Result = result
		r.ReportPath = reportPath
		r.UpdatedAt = time.Now()
		r.CompletedAt = time.Now()
	})
	logger.Infof("[backtest] 任务 %s 完成：收益 %.2f%%，成交 %d 笔", runID, result.TotalReturn, result.TotalTrades)
}

// ensureData 先提交补数任务，轮询到终态再继续；
// partial 只告警不中断，缺口由引擎按缺失 tick 自然跳过。
func (s *Simulator) ensureData(ctx context.Context, cfg RunConfig, tf market.Timeframe) error {
	job, err := s.market.SubmitFetch(market.FetchParams{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Start:     cfg.StartTS,
		End:       cfg.EndTS,
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap, ok := s.market.JobSnapshot(job.ID)
		if !ok {
			return fmt.Errorf("补数任务 %s 丢失", job.ID)
		}
		switch snap.Status {
		case market.JobStatusDone:
			return nil
		case market.JobStatusPartial:
			logger.Warnf("[backtest] %s %s 数据仍有缺口 %d 处，按现有数据继续", cfg.Symbol, cfg.Timeframe, len(snap.Missing))
			return nil
		case market.JobStatusFailed:
			return fmt.Errorf("补数失败: %s", snap.Message)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Simulator) ctx() context.Context {
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

func (s *Simulator) getRun(id string) *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[id]
}

func (s *Simulator) update(id string, fn func(*Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.active[id]; ok && fn != nil {
		fn(run)
	}
}

func (s *Simulator) setStatus(id, status, message string) {
	s.update(id, func(r *Run) {
		r.Status = status
		r.Message = message
		r.UpdatedAt = time.Now()
	})
}

func (s *Simulator) fail(id, message string) {
	s.update(id, func(r *Run) {
		r.Status = RunStatusFailed
		r.Message = message
		r.UpdatedAt = time.Now()
		r.CompletedAt = time.Now()
	})
	_ = s.runs.UpdateStatus(s.ctx(), id, RunStatusFailed, message)
	logger.Errorf("[backtest] 任务 %s 失败: %s", id, message)
}

// RunSnapshot 返回任务副本。
func (s *Simulator) RunSnapshot(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.active[id]
	if !ok {
		return Run{}, false
	}
	return run.copy(), true
}

// RunsSnapshot 返回全部任务副本。
func (s *Simulator) RunsSnapshot() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.active))
	for _, run := range s.active {
		out = append(out, run.copy())
	}
	return out
}
