package app

import (
	"context"
	"fmt"

	"alphatrade/internal/backtest"
	"alphatrade/internal/config"
	"alphatrade/internal/logger"
	"alphatrade/internal/market"
	"alphatrade/internal/profile"
	"alphatrade/internal/signal"
	"alphatrade/internal/store"
)

// MarketStack 捆绑行情相关的组件，便于整体替换（测试用）。
type MarketStack struct {
	Store   *market.Store
	Service *market.Service
}

// AppBuilder 按依赖顺序组装应用；各构建函数可被测试覆盖。
type AppBuilder struct {
	cfg *config.Config

	marketStackFn func(*config.Config) (*MarketStack, error)
	runStoreFn    func(*config.Config) (*store.RunStore, error)
	profilesFn    func(*config.Config) (*profile.Loader, error)

	signalOverride   backtest.SignalSource
	reporterOverride backtest.Reporter
}

type AppBuilderOption func(*AppBuilder)

// WithSignalSource 覆盖默认的均线信号源。
func WithSignalSource(src backtest.SignalSource) AppBuilderOption {
	return func(b *AppBuilder) { b.signalOverride = src }
}

// WithReporter 覆盖默认的报告输出。
func WithReporter(r backtest.Reporter) AppBuilderOption {
	return func(b *AppBuilder) { b.reporterOverride = r }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		marketStackFn: buildMarketStack,
		runStoreFn:    buildRunStore,
		profilesFn:    buildProfileLoader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	marketStack, err := b.marketStackFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化行情栈失败: %w", err)
	}
	runs, err := b.runStoreFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化回测库失败: %w", err)
	}

	profiles, err := b.profilesFn(cfg)
	if err != nil {
		// profiles 文件缺失不阻断启动：请求仍可携带完整参数
		logger.Warnf("[app] 做市档案加载失败，热更新不可用：%v", err)
		profiles = nil
	}
	if profiles != nil {
		snap := profiles.Snapshot()
		logger.Infof("✓ 已加载 %d 个做市档案（版本 %d）", len(snap.Profiles), snap.Version)
		profiles.Subscribe(func(s profile.Snapshot) {
			logger.Infof("[profiles] 热更新生效：%d 个档案（版本 %d）", len(s.Profiles), s.Version)
		})
	}

	signals := b.signalOverride
	if signals == nil {
		gen, err := signal.NewGenerator(signal.GeneratorConfig{
			Kind:     cfg.Signal.Kind,
			Fast:     cfg.Signal.Fast,
			Slow:     cfg.Signal.Slow,
			Quantity: cfg.Signal.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化信号源失败: %w", err)
		}
		signals = &generatorSource{gen: gen}
	}

	reporter := b.reporterOverride
	if reporter == nil && cfg.Report.Enabled {
		reporter = &htmlReporter{dir: cfg.Report.Dir, png: cfg.Report.PNG}
	}

	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		Market:         marketStack.Service,
		Runs:           runs,
		Signals:        signals,
		Reporter:       reporter,
		Profiles:       profiles,
		InitialCapital: cfg.Engine.InitialCapital,
		Slippage:       cfg.Engine.Slippage,
		Commission:     cfg.Engine.Commission,
		FundingRate:    cfg.Engine.FundingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化回测编排器失败: %w", err)
	}

	httpSrv, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:      cfg.App.HTTPAddr,
		Market:    marketStack.Service,
		Simulator: sim,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	app := &App{
		cfg:       cfg,
		candles:   marketStack.Store,
		market:    marketStack.Service,
		runs:      runs,
		profiles:  profiles,
		simulator: sim,
		http:      httpSrv,
		Summary:   buildStartupSummary(cfg, profiles),
	}
	return app, nil
}

func buildMarketStack(cfg *config.Config) (*MarketStack, error) {
	candleStore, err := market.NewStore(cfg.Data.Root)
	if err != nil {
		return nil, err
	}
	sources := map[string]market.CandleSource{
		"binance": market.NewBinanceSource(cfg.Binance.APIKey, cfg.Binance.SecretKey),
	}
	svc, err := market.NewService(market.ServiceConfig{
		Store:           candleStore,
		Sources:         sources,
		DefaultExchange: cfg.Data.DefaultExchange,
		RateLimitPerMin: cfg.Data.RateLimitPerMin,
		MaxBatch:        cfg.Data.MaxBatch,
		MaxConcurrent:   cfg.Data.MaxConcurrent,
	})
	if err != nil {
		candleStore.Close()
		return nil, err
	}
	return &MarketStack{Store: candleStore, Service: svc}, nil
}

func buildRunStore(cfg *config.Config) (*store.RunStore, error) {
	return store.NewRunStore(cfg.Data.RunDB)
}

func buildProfileLoader(cfg *config.Config) (*profile.Loader, error) {
	return profile.NewLoader(cfg.App.ProfilesPath)
}
