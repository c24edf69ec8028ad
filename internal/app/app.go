package app

import (
	"context"
	"fmt"

	"alphatrade/internal/backtest"
	"alphatrade/internal/config"
	"alphatrade/internal/logger"
	"alphatrade/internal/market"
	"alphatrade/internal/profile"
	"alphatrade/internal/store"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务与回测编排器。
type App struct {
	cfg       *config.Config
	candles   *market.Store
	market    *market.Service
	runs      *store.RunStore
	profiles  *profile.Loader
	simulator *backtest.Simulator
	http      *backtest.HTTPServer
	Summary   *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务并阻塞到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	// 后台任务共享宿主 ctx，取消时一并停止
	a.market.SetContext(ctx)
	a.simulator.SetContext(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		a.Close()
		return nil
	})
	return group.Wait()
}

// Close 释放数据库句柄等资源。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.candles != nil {
		if err := a.candles.Close(); err != nil {
			logger.Warnf("[app] 关闭行情库失败：%v", err)
		}
	}
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			logger.Warnf("[app] 关闭回测库失败：%v", err)
		}
	}
}

// Simulator 暴露回测编排器（回放与测试用）。
func (a *App) Simulator() *backtest.Simulator {
	if a == nil {
		return nil
	}
	return a.simulator
}

// HTTPServer 暴露 HTTP 服务实例（测试用）。
func (a *App) HTTPServer() *backtest.HTTPServer {
	if a == nil {
		return nil
	}
	return a.http
}
