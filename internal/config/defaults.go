package config

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppHTTPAddr  = ":9991"
	defaultProfilesPath = "configs/profiles.yaml"

	defaultDataRoot     = "/data/candles"
	defaultRunDB        = "/data/db/backtest_runs.db"
	defaultExchange     = "binance"
	defaultRatePerMin   = 480
	defaultMaxBatch     = 1000
	defaultMaxConc      = 2
	defaultInitCapital  = 100000
	defaultTimeHorizon  = 1.0
	defaultWarnThresh   = 0.8
	defaultSpreadChange = 0.001
	defaultSignalKind   = "sma"
	defaultSignalFast   = 10
	defaultSignalSlow   = 30
	defaultSignalQty    = 1.0
	defaultReportDir    = "/data/reports"
)

// applyDefaults 为未设置的字段补默认值。
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.App.ProfilesPath == "" {
		c.App.ProfilesPath = defaultProfilesPath
	}
	if c.Data.Root == "" {
		c.Data.Root = defaultDataRoot
	}
	if c.Data.RunDB == "" {
		c.Data.RunDB = defaultRunDB
	}
	if c.Data.DefaultExchange == "" {
		c.Data.DefaultExchange = defaultExchange
	}
	if c.Data.RateLimitPerMin <= 0 {
		c.Data.RateLimitPerMin = defaultRatePerMin
	}
	if c.Data.MaxBatch <= 0 {
		c.Data.MaxBatch = defaultMaxBatch
	}
	if c.Data.MaxConcurrent <= 0 {
		c.Data.MaxConcurrent = defaultMaxConc
	}
	if c.Engine.InitialCapital <= 0 {
		c.Engine.InitialCapital = defaultInitCapital
	}
	if c.Quote.TimeHorizon <= 0 {
		c.Quote.TimeHorizon = defaultTimeHorizon
	}
	if c.Maker.WarningThreshold <= 0 {
		c.Maker.WarningThreshold = defaultWarnThresh
	}
	if c.Maker.MinSpreadChange <= 0 {
		c.Maker.MinSpreadChange = defaultSpreadChange
	}
	if c.Signal.Kind == "" {
		c.Signal.Kind = defaultSignalKind
	}
	if c.Signal.Fast <= 0 {
		c.Signal.Fast = defaultSignalFast
	}
	if c.Signal.Slow <= 0 {
		c.Signal.Slow = defaultSignalSlow
	}
	if c.Signal.Quantity <= 0 {
		c.Signal.Quantity = defaultSignalQty
	}
	if c.Report.Dir == "" {
		c.Report.Dir = defaultReportDir
	}
}
