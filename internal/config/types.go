package config

// Config 是 alphatrade 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Data    DataConfig    `toml:"data"`
	Binance BinanceConfig `toml:"binance"`
	Engine  EngineConfig  `toml:"engine"`
	Quote   QuoteConfig   `toml:"quote"`
	Maker   MakerConfig   `toml:"maker"`
	Signal  SignalConfig  `toml:"signal"`
	Report  ReportConfig  `toml:"report"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	// ProfilesPath 指向做市参数档案文件（YAML，支持热更新）
	ProfilesPath string `toml:"profiles_path"`
}

// DataConfig 控制本地行情库与补数行为。
type DataConfig struct {
	Root            string `toml:"root"`
	RunDB           string `toml:"run_db"`
	DefaultExchange string `toml:"default_exchange"`
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
	MaxBatch        int    `toml:"max_batch"`
	MaxConcurrent   int    `toml:"max_concurrent"`
}

type BinanceConfig struct {
	APIKey    string `toml:"api_key"`
	SecretKey string `toml:"secret_key"`
}

// EngineConfig 是回测引擎的默认成本参数，可被请求覆盖。
type EngineConfig struct {
	InitialCapital float64 `toml:"initial_capital"`
	Slippage       float64 `toml:"slippage"`
	Commission     float64 `toml:"commission"`
	FundingRate    float64 `toml:"funding_rate"`
}

// QuoteConfig 是报价模型的默认参数。
type QuoteConfig struct {
	RiskAversion      float64 `toml:"risk_aversion"`
	Volatility        float64 `toml:"volatility"`
	ArrivalRate       float64 `toml:"arrival_rate"`
	ReservationSpread float64 `toml:"reservation_spread"`
	TimeHorizon       float64 `toml:"time_horizon"`
}

// MakerConfig 是做市策略的库存与重报价阈值。
type MakerConfig struct {
	MaxInventory     float64 `toml:"max_inventory"`
	BaseQuantity     float64 `toml:"base_quantity"`
	WarningThreshold float64 `toml:"warning_threshold"`
	MinSpreadChange  float64 `toml:"min_spread_change"`
}

// SignalConfig 控制内置均线交叉信号源。
type SignalConfig struct {
	Kind     string  `toml:"kind"`
	Fast     int     `toml:"fast"`
	Slow     int     `toml:"slow"`
	Quantity float64 `toml:"quantity"`
}

// ReportConfig 控制回测报告输出。
type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	PNG     bool   `toml:"png"`
}
