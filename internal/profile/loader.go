package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"alphatrade/internal/logger"
	"alphatrade/internal/pkg/symbol"
	"alphatrade/internal/quote"
)

// QuoteSection 对应报价模型的五个参数。
type QuoteSection struct {
	RiskAversion      float64 `mapstructure:"risk_aversion" yaml:"risk_aversion"`
	Volatility        float64 `mapstructure:"volatility" yaml:"volatility"`
	ArrivalRate       float64 `mapstructure:"arrival_rate" yaml:"arrival_rate"`
	ReservationSpread float64 `mapstructure:"reservation_spread" yaml:"reservation_spread"`
	TimeHorizon       float64 `mapstructure:"time_horizon" yaml:"time_horizon"`
}

// EngineSection 对应回测引擎的成本参数。
type EngineSection struct {
	Slippage    float64 `mapstructure:"slippage" yaml:"slippage"`
	Commission  float64 `mapstructure:"commission" yaml:"commission"`
	FundingRate float64 `mapstructure:"funding_rate" yaml:"funding_rate"`
}

// Definition 是一套完整的做市参数档案。
type Definition struct {
	Name      string   `mapstructure:"-" yaml:"-"`
	Symbols   []string `mapstructure:"symbols" yaml:"symbols"`
	Timeframe string   `mapstructure:"timeframe" yaml:"timeframe"`

	Quote  QuoteSection  `mapstructure:"quote" yaml:"quote"`
	Engine EngineSection `mapstructure:"engine" yaml:"engine"`

	MaxInventory     float64 `mapstructure:"max_inventory" yaml:"max_inventory"`
	BaseQuantity     float64 `mapstructure:"base_quantity" yaml:"base_quantity"`
	WarningThreshold float64 `mapstructure:"warning_threshold" yaml:"warning_threshold"`
	MinSpreadChange  float64 `mapstructure:"min_spread_change" yaml:"min_spread_change"`

	Default bool `mapstructure:"default" yaml:"default"`

	symbolsUpper []string
}

// QuoteParams 转换为报价模型参数。
func (d Definition) QuoteParams() quote.Params {
	return quote.Params{
		RiskAversion:      d.Quote.RiskAversion,
		Volatility:        d.Quote.Volatility,
		ArrivalRate:       d.Quote.ArrivalRate,
		ReservationSpread: d.Quote.ReservationSpread,
		TimeHorizon:       d.Quote.TimeHorizon,
	}
}

// SymbolsUpper 返回标准化后的交易对列表。
func (d Definition) SymbolsUpper() []string {
	out := make([]string, len(d.symbolsUpper))
	copy(out, d.symbolsUpper)
	return out
}

// FileConfig 是 profile 配置文件的根结构。
type FileConfig struct {
	Profiles map[string]Definition `mapstructure:"profiles" yaml:"profiles"`
}

// Snapshot 是对外暴露的只读快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Definition
}

// Default 返回标记为 default 的档案；没有标记时返回 ok=false。
func (s Snapshot) Default() (Definition, bool) {
	for _, def := range s.Profiles {
		if def.Default {
			return def, true
		}
	}
	return Definition{}, false
}

// ChangeListener 在配置热更新后被调用。
type ChangeListener func(Snapshot)

// Loader 从 YAML 文件加载做市档案并监听热更新。
type Loader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewLoader 读取配置文件并开始监听 FS 事件。
func NewLoader(path string) (*Loader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile loader 需要文件路径")
	}
	if err := validateStrict(path); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取 profile 配置失败: %w", err)
	}
	loader := &Loader{path: path, v: v}
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("profile 热更新失败 (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// validateStrict 用严格模式解析一遍，未知字段直接报错。
func validateStrict(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取 profile 文件失败: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fmt.Errorf("profile 含未知或非法字段: %w", err)
	}
	return nil
}

// Snapshot 返回当前快照（浅拷贝 map）。
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Get 按名字取档案。
func (l *Loader) Get(name string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.snapshot.Profiles[name]
	return def, ok
}

// Subscribe 注册监听器，并立即异步收到一次完整快照。
func (l *Loader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("profile listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *Loader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("profile listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *Loader) reload() error {
	var fileCfg FileConfig
	if err := l.v.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("解析 profile 配置失败: %w", err)
	}
	normalized := make(map[string]Definition, len(fileCfg.Profiles))
	for name, def := range fileCfg.Profiles {
		normalized[name] = normalizeDefinition(name, def)
	}
	l.mu.Lock()
	l.snapshot = Snapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: normalized,
	}
	l.mu.Unlock()
	logger.Infof("profile loader 从 %s 加载 %d 个档案", filepath.Base(l.path), len(normalized))
	return nil
}

func normalizeDefinition(name string, def Definition) Definition {
	def.Name = name
	def.Timeframe = strings.ToLower(strings.TrimSpace(def.Timeframe))
	if def.Timeframe == "" {
		def.Timeframe = "1h"
	}
	if def.Quote.TimeHorizon <= 0 {
		def.Quote.TimeHorizon = 1.0
	}
	if def.WarningThreshold <= 0 {
		def.WarningThreshold = 0.8
	}
	if def.MinSpreadChange <= 0 {
		def.MinSpreadChange = 0.001
	}
	def.symbolsUpper = normalizeSymbols(def.Symbols)
	return def
}

func normalizeSymbols(in []string) []string {
	return symbol.NormalizeList(in)
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Definition, len(src.Profiles)),
	}
	for name, def := range src.Profiles {
		dst.Profiles[name] = def
	}
	return dst
}
