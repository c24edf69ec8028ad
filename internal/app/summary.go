package app

import (
	"fmt"
	"sort"
	"strings"

	"alphatrade/internal/config"
	"alphatrade/internal/profile"
)

// StartupSummary 汇总启动时的关键配置，便于一眼核对环境。
type StartupSummary struct {
	Env      string
	HTTPAddr string
	DataRoot string
	RunDB    string
	Exchange string
	Signal   SignalSummary
	Profiles []ProfileSummary
	Report   ReportSummary
}

type SignalSummary struct {
	Kind     string
	Fast     int
	Slow     int
	Quantity float64
}

type ProfileSummary struct {
	Name      string
	Symbols   []string
	Timeframe string
	Default   bool
}

type ReportSummary struct {
	Enabled bool
	Dir     string
	PNG     bool
}

func buildStartupSummary(cfg *config.Config, profiles *profile.Loader) *StartupSummary {
	s := &StartupSummary{
		Env:      cfg.App.Env,
		HTTPAddr: cfg.App.HTTPAddr,
		DataRoot: cfg.Data.Root,
		RunDB:    cfg.Data.RunDB,
		Exchange: cfg.Data.DefaultExchange,
		Signal: SignalSummary{
			Kind:     cfg.Signal.Kind,
			Fast:     cfg.Signal.Fast,
			Slow:     cfg.Signal.Slow,
			Quantity: cfg.Signal.Quantity,
		},
		Report: ReportSummary{
			Enabled: cfg.Report.Enabled,
			Dir:     cfg.Report.Dir,
			PNG:     cfg.Report.PNG,
		},
	}
	if profiles != nil {
		snap := profiles.Snapshot()
		names := make([]string, 0, len(snap.Profiles))
		for name := range snap.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			def := snap.Profiles[name]
			s.Profiles = append(s.Profiles, ProfileSummary{
				Name:      name,
				Symbols:   def.SymbolsUpper(),
				Timeframe: def.Timeframe,
				Default:   def.Default,
			})
		}
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[运行环境 (RUNTIME)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  HTTP 地址: %s\n", s.HTTPAddr)
	fmt.Printf("  行情库: %s\n", s.DataRoot)
	fmt.Printf("  回测库: %s\n", s.RunDB)
	fmt.Printf("  默认交易所: %s\n", s.Exchange)
	fmt.Println()

	fmt.Println("[信号源 (SIGNAL SOURCE)]")
	fmt.Printf("  类型: %s 交叉\n", strings.ToUpper(s.Signal.Kind))
	fmt.Printf("  快/慢周期: %d / %d\n", s.Signal.Fast, s.Signal.Slow)
	fmt.Printf("  默认数量: %g\n", s.Signal.Quantity)
	fmt.Println()

	fmt.Println("[做市档案 (MAKER PROFILES)]")
	if len(s.Profiles) == 0 {
		fmt.Println("  (未加载)")
	} else {
		for _, p := range s.Profiles {
			mark := ""
			if p.Default {
				mark = " (default)"
			}
			fmt.Printf("  - %s%s: %s @ %s\n", p.Name, mark, formatList(p.Symbols), p.Timeframe)
		}
	}
	fmt.Println()

	fmt.Println("[报告输出 (REPORTS)]")
	if s.Report.Enabled {
		fmt.Printf("  目录: %s（PNG=%v）\n", s.Report.Dir, s.Report.PNG)
	} else {
		fmt.Println("  已关闭")
	}
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
