package config

import "fmt"

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Engine.validate(); err != nil {
		return err
	}
	if err := c.Quote.validate(); err != nil {
		return err
	}
	if err := c.Maker.validate(); err != nil {
		return err
	}
	if err := c.Signal.validate(); err != nil {
		return err
	}
	return nil
}

func (e *EngineConfig) validate() error {
	if e.Slippage < 0 {
		return fmt.Errorf("engine.slippage must be >= 0")
	}
	if e.Commission < 0 {
		return fmt.Errorf("engine.commission must be >= 0")
	}
	return nil
}

func (q *QuoteConfig) validate() error {
	// 报价参数允许整组缺省（纯回测模式不用报价模型）
	if q.RiskAversion == 0 && q.Volatility == 0 && q.ArrivalRate == 0 && q.ReservationSpread == 0 {
		return nil
	}
	if q.RiskAversion <= 0 {
		return fmt.Errorf("quote.risk_aversion must be > 0")
	}
	if q.Volatility <= 0 {
		return fmt.Errorf("quote.volatility must be > 0")
	}
	if q.ArrivalRate <= 0 {
		return fmt.Errorf("quote.arrival_rate must be > 0")
	}
	if q.ReservationSpread <= 0 {
		return fmt.Errorf("quote.reservation_spread must be > 0")
	}
	return nil
}

func (m *MakerConfig) validate() error {
	if m.MaxInventory < 0 {
		return fmt.Errorf("maker.max_inventory must be >= 0")
	}
	if m.BaseQuantity < 0 {
		return fmt.Errorf("maker.base_quantity must be >= 0")
	}
	return nil
}

func (s *SignalConfig) validate() error {
	if s.Kind != "sma" && s.Kind != "ema" {
		return fmt.Errorf("signal.kind must be sma or ema")
	}
	if s.Fast >= s.Slow {
		return fmt.Errorf("signal.fast must be < signal.slow")
	}
	return nil
}
