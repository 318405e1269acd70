package config

import (
	"errors"
	"fmt"
)

// ErrMissingSecret 标记配置了市场但没给密钥；这类市场启动时跳过
// 并告警，不会尝试执行周期。
var ErrMissingSecret = errors.New("market secret not configured")

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Oracle.BaseURL == "" && !cfg.Oracle.UseStream {
		return errors.New("oracle.baseURL is required")
	}
	if cfg.Oracle.UseStream && cfg.Oracle.StreamURL == "" {
		return errors.New("oracle.streamURL is required when useStream is set")
	}
	if cfg.Ledger.BaseURL == "" {
		return errors.New("ledger.baseURL is required")
	}
	if len(cfg.Markets) == 0 {
		return errors.New("markets config is required")
	}
	if cfg.NativeReserve != nil && *cfg.NativeReserve < 0 {
		return errors.New("nativeReserve must be >= 0")
	}
	for name, mc := range cfg.Markets {
		if err := validateMarket(name, mc); err != nil {
			return err
		}
	}
	return nil
}

func validateMarket(name string, mc MarketConfig) error {
	if len(mc.Levels) == 0 {
		return fmt.Errorf("market %s: levels must not be empty", name)
	}
	for i, lv := range mc.Levels {
		// 档位是相对汇率的小正数偏移；>=1 会让镜像方向价格变负。
		if lv <= 0 || lv >= 1 {
			return fmt.Errorf("market %s: levels[%d] must be in (0,1)", name, i)
		}
	}
	if mc.BaseRateKey == "" || mc.QuoteRateKey == "" {
		return fmt.Errorf("market %s: baseRateKey/quoteRateKey are required", name)
	}
	if !mc.Base.IsNative() && mc.Base.Issuer == "" {
		return fmt.Errorf("market %s: base asset issuer is required", name)
	}
	if !mc.Quote.IsNative() && mc.Quote.Issuer == "" {
		return fmt.Errorf("market %s: quote asset issuer is required", name)
	}
	if mc.Base.Asset().Equal(mc.Quote.Asset()) {
		return fmt.Errorf("market %s: base and quote must differ", name)
	}
	return nil
}
