package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"dexmaker-go/gateway"
	"dexmaker-go/infrastructure/logger"
	"dexmaker-go/inventory"
)

// AppConfig holds the main runtime configuration. 进程启动时加载一次；
// 档位与再平衡开关可热更新，密钥与市场集合不热更新。
type AppConfig struct {
	Env       string                  `yaml:"env"`
	Logging   logger.Config           `yaml:"logging"`
	Oracle    OracleConfig            `yaml:"oracle"`
	Ledger    LedgerConfig            `yaml:"ledger"`
	Scheduler SchedulerConfig         `yaml:"scheduler"`
	Markets   map[string]MarketConfig `yaml:"markets"`

	// RebalanceAutomatically 全局开关：关闭后所有市场比例固定 0.5。
	RebalanceAutomatically bool `yaml:"rebalanceAutomatically"`
	// NativeReserve 原生资产底仓；缺省时取账本最低余额的默认值。
	NativeReserve *float64 `yaml:"nativeReserve"`
}

type OracleConfig struct {
	BaseURL   string `yaml:"baseURL"`
	StreamURL string `yaml:"streamURL"`
	// UseStream 打开后汇率改走 websocket 推送缓存，不再逐周期 GET。
	UseStream bool `yaml:"useStream"`
}

type LedgerConfig struct {
	BaseURL string `yaml:"baseURL"`
	// BaseFee 快照未携带费用参数时的兜底单笔操作费。
	BaseFee   int64   `yaml:"baseFee"`
	RestRate  float64 `yaml:"restRate"`
	RestBurst int     `yaml:"restBurst"`
}

type SchedulerConfig struct {
	BaseIntervalSec int `yaml:"baseIntervalSec"`
	JitterSec       int `yaml:"jitterSec"`
}

// AssetConfig 资产描述：code 为空或 "native" 表示原生资产。
type AssetConfig struct {
	Code   string `yaml:"code"`
	Issuer string `yaml:"issuer"`
}

// Asset 转成账本资产标识。
func (a AssetConfig) Asset() gateway.Asset {
	if a.IsNative() {
		return gateway.NativeAsset()
	}
	return gateway.Credit(a.Code, a.Issuer)
}

func (a AssetConfig) IsNative() bool {
	return a.Code == "" || strings.EqualFold(a.Code, "native")
}

// MarketConfig 一个市场 = 一个账户。Secret 建议留空走环境变量。
type MarketConfig struct {
	Secret       string      `yaml:"secret"`
	Base         AssetConfig `yaml:"base"`
	Quote        AssetConfig `yaml:"quote"`
	BaseRateKey  string      `yaml:"baseRateKey"`
	QuoteRateKey string      `yaml:"quoteRateKey"`
	Levels       []float64   `yaml:"levels"`
}

// Reserve 返回生效的原生资产底仓。
func (c AppConfig) Reserve() float64 {
	if c.NativeReserve != nil {
		return *c.NativeReserve
	}
	return inventory.DefaultNativeReserve
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides market secrets from
// env vars if present（DEXMAKER_MARKET_<NAME>_SECRET）。
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	for name, mc := range cfg.Markets {
		if v := os.Getenv(SecretEnvVar(name)); v != "" {
			mc.Secret = v
			cfg.Markets[name] = mc
		}
	}
	return cfg, nil
}

// SecretEnvVar 市场密钥对应的环境变量名。
func SecretEnvVar(market string) string {
	name := strings.ToUpper(strings.ReplaceAll(market, "-", "_"))
	return "DEXMAKER_MARKET_" + name + "_SECRET"
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging = logger.DefaultConfig()
	}
	if cfg.Scheduler.BaseIntervalSec <= 0 {
		cfg.Scheduler.BaseIntervalSec = 30
	}
	if cfg.Scheduler.JitterSec < 0 {
		cfg.Scheduler.JitterSec = 0
	}
	if cfg.Ledger.BaseFee <= 0 {
		cfg.Ledger.BaseFee = 200
	}
	if cfg.Ledger.RestRate <= 0 {
		cfg.Ledger.RestRate = 5
	}
	if cfg.Ledger.RestBurst <= 0 {
		cfg.Ledger.RestBurst = 10
	}
}
