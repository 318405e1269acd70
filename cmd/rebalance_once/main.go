// rebalance_once 为单个市场执行一次再平衡周期后退出，便于调试配置
// 或在 cron 里低频运行。
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"dexmaker-go/config"
	"dexmaker-go/gateway"
	"dexmaker-go/infrastructure/logger"
	"dexmaker-go/oracle"
	"dexmaker-go/rebalance"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	marketName := flag.String("market", "", "要执行的市场名")
	dryRun := flag.Bool("dryRun", true, "仅日志输出，不真正提交批次")
	timeout := flag.Duration("timeout", 30*time.Second, "整个周期的超时")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	mc, ok := cfg.Markets[*marketName]
	if !ok {
		log.Fatalf("market %s not found in config", *marketName)
	}
	if mc.Secret == "" {
		log.Fatalf("market %s: %v", *marketName, config.ErrMissingSecret)
	}
	signer, err := gateway.NewSignerFromSeed(mc.Secret)
	if err != nil {
		log.Fatalf("market %s: %v", *marketName, err)
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	var ledger gateway.Client = &gateway.RESTClient{
		BaseURL:    cfg.Ledger.BaseURL,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Ledger.RestRate, cfg.Ledger.RestBurst),
		BaseFee:    cfg.Ledger.BaseFee,
	}
	if *dryRun {
		ledger = &gateway.DryRunClient{Inner: ledger, Log: zlog.Logger}
	}

	r := &rebalance.Rebalancer{
		Oracle: &oracle.Client{
			BaseURL:    cfg.Oracle.BaseURL,
			HTTPClient: oracle.NewDefaultHTTPClient(),
		},
		Ledger: ledger,
		Log:    zlog.Logger,
	}
	market := &rebalance.Market{
		Name:                   *marketName,
		Signer:                 signer,
		Base:                   mc.Base.Asset(),
		Quote:                  mc.Quote.Asset(),
		Rates:                  oracle.MarketRates{BaseKey: mc.BaseRateKey, QuoteKey: mc.QuoteRateKey},
		Levels:                 mc.Levels,
		RebalanceAutomatically: cfg.RebalanceAutomatically,
		NativeReserve:          cfg.Reserve(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := r.RunCycle(ctx, market); err != nil {
		zlog.Fatal("cycle failed", zap.Error(err))
	}
}
