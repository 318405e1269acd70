package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"dexmaker-go/config"
	"dexmaker-go/gateway"
	"dexmaker-go/infrastructure/logger"
	"dexmaker-go/metrics"
	"dexmaker-go/monitor/logschema"
	"dexmaker-go/oracle"
	"dexmaker-go/rebalance"
	"dexmaker-go/scheduler"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正提交批次")
	metricsAddr := flag.String("metricsAddr", ":9100", "Prometheus metrics 监听地址，留空则关闭")
	watchConfig := flag.Bool("watchConfig", true, "热更新档位/再平衡开关")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	m := metrics.New()
	if *metricsAddr != "" {
		metrics.StartMetricsServer(*metricsAddr, m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rateSource, err := buildRateSource(ctx, cfg, zlog.Logger)
	if err != nil {
		zlog.Fatal("初始化报价源失败", zap.Error(err))
	}

	var ledger gateway.Client = &gateway.RESTClient{
		BaseURL:    cfg.Ledger.BaseURL,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Ledger.RestRate, cfg.Ledger.RestBurst),
		BaseFee:    cfg.Ledger.BaseFee,
	}
	if *dryRun {
		ledger = &gateway.DryRunClient{Inner: ledger, Log: zlog.Logger}
	}

	markets := buildMarkets(cfg, zlog.Logger)
	if len(markets) == 0 {
		zlog.Fatal("没有可运行的市场（密钥缺失？）")
	}

	sched := &scheduler.Scheduler{
		Rebalancer: &rebalance.Rebalancer{
			Oracle:  rateSource,
			Ledger:  ledger,
			Log:     zlog.Logger,
			Metrics: m,
		},
		BaseInterval: time.Duration(cfg.Scheduler.BaseIntervalSec) * time.Second,
		Jitter:       time.Duration(cfg.Scheduler.JitterSec) * time.Second,
		Log:          zlog.Logger,
		Metrics:      m,
	}
	sched.SetMarkets(markets)

	if *watchConfig {
		watcher := config.Watcher{Path: *cfgPath, Log: zlog.Logger}
		go func() {
			err := watcher.Start(ctx, func(next config.AppConfig) {
				sched.SetMarkets(retuneMarkets(markets, next))
			})
			if err != nil && ctx.Err() == nil {
				zlog.Warn("配置监听退出", zap.Error(err))
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	zlog.Info("dexmaker started",
		zap.String("env", cfg.Env),
		zap.Int("markets", len(markets)),
		zap.Bool("dry_run", *dryRun),
	)

	_ = sched.Run(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	zlog.Info("dexmaker stopped")
}

// buildRateSource 根据配置选择逐周期 GET 或 websocket 推送缓存。
func buildRateSource(ctx context.Context, cfg config.AppConfig, zlog *zap.Logger) (oracle.RateSource, error) {
	if !cfg.Oracle.UseStream {
		return &oracle.Client{
			BaseURL:    cfg.Oracle.BaseURL,
			HTTPClient: oracle.NewDefaultHTTPClient(),
		}, nil
	}
	stream := oracle.NewStream(cfg.Oracle.StreamURL, zlog)
	go func() {
		if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
			zlog.Error("rate stream terminated", zap.Error(err))
		}
	}()
	return stream, nil
}

// buildMarkets 把配置翻译成各自独立的市场上下文。没配密钥或密钥
// 损坏的市场跳过并告警，绝不尝试执行。
func buildMarkets(cfg config.AppConfig, zlog *zap.Logger) []*rebalance.Market {
	names := make([]string, 0, len(cfg.Markets))
	for name := range cfg.Markets {
		names = append(names, name)
	}
	sort.Strings(names)

	markets := make([]*rebalance.Market, 0, len(names))
	for _, name := range names {
		mc := cfg.Markets[name]
		if mc.Secret == "" {
			logEvent(zlog, "market_skipped", map[string]interface{}{
				"market": name,
				"reason": config.ErrMissingSecret.Error(),
			})
			continue
		}
		signer, err := gateway.NewSignerFromSeed(mc.Secret)
		if err != nil {
			logEvent(zlog, "market_skipped", map[string]interface{}{
				"market": name,
				"reason": err.Error(),
			})
			continue
		}
		markets = append(markets, &rebalance.Market{
			Name:                   name,
			Signer:                 signer,
			Base:                   mc.Base.Asset(),
			Quote:                  mc.Quote.Asset(),
			Rates:                  oracle.MarketRates{BaseKey: mc.BaseRateKey, QuoteKey: mc.QuoteRateKey},
			Levels:                 mc.Levels,
			RebalanceAutomatically: cfg.RebalanceAutomatically,
			NativeReserve:          cfg.Reserve(),
		})
	}
	return markets
}

// retuneMarkets 热更新时只调整可热更字段；密钥与市场集合保持启动
// 时的状态。
func retuneMarkets(current []*rebalance.Market, next config.AppConfig) []*rebalance.Market {
	updated := make([]*rebalance.Market, 0, len(current))
	for _, m := range current {
		mc, ok := next.Markets[m.Name]
		if !ok {
			updated = append(updated, m)
			continue
		}
		clone := *m
		clone.Levels = mc.Levels
		clone.RebalanceAutomatically = next.RebalanceAutomatically
		clone.NativeReserve = next.Reserve()
		updated = append(updated, &clone)
	}
	return updated
}

// logEvent 经 logschema 校验后输出结构化事件。
func logEvent(zlog *zap.Logger, event string, fields map[string]interface{}) {
	if err := logschema.Validate(event, fields); err != nil {
		zlog.Warn("log_schema_violation", zap.String("event", event), zap.Error(err))
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	zlog.Info(event, zf...)
}
