// ratecheck 拉取报价源并按市场打印换算后的汇率，用于上线前核对
// 配置里的 rate key。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"dexmaker-go/config"
	"dexmaker-go/oracle"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	timeout := flag.Duration("timeout", 10*time.Second, "请求超时")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	client := &oracle.Client{
		BaseURL:    cfg.Oracle.BaseURL,
		HTTPClient: oracle.NewDefaultHTTPClient(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rates, err := client.FetchRates(ctx)
	if err != nil {
		log.Fatalf("拉取报价失败: %v", err)
	}
	fmt.Printf("oracle: %d symbols\n", len(rates))

	names := make([]string, 0, len(cfg.Markets))
	for name := range cfg.Markets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mc := cfg.Markets[name]
		keys := oracle.MarketRates{BaseKey: mc.BaseRateKey, QuoteKey: mc.QuoteRateKey}
		rate, err := client.FetchRate(ctx, keys)
		if err != nil {
			fmt.Printf("%s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s: %s/%s = %.7f\n", name, mc.BaseRateKey, mc.QuoteRateKey, rate)
	}
}
