// Package rebalance 实现每个市场每周期的撤换挂单编排：取汇率、读账户
// 与挂单、算库存比例、生成双向阶梯、整批原子提交。
package rebalance

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"dexmaker-go/gateway"
	"dexmaker-go/inventory"
	"dexmaker-go/metrics"
	"dexmaker-go/oracle"
	"dexmaker-go/strategy"
)

// Market 一个市场的完整周期上下文。一个市场绑定一个账户，配置与
// 密钥在进程内只读，各市场周期之间不共享可变状态。
type Market struct {
	Name   string
	Signer gateway.BatchSigner
	Base   gateway.Asset
	Quote  gateway.Asset
	Rates  oracle.MarketRates
	Levels strategy.Levels

	// RebalanceAutomatically 关闭时比例固定 0.5，阶梯不随库存偏移。
	RebalanceAutomatically bool
	// NativeReserve 原生资产底仓，不参与挂单。
	NativeReserve float64
}

// Rebalancer 驱动单个周期。无内部状态，可被多个市场并发调用。
type Rebalancer struct {
	Oracle  oracle.RateSource
	Ledger  gateway.Client
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

// RunCycle 执行一个市场的一次撤换周期。任一前置读取失败则整周期
// 中止，不做部分提交；错误交由调度层记录，下个周期自然重试。
func (r *Rebalancer) RunCycle(ctx context.Context, m *Market) error {
	// 三个读取互不依赖，延迟都在网络往返上，并发发起后汇合。
	var (
		wg        sync.WaitGroup
		rate      float64
		snap      *gateway.AccountSnapshot
		offers    []gateway.Offer
		rateErr   error
		snapErr   error
		offersErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		rate, rateErr = r.Oracle.FetchRate(ctx, m.Rates)
	}()
	go func() {
		defer wg.Done()
		snap, snapErr = r.Ledger.LoadAccount(ctx, m.Signer.Address())
	}()
	go func() {
		defer wg.Done()
		offers, offersErr = r.Ledger.Offers(ctx, m.Signer.Address())
	}()
	wg.Wait()
	for _, err := range []error{rateErr, snapErr, offersErr} {
		if err != nil {
			return fmt.Errorf("market %s: %w", m.Name, err)
		}
	}

	baseBalance := inventory.UsableBalance(snap, m.Base, m.NativeReserve)
	quoteBalance := inventory.UsableBalance(snap, m.Quote, m.NativeReserve)
	ratio := computeRatio(m.RebalanceAutomatically, baseBalance, quoteBalance, rate)

	ops := make([]gateway.Operation, 0, len(offers)+2*len(m.Levels))
	// 撤单先于新挂单进入批次；整批原子执行。
	for _, offer := range offers {
		ops = append(ops, gateway.CancelOp(offer))
	}
	for _, o := range strategy.GenerateLadder(quoteBalance, m.Levels, strategy.SellQuote, rate, ratio) {
		ops = append(ops, gateway.Operation{Selling: m.Quote, Buying: m.Base, Amount: o.Amount, Price: o.Price})
	}
	for _, o := range strategy.GenerateLadder(baseBalance, m.Levels, strategy.SellBase, rate, ratio) {
		ops = append(ops, gateway.Operation{Selling: m.Base, Buying: m.Quote, Amount: o.Amount, Price: o.Price})
	}

	cancels := len(offers)
	orders := len(ops) - cancels
	if len(ops) == 0 {
		if r.Log != nil {
			r.Log.Info("cycle_noop", zap.String("market", m.Name), zap.Float64("rate", rate))
		}
		return nil
	}

	if err := r.Ledger.SubmitBatch(ctx, m.Signer, snap, ops); err != nil {
		return fmt.Errorf("market %s: %w", m.Name, err)
	}

	if r.Metrics != nil {
		r.Metrics.OracleRate.WithLabelValues(m.Name).Set(rate)
		r.Metrics.InventoryRatio.WithLabelValues(m.Name).Set(ratio)
		r.Metrics.BaseBalance.WithLabelValues(m.Name).Set(baseBalance)
		r.Metrics.QuoteBalance.WithLabelValues(m.Name).Set(quoteBalance)
		r.Metrics.OffersCancelled.WithLabelValues(m.Name).Add(float64(cancels))
		r.Metrics.OrdersPlaced.WithLabelValues(m.Name).Add(float64(orders))
	}
	if r.Log != nil {
		r.Log.Info("cycle_success",
			zap.String("market", m.Name),
			zap.Float64("rate", rate),
			zap.Float64("ratio", ratio),
			zap.Float64("base_balance", baseBalance),
			zap.Float64("quote_balance", quoteBalance),
			zap.Int("cancels", cancels),
			zap.Int("orders", orders),
		)
	}
	return nil
}

// computeRatio quote 资产占合并库存（按 quote 计价）的比例。分母为零
// 时退回 0.5；开关关闭时恒为 0.5。
func computeRatio(auto bool, baseBalance, quoteBalance, rate float64) float64 {
	if !auto {
		return 0.5
	}
	denom := quoteBalance + baseBalance/rate
	if !(denom > 0) {
		return 0.5
	}
	return quoteBalance / denom
}
