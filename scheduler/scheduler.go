// Package scheduler 以带抖动的重复定时器驱动全部市场的再平衡周期。
package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexmaker-go/metrics"
	"dexmaker-go/rebalance"
)

// Scheduler 每个 tick 为每个市场独立派发一次周期。单个市场失败只
// 记录日志，不影响其他市场本轮或后续任何一轮。
type Scheduler struct {
	Rebalancer   *rebalance.Rebalancer
	BaseInterval time.Duration
	// Jitter 每轮在 [0, Jitter) 内均匀取随机追加等待，错开多实例
	// 对报价源和账本的同步冲击。
	Jitter  time.Duration
	Log     *zap.Logger
	Metrics *metrics.Metrics

	mu      sync.RWMutex
	markets []*rebalance.Market

	inflight sync.Map // market name -> struct{}
	wg       sync.WaitGroup
}

// SetMarkets 替换市场集合。热更新档位/开关时由上层在 tick 间隙调用。
func (s *Scheduler) SetMarkets(markets []*rebalance.Market) {
	s.mu.Lock()
	s.markets = markets
	s.mu.Unlock()
}

// Run 启动调度循环：启动时立即执行第一轮，之后按基础间隔加抖动
// 重复。ctx 取消后等待在途周期结束再返回。
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)
	for {
		timer := time.NewTimer(s.nextInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.wg.Wait()
			return ctx.Err()
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// tick 为每个市场派发一个独立 goroutine。上一轮还没结束的市场跳过
// 本轮，防止账本挂起时周期堆积。
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.RLock()
	markets := s.markets
	s.mu.RUnlock()

	for _, m := range markets {
		if _, running := s.inflight.LoadOrStore(m.Name, struct{}{}); running {
			if s.Log != nil {
				s.Log.Warn("cycle_skipped", zap.String("market", m.Name))
			}
			if s.Metrics != nil {
				s.Metrics.CyclesSkipped.WithLabelValues(m.Name).Inc()
			}
			continue
		}
		s.wg.Add(1)
		go func(m *rebalance.Market) {
			defer s.wg.Done()
			defer s.inflight.Delete(m.Name)
			s.runOne(ctx, m)
		}(m)
	}
}

func (s *Scheduler) runOne(ctx context.Context, m *rebalance.Market) {
	start := time.Now()
	err := s.Rebalancer.RunCycle(ctx, m)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		if s.Log != nil {
			s.Log.Error("cycle_error",
				zap.String("market", m.Name),
				zap.Error(err),
				zap.Duration("elapsed", elapsed),
			)
		}
	}
	if s.Metrics != nil {
		s.Metrics.CyclesTotal.WithLabelValues(m.Name, result).Inc()
		s.Metrics.CycleDuration.WithLabelValues(m.Name).Observe(elapsed.Seconds())
	}
}

func (s *Scheduler) nextInterval() time.Duration {
	d := s.BaseInterval
	if d <= 0 {
		d = 30 * time.Second
	}
	if s.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.Jitter)))
	}
	return d
}
