package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stream 通过 websocket 订阅报价推送，缓存最近一次报价表。
// FetchRate 直接从缓存取数，周期调用之间不再发起请求；缓存超过
// MaxAge 未更新时视为不可用，避免用陈旧汇率挂单。
type Stream struct {
	URL    string
	Dialer *websocket.Dialer
	MaxAge time.Duration
	Log    *zap.Logger

	mu      sync.RWMutex
	rates   map[string]string
	updated time.Time
}

func NewStream(url string, log *zap.Logger) *Stream {
	return &Stream{
		URL:    url,
		Dialer: websocket.DefaultDialer,
		MaxAge: 2 * time.Minute,
		Log:    log,
	}
}

// Run 保持连接并读取推送，断线后退避重连，ctx 取消时退出。
func (s *Stream) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := s.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.Log != nil {
				s.Log.Warn("rate stream disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Stream) readLoop(ctx context.Context) error {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var payload ratesPayload
		if err := json.Unmarshal(message, &payload); err != nil || payload.Rates == nil {
			// 非报价消息（心跳等）直接忽略
			continue
		}
		s.apply(payload.Rates)
	}
}

// apply 合并增量推送；未提及的符号保留旧值。
func (s *Stream) apply(update map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rates == nil {
		s.rates = make(map[string]string, len(update))
	}
	for k, v := range update {
		s.rates[k] = v
	}
	s.updated = time.Now()
}

// FetchRate 从缓存计算汇率；首个推送到达前或缓存过期时返回
// ErrRateUnavailable。
func (s *Stream) FetchRate(ctx context.Context, keys MarketRates) (float64, error) {
	s.mu.RLock()
	snapshot := make(map[string]string, len(s.rates))
	for k, v := range s.rates {
		snapshot[k] = v
	}
	updated := s.updated
	s.mu.RUnlock()
	if len(snapshot) == 0 {
		return 0, fmt.Errorf("%w: no rates received yet", ErrRateUnavailable)
	}
	if s.MaxAge > 0 && time.Since(updated) > s.MaxAge {
		return 0, fmt.Errorf("%w: rates stale since %s", ErrRateUnavailable, updated.UTC().Format(time.RFC3339))
	}
	return rateFromTable(snapshot, keys)
}
