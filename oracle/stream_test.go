package oracle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStream_FetchRateBeforeFirstPush(t *testing.T) {
	s := NewStream("ws://unused", nil)
	_, err := s.FetchRate(context.Background(), MarketRates{BaseKey: "XLM", QuoteKey: "USD"})
	if !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable before first push, got %v", err)
	}
}

func TestStream_ServesFromCache(t *testing.T) {
	s := NewStream("ws://unused", nil)
	s.apply(map[string]string{"XLM": "0.0800000", "USD": "1.0000000"})

	rate, err := s.FetchRate(context.Background(), MarketRates{BaseKey: "XLM", QuoteKey: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0.08 {
		t.Fatalf("expected 0.08, got %v", rate)
	}
}

func TestStream_MergesPartialUpdates(t *testing.T) {
	s := NewStream("ws://unused", nil)
	s.apply(map[string]string{"XLM": "0.0800000", "USD": "1.0000000"})
	// 增量推送只带一条腿，另一条腿保留旧值
	s.apply(map[string]string{"XLM": "0.0900000"})

	rate, err := s.FetchRate(context.Background(), MarketRates{BaseKey: "XLM", QuoteKey: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 0.09 {
		t.Fatalf("expected 0.09, got %v", rate)
	}
}

func TestStream_StaleCache(t *testing.T) {
	s := NewStream("ws://unused", nil)
	s.MaxAge = 10 * time.Millisecond
	s.apply(map[string]string{"XLM": "0.08", "USD": "1.0"})
	time.Sleep(25 * time.Millisecond)

	_, err := s.FetchRate(context.Background(), MarketRates{BaseKey: "XLM", QuoteKey: "USD"})
	if !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable for stale cache, got %v", err)
	}
}
