package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dexmaker-go/gateway"
	"dexmaker-go/oracle"
	"dexmaker-go/rebalance"
	"dexmaker-go/strategy"
)

type stubOracle struct{}

func (stubOracle) FetchRate(ctx context.Context, keys oracle.MarketRates) (float64, error) {
	return 0.08, nil
}

type stubSigner struct{ address string }

func (s stubSigner) Address() string            { return s.address }
func (s stubSigner) Sign(payload []byte) string { return "sig" }

// stubLedger 记录所有读写调用；failAccounts 中的账户读取直接报错，
// block 非空时 LoadAccount 阻塞等待释放。
type stubLedger struct {
	mu           sync.Mutex
	loads        int
	submitted    []string
	failAccounts map[string]bool
	block        chan struct{}
}

func (l *stubLedger) LoadAccount(ctx context.Context, accountID string) (*gateway.AccountSnapshot, error) {
	l.mu.Lock()
	l.loads++
	block := l.block
	fail := l.failAccounts[accountID]
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail {
		return nil, &gateway.AccountLoadError{AccountID: accountID, Err: errors.New("boom")}
	}
	return &gateway.AccountSnapshot{
		AccountID: accountID,
		Sequence:  7,
		Balances: []gateway.Balance{
			{Asset: gateway.NativeAsset(), Amount: "110.0000000"},
			{Asset: gateway.Credit("USD", "GISSUER"), Amount: "100.0000000"},
		},
	}, nil
}

func (l *stubLedger) Offers(ctx context.Context, accountID string) ([]gateway.Offer, error) {
	return nil, nil
}

func (l *stubLedger) SubmitBatch(ctx context.Context, signer gateway.BatchSigner, snap *gateway.AccountSnapshot, ops []gateway.Operation) error {
	l.mu.Lock()
	l.submitted = append(l.submitted, signer.Address())
	l.mu.Unlock()
	return nil
}

func (l *stubLedger) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *stubLedger) submittedAccounts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.submitted...)
}

func market(name, account string) *rebalance.Market {
	return &rebalance.Market{
		Name:          name,
		Signer:        stubSigner{address: account},
		Base:          gateway.Credit("USD", "GISSUER"),
		Quote:         gateway.NativeAsset(),
		Rates:         oracle.MarketRates{BaseKey: "USD", QuoteKey: "XLM"},
		Levels:        strategy.Levels{0.001},
		NativeReserve: 10,
	}
}

func newScheduler(ledger *stubLedger) *Scheduler {
	return &Scheduler{
		Rebalancer:   &rebalance.Rebalancer{Oracle: stubOracle{}, Ledger: ledger},
		BaseInterval: time.Hour, // 测试里只靠启动即刻的第一轮
	}
}

func TestRunFiresFirstTickImmediately(t *testing.T) {
	ledger := &stubLedger{}
	s := newScheduler(ledger)
	s.SetMarkets([]*rebalance.Market{market("XLM-USD", "GA")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(ledger.submittedAccounts()) == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTickIsolatesMarketFailures(t *testing.T) {
	ledger := &stubLedger{failAccounts: map[string]bool{"GBAD": true}}
	s := newScheduler(ledger)
	s.SetMarkets([]*rebalance.Market{market("bad", "GBAD"), market("good", "GGOOD")})

	s.tick(context.Background())
	s.wg.Wait()

	got := ledger.submittedAccounts()
	if len(got) != 1 || got[0] != "GGOOD" {
		t.Fatalf("expected only the healthy market to submit, got %v", got)
	}
}

func TestTickSkipsInflightMarket(t *testing.T) {
	release := make(chan struct{})
	ledger := &stubLedger{block: release}
	s := newScheduler(ledger)
	s.SetMarkets([]*rebalance.Market{market("XLM-USD", "GA")})

	ctx := context.Background()
	s.tick(ctx)
	// 等第一轮真正进入账本读取
	deadline := time.After(5 * time.Second)
	for ledger.loadCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first cycle never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.tick(ctx) // 上一轮在途，本轮应跳过
	close(release)
	s.wg.Wait()

	if got := len(ledger.submittedAccounts()); got != 1 {
		t.Fatalf("expected exactly one submission, got %d", got)
	}
}

func TestSetMarketsTakesEffectNextTick(t *testing.T) {
	ledger := &stubLedger{}
	s := newScheduler(ledger)
	s.SetMarkets([]*rebalance.Market{market("one", "GONE")})

	s.tick(context.Background())
	s.wg.Wait()

	s.SetMarkets([]*rebalance.Market{market("two", "GTWO")})
	s.tick(context.Background())
	s.wg.Wait()

	got := ledger.submittedAccounts()
	if len(got) != 2 || got[0] != "GONE" || got[1] != "GTWO" {
		t.Fatalf("unexpected submissions: %v", got)
	}
}

func TestNextIntervalBounds(t *testing.T) {
	s := &Scheduler{BaseInterval: time.Second, Jitter: time.Second}
	for i := 0; i < 100; i++ {
		d := s.nextInterval()
		if d < time.Second || d >= 2*time.Second {
			t.Fatalf("interval %v outside [1s, 2s)", d)
		}
	}

	s = &Scheduler{}
	if d := s.nextInterval(); d != 30*time.Second {
		t.Fatalf("expected 30s default, got %v", d)
	}
}
