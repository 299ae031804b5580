package scanner

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"arbitd/internal/admission"
	"arbitd/internal/market"
	"arbitd/internal/money"
	"arbitd/internal/order"
)

type fakeDispatcher struct {
	mu         sync.Mutex
	executions []market.Candidate
}

func (d *fakeDispatcher) Execute(c market.Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executions = append(d.executions, c)
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.executions)
}

type fakeCurrency struct{ balance money.Decimal }

func (f *fakeCurrency) Code() string           { return "X" }
func (f *fakeCurrency) Exchange() string       { return "testex" }
func (f *fakeCurrency) Balance() money.Decimal { return f.balance }

type fakePath struct {
	orders []*order.Order
}

func (p *fakePath) GenerateOrders(initialAmount money.Decimal) ([]*order.Order, bool) {
	return p.orders, true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestScannerDispatchesBestCandidate(t *testing.T) {
	t.Parallel()

	m := market.New("testex", "A-B", "A", "B", money.Zero, money.Zero, nil)
	cur := &fakeCurrency{balance: money.MustParse("1000000")}
	leg := order.New(money.MustParse("1.1"), money.MustParse("100"), order.SELL, m, cur, cur, money.MustParse("1000"), money.Zero)
	m.RegisterPath(&fakePath{orders: []*order.Order{leg}})

	adm := admission.New(false, 0, 0)
	disp := &fakeDispatcher{}
	s := New(disp, adm, money.MustParse("100"), money.MustParse("0.01"), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer cancel()

	s.ScheduleScan(m)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if disp.count() > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if disp.count() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", disp.count())
	}
}

func TestScheduleScanDeduplicates(t *testing.T) {
	t.Parallel()

	m := market.New("testex", "A-B", "A", "B", money.Zero, money.Zero, nil)
	adm := admission.New(false, 0, 0)
	disp := &fakeDispatcher{}
	s := New(disp, adm, money.MustParse("100"), money.MustParse("0.01"), discardLogger())

	s.ScheduleScan(m)
	s.ScheduleScan(m)

	if len(s.queue) != 1 {
		t.Errorf("queue length = %d, want 1 (duplicate schedule should coalesce)", len(s.queue))
	}
}

func TestScannerDeniesWhenAdmissionClosed(t *testing.T) {
	t.Parallel()

	m := market.New("testex", "A-B", "A", "B", money.Zero, money.Zero, nil)
	cur := &fakeCurrency{balance: money.MustParse("1000000")}
	leg := order.New(money.MustParse("1.1"), money.MustParse("100"), order.SELL, m, cur, cur, money.MustParse("1000"), money.Zero)
	m.RegisterPath(&fakePath{orders: []*order.Order{leg}})

	adm := admission.New(false, 0, 0)
	adm.Register(time.Now())

	disp := &fakeDispatcher{}
	s := New(disp, adm, money.MustParse("100"), money.MustParse("0.01"), discardLogger())
	s.process(m)

	if disp.count() != 0 {
		t.Errorf("expected no dispatch while admission is closed, got %d", disp.count())
	}
}
