package rest

import (
	"context"
	"sync"
	"testing"
	"time"

	"arbitd/internal/market"
	"arbitd/internal/money"
	"arbitd/internal/order"
)

type recordingEvents struct {
	mu             sync.Mutex
	orderUpdates   []order.Status
	marketUpdates  []string
	balanceUpdates []money.Decimal
	updateCh       chan order.Status
}

func (r *recordingEvents) orderUpdateCh() chan order.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateCh == nil {
		r.updateCh = make(chan order.Status, 8)
	}
	return r.updateCh
}

func (r *recordingEvents) OnOrderUpdate(o *order.Order, status order.Status) {
	r.mu.Lock()
	r.orderUpdates = append(r.orderUpdates, status)
	ch := r.updateCh
	r.mu.Unlock()
	if ch != nil {
		ch <- status
	}
}

func (r *recordingEvents) OnBalanceUpdate(exchange, currencyCode string, balance money.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balanceUpdates = append(r.balanceUpdates, balance)
}

func (r *recordingEvents) OnMarketUpdate(exchange, symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marketUpdates = append(r.marketUpdates, symbol)
}

func newTestExchange(events *recordingEvents) (*Exchange, *market.Market) {
	m := market.New("testex", "BTC-USD", "BTC", "USD", money.Zero, money.Zero, nil)
	client := NewClient("https://example.invalid", NewAuth(Credentials{APIKey: "k", Secret: "c2VjcmV0"}), NewRateLimiter(1, 10, 1, 10, 1, 10), true, discardLogger())

	ex := NewExchange("testex", client,
		NewMarketFeed("wss://example.invalid", discardLogger()),
		NewAccountFeed("wss://example.invalid", nil, discardLogger()),
		map[string]*market.Market{"BTC-USD": m},
		events, discardLogger())

	return ex, m
}

func TestApplyBookSnapshotUpdatesLadders(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	ex, m := newTestExchange(events)

	ex.applyBookSnapshot(WSBookEvent{
		EventType: "book",
		Symbol:    "BTC-USD",
		Bids:      []BookLevel{{Price: "100", Size: "2"}},
		Asks:      []BookLevel{{Price: "101", Size: "3"}},
	})

	bidPrice, bidSize, ok := m.BestBid()
	if !ok || !bidPrice.Equal(money.MustParse("100")) || !bidSize.Equal(money.MustParse("2")) {
		t.Errorf("BestBid() = (%v, %v, %v), want (100, 2, true)", bidPrice, bidSize, ok)
	}
	askPrice, askSize, ok := m.BestAsk()
	if !ok || !askPrice.Equal(money.MustParse("101")) || !askSize.Equal(money.MustParse("3")) {
		t.Errorf("BestAsk() = (%v, %v, %v), want (101, 3, true)", askPrice, askSize, ok)
	}

	if len(events.marketUpdates) != 1 || events.marketUpdates[0] != "BTC-USD" {
		t.Errorf("marketUpdates = %v, want [BTC-USD]", events.marketUpdates)
	}
}

func TestApplyBookSnapshotSkipsMalformedLevel(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	ex, m := newTestExchange(events)

	ex.applyBookSnapshot(WSBookEvent{
		Symbol: "BTC-USD",
		Bids:   []BookLevel{{Price: "not-a-number", Size: "2"}},
	})

	if _, _, ok := m.BestBid(); ok {
		t.Error("expected no bid level after malformed update")
	}
}

func TestApplyPriceChangeUpdatesSingleSide(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	ex, m := newTestExchange(events)

	ex.applyPriceChange(WSPriceChangeEvent{Symbol: "BTC-USD", Side: "bid", Price: "99", Size: "5"})

	price, size, ok := m.BestBid()
	if !ok || !price.Equal(money.MustParse("99")) || !size.Equal(money.MustParse("5")) {
		t.Errorf("BestBid() = (%v, %v, %v), want (99, 5, true)", price, size, ok)
	}
}

func TestDispatchOrderEventRoutesCompletedAndRejected(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	ex, m := newTestExchange(events)

	cur := &fakeVertex{balance: money.MustParse("1000")}
	o := order.New(money.MustParse("100"), money.MustParse("1"), order.BUY, m, cur, cur, money.MustParse("1000"), money.Zero)

	ex.ordersMu.Lock()
	ex.orders[o.ID()] = o
	ex.ordersMu.Unlock()

	rejected := order.New(money.MustParse("100"), money.MustParse("1"), order.BUY, m, cur, cur, money.MustParse("1000"), money.Zero)

	ex.ordersMu.Lock()
	ex.orders[rejected.ID()] = rejected
	ex.ordersMu.Unlock()

	ex.dispatchOrderEvent(WSOrderEvent{ClientID: o.ID(), Status: "completed"})
	ex.dispatchOrderEvent(WSOrderEvent{ClientID: rejected.ID(), Status: "rejected"})

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.orderUpdates) != 2 || events.orderUpdates[0] != order.COMPLETED || events.orderUpdates[1] != order.REJECTED {
		t.Errorf("orderUpdates = %v, want [COMPLETED REJECTED]", events.orderUpdates)
	}
}

func TestDispatchOrderEventIgnoresUnknownClientID(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}
	ex, _ := newTestExchange(events)

	ex.dispatchOrderEvent(WSOrderEvent{ClientID: "unknown", Status: "completed"})

	if len(events.orderUpdates) != 0 {
		t.Errorf("expected no order updates, got %v", events.orderUpdates)
	}
}

func TestSubmitDepositOrderCompletesImmediately(t *testing.T) {
	t.Parallel()
	events := &recordingEvents{}

	deposit := market.NewDeposit("ex1", "ex2", "USD")
	client := NewClient("https://example.invalid", NewAuth(Credentials{APIKey: "k", Secret: "c2VjcmV0"}), NewRateLimiter(1, 10, 1, 10, 1, 10), true, discardLogger())
	ex := NewExchange("ex1", client,
		NewMarketFeed("wss://example.invalid", discardLogger()),
		NewAccountFeed("wss://example.invalid", nil, discardLogger()),
		map[string]*market.Market{deposit.Symbol(): deposit},
		events, discardLogger())

	cur := &fakeVertex{balance: money.MustParse("1000")}
	o := order.New(money.One, money.MustParse("10"), order.SELL, deposit, cur, cur, money.MustParse("1000"), money.Zero)

	ch := events.orderUpdateCh()

	if err := ex.Submit(context.Background(), o); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case status := <-ch:
		if status != order.COMPLETED {
			t.Errorf("status = %v, want COMPLETED", status)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for order update")
	}
}

type fakeVertex struct {
	balance money.Decimal
}

func (f *fakeVertex) Code() string            { return "USD" }
func (f *fakeVertex) Exchange() string        { return "testex" }
func (f *fakeVertex) Balance() money.Decimal  { return f.balance }
