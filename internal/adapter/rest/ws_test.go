package rest

import (
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDispatchRoutesBookEvent(t *testing.T) {
	t.Parallel()
	f := NewMarketFeed("wss://example.invalid", discardLogger())

	f.dispatch([]byte(`{"event_type":"book","symbol":"BTC-USD","bids":[{"price":"1","size":"2"}],"asks":[]}`))

	select {
	case evt := <-f.BookEvents():
		if evt.Symbol != "BTC-USD" {
			t.Errorf("Symbol = %q, want BTC-USD", evt.Symbol)
		}
		if len(evt.Bids) != 1 || evt.Bids[0].Price != "1" {
			t.Errorf("unexpected bids: %+v", evt.Bids)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a book event")
	}
}

func TestDispatchRoutesOrderEvent(t *testing.T) {
	t.Parallel()
	f := NewAccountFeed("wss://example.invalid", NewAuth(Credentials{APIKey: "k", Secret: "c2VjcmV0"}), discardLogger())

	f.dispatch([]byte(`{"event_type":"order","client_order_id":"abc","status":"completed"}`))

	select {
	case evt := <-f.OrderEvents():
		if evt.ClientID != "abc" || evt.Status != "completed" {
			t.Errorf("unexpected order event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an order event")
	}
}

func TestDispatchIgnoresUnknownEventType(t *testing.T) {
	t.Parallel()
	f := NewMarketFeed("wss://example.invalid", discardLogger())

	f.dispatch([]byte(`{"event_type":"heartbeat"}`))

	select {
	case <-f.BookEvents():
		t.Fatal("unexpected book event for heartbeat message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchIgnoresMalformedJSON(t *testing.T) {
	t.Parallel()
	f := NewMarketFeed("wss://example.invalid", discardLogger())

	f.dispatch([]byte(`not json`))

	select {
	case <-f.BookEvents():
		t.Fatal("unexpected book event for malformed payload")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeDeduplicates(t *testing.T) {
	t.Parallel()
	f := NewMarketFeed("wss://example.invalid", discardLogger())

	f.Subscribe([]string{"BTC-USD", "ETH-USD"})
	f.Subscribe([]string{"BTC-USD"})

	f.subscribedMu.RLock()
	defer f.subscribedMu.RUnlock()
	if len(f.subscribed) != 2 {
		t.Errorf("subscribed count = %d, want 2", len(f.subscribed))
	}
}
