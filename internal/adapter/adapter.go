// Package adapter defines the capability set the core consumes from a
// concrete exchange integration: initialize, stop, submit, and generate
// a transport-neutral request descriptor. Concrete adapters (the
// reference REST+WebSocket implementation in package rest, or any
// exchange-specific one) interact with the core only through this
// interface and the event callbacks it is handed at construction.
package adapter

import (
	"context"

	"arbitd/internal/money"
	"arbitd/internal/order"
)

// Request is a language-neutral description of an outbound call a
// Request Dispatcher can transport: method, URL, headers, and body
// parameters. Adapters build these; the dispatcher (or the adapter
// itself, for the reference implementation) performs the actual I/O.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]interface{}
}

// Events is the set of callbacks an adapter invokes on the orchestrator
// as things happen upstream. Callbacks must not block for long; they are
// typically called from the adapter's own stream-reader goroutines.
type Events interface {
	// OnOrderUpdate reports a submitted order's lifecycle transition.
	OnOrderUpdate(o *order.Order, status order.Status)
	// OnBalanceUpdate reports a new settled balance for one currency on
	// one exchange.
	OnBalanceUpdate(exchange, currencyCode string, balance money.Decimal)
	// OnMarketUpdate is invoked after an adapter has mutated a market's
	// ladders directly; the orchestrator schedules a rescan of it.
	OnMarketUpdate(exchange, symbol string)
}

// Adapter is the capability set the core requires of every exchange
// integration.
type Adapter interface {
	// Initialize populates markets/currencies, seeds fees, starts market
	// and account streams, and signals ready once connected. Initialize
	// blocks until the adapter is ready or ctx is cancelled.
	Initialize(ctx context.Context) error

	// Stop terminates all streams and worker goroutines owned by this
	// adapter.
	Stop() error

	// Submit sends o to the exchange. A non-nil error means the order was
	// rejected synchronously (e.g. failed local validation); a nil error
	// means the order is now PENDING and its terminal status arrives via
	// Events.OnOrderUpdate.
	Submit(ctx context.Context, o *order.Order) error

	// GenerateRequest produces the transport-neutral descriptor for
	// submitting o, for use by an external Request Dispatcher.
	GenerateRequest(o *order.Order) (Request, error)
}
