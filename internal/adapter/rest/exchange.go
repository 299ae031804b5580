// exchange.go assembles the REST client, the two WebSocket feeds, rate
// limiting, and authentication into one concrete implementation of
// internal/adapter.Adapter: the reference exchange integration.
package rest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"arbitd/internal/adapter"
	"arbitd/internal/market"
	"arbitd/internal/money"
	"arbitd/internal/order"
)

// Exchange is the reference Adapter implementation for one CEX-style
// venue: a REST client for order placement/book polling plus market and
// account WebSocket streams, wired to a fixed set of markets known at
// construction time.
type Exchange struct {
	name   string
	client *Client

	marketFeed  *WSFeed
	accountFeed *WSFeed

	marketsMu sync.RWMutex
	markets   map[string]*market.Market // keyed by symbol

	// orders maps a locally generated client order id back to the
	// Order it was submitted for, so account-stream callbacks can be
	// routed to Events.OnOrderUpdate.
	ordersMu sync.Mutex
	orders   map[string]*order.Order

	events adapter.Events
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewExchange builds a reference adapter for one exchange. markets must
// be fully populated (every symbol this venue trades, plus any deposit
// markets originating here) before Initialize is called.
func NewExchange(name string, client *Client, marketFeed, accountFeed *WSFeed, markets map[string]*market.Market, events adapter.Events, logger *slog.Logger) *Exchange {
	return &Exchange{
		name:        name,
		client:      client,
		marketFeed:  marketFeed,
		accountFeed: accountFeed,
		markets:     markets,
		orders:      make(map[string]*order.Order),
		events:      events,
		logger:      logger.With("component", "adapter", "exchange", name),
	}
}

// Initialize starts the market and account streams and subscribes to
// every configured symbol. It returns once both feed goroutines have
// been launched; streaming itself continues asynchronously.
func (e *Exchange) Initialize(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	symbols := make([]string, 0, len(e.markets))
	e.marketsMu.RLock()
	for sym, m := range e.markets {
		if !m.IsDeposit() {
			symbols = append(symbols, sym)
		}
	}
	e.marketsMu.RUnlock()

	e.marketFeed.Subscribe(symbols)

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		if err := e.marketFeed.Run(runCtx); err != nil && runCtx.Err() == nil {
			e.logger.Error("market feed exited", "error", err)
		}
	}()
	go func() {
		defer e.wg.Done()
		if err := e.accountFeed.Run(runCtx); err != nil && runCtx.Err() == nil {
			e.logger.Error("account feed exited", "error", err)
		}
	}()
	go func() {
		defer e.wg.Done()
		e.pumpEvents(runCtx)
	}()

	e.logger.Info("adapter initialized", "symbols", len(symbols))
	return nil
}

// Stop terminates both streams and waits for their goroutines to exit.
func (e *Exchange) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	e.marketFeed.Close()
	e.accountFeed.Close()
	e.wg.Wait()
	return nil
}

// Submit places o with the exchange. A deposit order has no exchange
// counterpart to submit to; it is treated as immediately COMPLETED.
func (e *Exchange) Submit(ctx context.Context, o *order.Order) error {
	if o.Market().IsDeposit() {
		go e.events.OnOrderUpdate(o, order.COMPLETED)
		return nil
	}

	req := OrderRequest{
		Symbol:   o.Market().Symbol(),
		Side:     sideString(o.Side()),
		Price:    o.Price().String(),
		Quantity: o.Quantity().String(),
		ClientID: o.ID(),
	}

	e.ordersMu.Lock()
	e.orders[o.ID()] = o
	e.ordersMu.Unlock()

	ack, err := e.client.PlaceOrder(ctx, req)
	if err != nil {
		e.ordersMu.Lock()
		delete(e.orders, o.ID())
		e.ordersMu.Unlock()
		return fmt.Errorf("submit order: %w", err)
	}
	if !ack.Accepted {
		e.ordersMu.Lock()
		delete(e.orders, o.ID())
		e.ordersMu.Unlock()
		return fmt.Errorf("order rejected by exchange: %s", ack.Reason)
	}
	return nil
}

// GenerateRequest produces the transport-neutral descriptor for placing
// o, for use by an external Request Dispatcher instead of this
// adapter's own Submit.
func (e *Exchange) GenerateRequest(o *order.Order) (adapter.Request, error) {
	req := OrderRequest{
		Symbol:   o.Market().Symbol(),
		Side:     sideString(o.Side()),
		Price:    o.Price().String(),
		Quantity: o.Quantity().String(),
		ClientID: o.ID(),
	}

	headers, err := e.client.auth.Headers("POST", "/orders", "")
	if err != nil {
		return adapter.Request{}, fmt.Errorf("generate request: %w", err)
	}

	return adapter.Request{
		Method:  "POST",
		URL:     "/orders",
		Headers: headers,
		Params: map[string]interface{}{
			"symbol":          req.Symbol,
			"side":            req.Side,
			"price":           req.Price,
			"quantity":        req.Quantity,
			"client_order_id": req.ClientID,
		},
	}, nil
}

// pumpEvents fans the two feeds' typed channels into Market mutations
// and Events callbacks until ctx is cancelled.
func (e *Exchange) pumpEvents(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case evt := <-e.marketFeed.BookEvents():
				e.applyBookSnapshot(evt)
			case evt := <-e.marketFeed.PriceChangeEvents():
				e.applyPriceChange(evt)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case evt := <-e.accountFeed.OrderEvents():
				e.dispatchOrderEvent(evt)
			case evt := <-e.accountFeed.BalanceEvents():
				balance, err := money.Parse(evt.Balance)
				if err != nil {
					e.logger.Error("malformed balance event", "currency", evt.Currency, "error", err)
					continue
				}
				e.events.OnBalanceUpdate(e.name, evt.Currency, balance)
			}
		}
	})

	g.Wait()
}

func (e *Exchange) applyBookSnapshot(evt WSBookEvent) {
	m := e.marketFor(evt.Symbol)
	if m == nil {
		return
	}
	m.ResetPrices()
	for _, lvl := range evt.Bids {
		price, size, err := parseLevel(lvl)
		if err != nil {
			e.logger.Error("malformed bid level", "symbol", evt.Symbol, "error", err)
			continue
		}
		m.UpdateBid(price, size)
	}
	for _, lvl := range evt.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			e.logger.Error("malformed ask level", "symbol", evt.Symbol, "error", err)
			continue
		}
		m.UpdateAsk(price, size)
	}
	e.events.OnMarketUpdate(e.name, evt.Symbol)
}

func (e *Exchange) applyPriceChange(evt WSPriceChangeEvent) {
	m := e.marketFor(evt.Symbol)
	if m == nil {
		return
	}
	price, size, err := parseLevel(BookLevel{Price: evt.Price, Size: evt.Size})
	if err != nil {
		e.logger.Error("malformed price_change event", "symbol", evt.Symbol, "error", err)
		return
	}
	if evt.Side == "bid" {
		m.UpdateBid(price, size)
	} else {
		m.UpdateAsk(price, size)
	}
	e.events.OnMarketUpdate(e.name, evt.Symbol)
}

func parseLevel(lvl BookLevel) (price, size money.Decimal, err error) {
	price, err = money.Parse(lvl.Price)
	if err != nil {
		return price, size, fmt.Errorf("price: %w", err)
	}
	size, err = money.Parse(lvl.Size)
	if err != nil {
		return price, size, fmt.Errorf("size: %w", err)
	}
	return price, size, nil
}

func (e *Exchange) dispatchOrderEvent(evt WSOrderEvent) {
	e.ordersMu.Lock()
	o, ok := e.orders[evt.ClientID]
	if ok && evt.Status != "pending" {
		delete(e.orders, evt.ClientID)
	}
	e.ordersMu.Unlock()

	if !ok {
		e.logger.Warn("order update for unknown client id", "client_order_id", evt.ClientID)
		return
	}

	status := order.PENDING
	switch evt.Status {
	case "completed", "filled":
		status = order.COMPLETED
	case "rejected", "cancelled":
		status = order.REJECTED
	}
	e.events.OnOrderUpdate(o, status)
}

func (e *Exchange) marketFor(symbol string) *market.Market {
	e.marketsMu.RLock()
	defer e.marketsMu.RUnlock()
	return e.markets[symbol]
}

func sideString(s order.Side) string {
	if s == order.BUY {
		return "buy"
	}
	return "sell"
}
