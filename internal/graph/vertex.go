package graph

import (
	"sync"

	"arbitd/internal/market"
	"arbitd/internal/money"
)

// edge is one outgoing connection from an ExchangeCurrency: the vertex it
// leads to, and the Market that represents the trade (or deposit route).
type edge struct {
	currency *ExchangeCurrency
	market   *market.Market
}

// ExchangeCurrency is one vertex of the arbitrage graph: a Currency as
// held on a specific exchange, with its own balance and its own set of
// outgoing edges (trading pairs and deposit routes). It satisfies
// order.Currency.
type ExchangeCurrency struct {
	currency *Currency
	exchange string

	mu      sync.RWMutex
	balance money.Decimal
	edges   map[string]edge
}

// NewExchangeCurrency constructs a vertex for currency on exchange, with
// zero balance and no edges.
func NewExchangeCurrency(currency *Currency, exchange string) *ExchangeCurrency {
	return &ExchangeCurrency{
		currency: currency,
		exchange: exchange,
		balance:  money.Zero,
		edges:    make(map[string]edge),
	}
}

// Code returns the underlying currency's code.
func (v *ExchangeCurrency) Code() string { return v.currency.Code }

// Exchange returns the exchange this vertex lives on.
func (v *ExchangeCurrency) Exchange() string { return v.exchange }

// ID uniquely identifies this vertex within the whole graph.
func (v *ExchangeCurrency) ID() string { return v.currency.Code + "_" + v.exchange }

// Balance returns the currently known settled balance.
func (v *ExchangeCurrency) Balance() money.Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balance
}

// SetBalance overwrites the settled balance, as reported by a balance
// snapshot from the exchange adapter.
func (v *ExchangeCurrency) SetBalance(b money.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance = b
}

// AddBalance applies a delta to the settled balance, as reported when an
// order fill or deposit settles.
func (v *ExchangeCurrency) AddBalance(delta money.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance = v.balance.Add(delta)
}

// AddNeighbor connects v to target via m, and wires the reverse edge on
// target back to v so the graph can be traversed from either side. Keyed
// by the target's vertex identity rather than its bare currency code, so
// a vertex may hold more than one deposit edge to the same currency code
// on different exchanges (e.g. BTC: ex1->ex2 and BTC: ex1->ex3) without
// the second AddNeighbor call silently no-oping.
func (v *ExchangeCurrency) AddNeighbor(target *ExchangeCurrency, m *market.Market) {
	if _, exists := v.edges[target.ID()]; exists {
		return
	}
	v.edges[target.ID()] = edge{currency: target, market: m}
	target.AddNeighbor(v, m)
}

// Neighbors returns the vertex identities reachable in one hop from v.
func (v *ExchangeCurrency) Neighbors() []string {
	ids := make([]string, 0, len(v.edges))
	for id := range v.edges {
		ids = append(ids, id)
	}
	return ids
}

// EdgeTo returns the vertex and market reachable via the edge to the
// vertex identity target, or ok=false if no such edge exists.
func (v *ExchangeCurrency) EdgeTo(target string) (*ExchangeCurrency, *market.Market, bool) {
	e, ok := v.edges[target]
	if !ok {
		return nil, nil, false
	}
	return e.currency, e.market, true
}
