package market

import (
	"fmt"

	"arbitd/internal/money"
	"arbitd/internal/order"
	"arbitd/internal/rules"
)

// maxRuleIterations bounds the fixed-point rule validation loop. Rules
// interact — ValueRule can raise a size above a SizeRule step boundary,
// requiring re-rounding — so convergence isn't guaranteed to be fast,
// but it must be guaranteed to terminate.
const maxRuleIterations = 100

// Path is the subset of a graph path a Market needs in order to run scan
// candidates through it: generate an order sequence for a given starting
// amount. The concrete implementation lives in package graph and is
// never imported here, keeping the dependency graph acyclic.
type Path interface {
	GenerateOrders(initialAmount money.Decimal) ([]*order.Order, bool)
}

// Candidate is one profitable order sequence surfaced by ScanPaths.
type Candidate struct {
	Profit money.Decimal
	Orders []*order.Order
}

// Market is one tradeable pair on one exchange: a bid ladder, an ask
// ladder, fee schedule, rule set, and the list of Paths that traverse it
// (so a book update can cheaply find which paths to rescan).
type Market struct {
	base, quote string
	exchange    string
	symbol      string

	makerFee money.Decimal
	takerFee money.Decimal

	bid *Ladder
	ask *Ladder

	rules     []rules.Rule
	isDeposit bool

	paths []Path
}

// New constructs a trading market.
func New(exchange, symbol, base, quote string, makerFee, takerFee money.Decimal, ruleSet []rules.Rule) *Market {
	return &Market{
		base: base, quote: quote,
		exchange: exchange, symbol: symbol,
		makerFee: makerFee, takerFee: takerFee,
		bid: NewLadder(Bid), ask: NewLadder(Ask),
		rules: ruleSet,
	}
}

// NewDeposit constructs the synthetic 1:1, zero-fee, rule-free market
// representing a deposit/withdrawal route between the same currency on
// two exchanges.
func NewDeposit(fromExchange, toExchange, currency string) *Market {
	m := &Market{
		base: currency, quote: currency,
		exchange:  fromExchange,
		symbol:    fmt.Sprintf("%s:%s->%s", currency, fromExchange, toExchange),
		makerFee:  money.Zero,
		takerFee:  money.Zero,
		bid:       NewLadder(Bid),
		ask:       NewLadder(Ask),
		isDeposit: true,
	}
	m.bid.SeedFlat(money.One, money.MustParse("1000000000"))
	m.ask.SeedFlat(money.One, money.MustParse("1000000000"))
	return m
}

func (m *Market) Base() string            { return m.base }
func (m *Market) Quote() string           { return m.quote }
func (m *Market) Exchange() string        { return m.exchange }
func (m *Market) Symbol() string          { return m.symbol }
func (m *Market) MakerFee() money.Decimal { return m.makerFee }
func (m *Market) TakerFee() money.Decimal { return m.takerFee }
func (m *Market) IsDeposit() bool         { return m.isDeposit }

// UpdateBid updates the bid ladder.
func (m *Market) UpdateBid(price, size money.Decimal) { m.bid.Update(price, size) }

// UpdateAsk updates the ask ladder.
func (m *Market) UpdateAsk(price, size money.Decimal) { m.ask.Update(price, size) }

// ResetPrices clears both ladders before a full book snapshot is
// applied. A deposit market keeps its seeded 1:1 book and is left
// unchanged.
func (m *Market) ResetPrices() {
	if m.isDeposit {
		return
	}
	m.bid.Reset()
	m.ask.Reset()
}

// BestBid returns the top of the bid ladder.
func (m *Market) BestBid() (price, size money.Decimal, ok bool) { return m.bid.Top() }

// BestAsk returns the top of the ask ladder.
func (m *Market) BestAsk() (price, size money.Decimal, ok bool) { return m.ask.Top() }

// RegisterPath records that p traverses this market, so a book update on
// m can trigger a rescan of exactly the paths affected.
func (m *Market) RegisterPath(p Path) {
	m.paths = append(m.paths, p)
}

// Paths returns every path registered against this market.
func (m *Market) Paths() []Path {
	return m.paths
}

// ApplyRules runs o through every rule in m.rules repeatedly until a full
// pass makes no further changes, or the iteration bound is exceeded, in
// which case it returns order.ErrImpossibleOrder. A deposit market has no
// rules and is therefore always a no-op here.
func (m *Market) ApplyRules(o *order.Order) error {
	for i := 0; i < maxRuleIterations; i++ {
		anyChange := false
		for _, r := range m.rules {
			changed, err := r.MakeValid(o)
			if err != nil {
				return err
			}
			if changed {
				anyChange = true
			}
		}
		if !anyChange {
			return nil
		}
	}
	return fmt.Errorf("%w: rule validation did not converge within %d iterations", order.ErrImpossibleOrder, maxRuleIterations)
}

// ScanPaths runs every path registered against this market with the
// given initialAmount and returns every candidate whose realized profit
// meets minProfit. Profit is (target amount of the last leg, with fees
// applied) / (source amount of the first leg) - 1.
func (m *Market) ScanPaths(initialAmount, minProfit money.Decimal) []Candidate {
	var candidates []Candidate

	for _, p := range m.paths {
		orders, ok := p.GenerateOrders(initialAmount)
		if !ok || len(orders) == 0 {
			continue
		}

		first := orders[0]
		last := orders[len(orders)-1]

		sourceAmount := first.SourceAmount()
		if money.IsZero(sourceAmount) {
			continue
		}
		targetAmount := last.TargetAmount(true)

		profit := targetAmount.Div(sourceAmount).Sub(money.One)
		if profit.GreaterThanOrEqual(minProfit) {
			candidates = append(candidates, Candidate{Profit: profit, Orders: orders})
		}
	}

	return candidates
}
