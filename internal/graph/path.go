package graph

import (
	"arbitd/internal/market"
	"arbitd/internal/money"
	"arbitd/internal/order"
)

// leg is one edge of a Path, resolved once when the path is built: which
// market it trades on, which side the trade is, and which endpoint plays
// base vs. quote for that market.
type leg struct {
	mkt         *market.Market
	side        order.Side
	base, quote *ExchangeCurrency
}

// Path is a cycle through the currency graph: an ordered list of
// vertices beginning and ending at the same currency, and the resolved
// legs between consecutive vertices. A Path registers itself with every
// market it traverses so a book update on that market knows which paths
// to rescan. Path satisfies market.Path.
type Path struct {
	currencies []*ExchangeCurrency
	legs       []leg
}

// NewPath returns an empty path.
func NewPath() *Path {
	return &Path{}
}

// AddCurrency appends c to the path. Once a second currency has been
// added, the edge between the two most recently added currencies is
// resolved into a leg and the path registers itself with that leg's
// market.
func (p *Path) AddCurrency(c *ExchangeCurrency) {
	p.currencies = append(p.currencies, c)

	if len(p.currencies) < 2 {
		return
	}

	previous := p.currencies[len(p.currencies)-2]
	neighbor, mkt, ok := previous.EdgeTo(c.ID())
	if !ok {
		panic("graph: AddCurrency called with a currency not adjacent to the path's last vertex")
	}

	var l leg
	l.mkt = mkt
	if mkt.Base() == previous.Code() {
		l.side = order.SELL
		l.base, l.quote = previous, neighbor
	} else {
		l.side = order.BUY
		l.base, l.quote = neighbor, previous
	}

	p.legs = append(p.legs, l)
	mkt.RegisterPath(p)
}

// Currencies returns the ordered vertex sequence making up the cycle.
func (p *Path) Currencies() []*ExchangeCurrency { return p.currencies }

// String renders the path as a dash-joined sequence of vertex IDs, for
// logging.
func (p *Path) String() string {
	s := ""
	for i, c := range p.currencies {
		if i > 0 {
			s += " - "
		}
		s += c.ID()
	}
	return s
}

// GenerateOrders solves this path for a concrete starting amount,
// walking legs front-to-back and propagating the amount realized by each
// leg into the next. If any leg's top-of-book size forces a reduction
// below what upstream legs were sized for, every upstream leg is
// re-solved (via a shallow copy) to match the new bottleneck before the
// reducing leg is appended — see reduceChain.
func (p *Path) GenerateOrders(initialAmount money.Decimal) ([]*order.Order, bool) {
	var orders []*order.Order
	currentAmount := initialAmount

	for _, l := range p.legs {
		var price, topSize money.Decimal
		var ok bool
		if l.side == order.BUY {
			price, topSize, ok = l.mkt.BestAsk()
		} else {
			price, topSize, ok = l.mkt.BestBid()
		}
		if !ok {
			return nil, false
		}

		var desired money.Decimal
		if l.side == order.BUY {
			if money.IsZero(price) {
				return nil, false
			}
			desired = currentAmount.Div(price)
		} else {
			desired = currentAmount
		}

		reduce := false
		quantity := desired
		if desired.GreaterThan(topSize) {
			reduce = true
			quantity = topSize
		}

		o := order.New(price, quantity, l.side, l.mkt, l.base, l.quote, quantity, money.Zero)
		if err := o.MakeValid(); err != nil {
			return nil, false
		}

		if reduce {
			resolved, ok := reduceChain(orders, o)
			if !ok {
				return nil, false
			}
			orders = resolved
		} else {
			orders = append(orders, o)
		}

		currentAmount = orders[len(orders)-1].TargetAmount(true)
	}

	return orders, true
}

// reduceChain re-solves every already-emitted order in prefix, back to
// front, so each one's target amount matches the source amount of the
// order immediately downstream of it, ending with newLast appended at
// the tail. A deposit order is simply resized; a trading order is
// re-solved via SetTargetAmount, which also re-validates it against its
// market's rules. If any step can't be satisfied, the whole path is
// abandoned.
func reduceChain(prefix []*order.Order, newLast *order.Order) ([]*order.Order, bool) {
	resolved := make([]*order.Order, len(prefix)+1)
	resolved[len(resolved)-1] = newLast

	nextSourceAmount := newLast.SourceAmount()

	for i := len(prefix) - 1; i >= 0; i-- {
		cp := prefix[i].Clone()

		if cp.IsDeposit() {
			cp.SetQuantity(nextSourceAmount)
			cp.SetMinimumSize(nextSourceAmount)
			if err := cp.MakeValid(); err != nil {
				return nil, false
			}
		} else {
			// includeFees=true: the upstream leg's actual delivered (post
			// taker-fee) amount must match the downstream leg's required
			// source amount, not its pre-fee gross target.
			if err := cp.SetTargetAmount(nextSourceAmount, true); err != nil {
				return nil, false
			}
		}

		resolved[i] = cp
		nextSourceAmount = cp.SourceAmount()
	}

	return resolved, true
}
