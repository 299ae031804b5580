// Package order implements the Order type: a typed directed trade across
// one market, the fixed-point rule validation loop, and target-amount
// resolution used by the path order generator's back-propagation step.
//
// Order deliberately depends on nothing but money and the two small
// interfaces declared below — Market and Currency. The concrete market
// and graph-vertex types live in other packages and satisfy these
// interfaces structurally, which keeps the dependency graph acyclic:
// market and rules both import order, order imports neither.
package order

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"arbitd/internal/money"
)

// Side is the direction of a trade.
type Side int

const (
	BUY Side = iota
	SELL
)

func (s Side) String() string {
	if s == BUY {
		return "BUY"
	}
	return "SELL"
}

// Status is the lifecycle state of a submitted order, reported by an
// Exchange Adapter via the asynchronous order-update callback.
type Status int

const (
	PENDING Status = iota
	COMPLETED
	REJECTED
)

func (s Status) String() string {
	switch s {
	case PENDING:
		return "PENDING"
	case COMPLETED:
		return "COMPLETED"
	case REJECTED:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// ErrImpossibleOrder is returned whenever no rule-compliant sizing exists
// for an order, or a requested target amount cannot be reached without
// exceeding the order's maximum size. Callers abandon the affected path.
var ErrImpossibleOrder = errors.New("order: impossible to satisfy rules")

// Market is the subset of a market that an Order needs: its fee schedule,
// its two currency codes, whether it's a synthetic deposit edge, and the
// ability to run this order through the market's rule set. The concrete
// implementation lives in package market.
type Market interface {
	Base() string
	Quote() string
	Exchange() string
	Symbol() string
	MakerFee() money.Decimal
	TakerFee() money.Decimal
	IsDeposit() bool
	// ApplyRules runs the market's fixed-point rule validation loop
	// against o, mutating o.quantity in place. Returns ErrImpossibleOrder
	// if no rule-compliant sizing exists within the bounded iteration count.
	ApplyRules(o *Order) error
}

// Currency is the subset of an exchange-currency vertex an Order needs:
// its code, which exchange it lives on, and its settled balance for the
// can-be-executed balance check.
type Currency interface {
	Code() string
	Exchange() string
	Balance() money.Decimal
}

// Order is a typed directed trade across one Market. Orders are created
// fresh on every scan cycle and are never mutated after handoff to the
// Executor.
type Order struct {
	price    money.Decimal
	quantity money.Decimal
	side     Side
	market   Market

	base  Currency // market.Base() vertex
	quote Currency // market.Quote() vertex

	maximumSize money.Decimal
	minimumSize money.Decimal

	id         string
	sequenceID string
}

// New constructs an Order. base and quote are the graph vertices for the
// market's two currencies (in either order — Order resolves source/target
// itself based on side). maximumAmount/minimumAmount seed maximumSize and
// minimumSize respectively.
func New(price, quantity money.Decimal, side Side, mkt Market, base, quote Currency, maximumAmount, minimumAmount money.Decimal) *Order {
	return &Order{
		price:       price,
		quantity:    quantity,
		side:        side,
		market:      mkt,
		base:        base,
		quote:       quote,
		maximumSize: maximumAmount,
		minimumSize: minimumAmount,
	}
}

// ID returns the order's unique identifier, lazily generated on first call.
func (o *Order) ID() string {
	if o.id == "" {
		o.id = uuid.NewString()
	}
	return o.id
}

// SetSequenceID associates this order with an executor-assigned sequence.
func (o *Order) SetSequenceID(id string) { o.sequenceID = id }

// SequenceID returns the associated sequence ID, or "" if unset.
func (o *Order) SequenceID() string { return o.sequenceID }

// Side returns BUY or SELL.
func (o *Order) Side() Side { return o.side }

// Market returns the market this order trades on.
func (o *Order) Market() Market { return o.market }

// Price returns the order's limit price.
func (o *Order) Price() money.Decimal { return o.price }

// Quantity returns the order's current size.
func (o *Order) Quantity() money.Decimal { return o.quantity }

// SetQuantity sets the order's size directly. This is the single quantity
// setter (the source's Order class defined an equivalent twice; only one
// is exposed here).
func (o *Order) SetQuantity(q money.Decimal) { o.quantity = q }

// MaximumSize returns the ceiling a rule may not push quantity above.
func (o *Order) MaximumSize() money.Decimal { return o.maximumSize }

// MinimumSize returns the floor a rule may not push quantity below.
func (o *Order) MinimumSize() money.Decimal { return o.minimumSize }

// SetMinimumSize adjusts the floor. Used by the path generator when it
// resizes a deposit order during back-propagation.
func (o *Order) SetMinimumSize(m money.Decimal) { o.minimumSize = m }

// IsDeposit reports whether this order trades on a synthetic deposit edge.
func (o *Order) IsDeposit() bool { return o.market.IsDeposit() }

// SourceCurrency returns the vertex this order draws funds from.
func (o *Order) SourceCurrency() Currency {
	if o.side == BUY {
		return o.quote
	}
	return o.base
}

// TargetCurrency returns the vertex this order deposits funds into.
func (o *Order) TargetCurrency() Currency {
	if o.side == BUY {
		return o.base
	}
	return o.quote
}

// SourceAmount returns the amount drawn from the source currency.
// BUY:  quantity × price (quote spent to acquire quantity of base)
// SELL: quantity (base given up)
func (o *Order) SourceAmount() money.Decimal {
	if o.side == BUY {
		return o.quantity.Mul(o.price)
	}
	return o.quantity
}

// TargetAmount returns the amount received in the target currency.
// includeFees=false returns the pre-fee amount; includeFees=true applies
// (1 − taker_fee), since every order this engine creates targets an
// immediate fill and therefore always pays the taker fee.
func (o *Order) TargetAmount(includeFees bool) money.Decimal {
	var gross money.Decimal
	if o.side == BUY {
		gross = o.quantity
	} else {
		gross = o.quantity.Mul(o.price)
	}
	if !includeFees {
		return gross
	}
	return gross.Mul(money.One.Sub(o.market.TakerFee()))
}

// SetTargetAmount adjusts quantity so the post-action target amount equals
// amount, then re-validates against the market's rules. Used by the path
// generator's back-propagation step when a downstream leg's size has been
// clamped and every upstream leg must be re-solved to match.
func (o *Order) SetTargetAmount(amount money.Decimal, includeFees bool) error {
	multiplier := money.One
	if includeFees {
		multiplier = money.One.Sub(o.market.TakerFee())
	}

	var newSize money.Decimal
	if o.side == BUY {
		if multiplier.IsZero() {
			return fmt.Errorf("%w: zero multiplier", ErrImpossibleOrder)
		}
		newSize = amount.Div(multiplier)
	} else {
		if o.price.IsZero() {
			return fmt.Errorf("%w: zero price on SELL", ErrImpossibleOrder)
		}
		denom := o.price.Mul(multiplier)
		if denom.IsZero() {
			return fmt.Errorf("%w: zero denominator", ErrImpossibleOrder)
		}
		newSize = amount.Div(denom)
	}

	if newSize.GreaterThan(o.maximumSize) {
		return fmt.Errorf("%w: target size %s exceeds maximum %s", ErrImpossibleOrder, newSize, o.maximumSize)
	}

	o.quantity = newSize
	o.minimumSize = newSize

	return o.MakeValid()
}

// MakeValid runs the order through its market's fixed-point rule
// validation loop. See Market.ApplyRules for the iteration bound and
// ErrImpossibleOrder conditions.
func (o *Order) MakeValid() error {
	return o.market.ApplyRules(o)
}

// CanBeExecuted reports whether the source currency's settled balance
// covers this order's source amount.
func (o *Order) CanBeExecuted() bool {
	return o.SourceCurrency().Balance().GreaterThanOrEqual(o.SourceAmount())
}

// Clone returns a shallow copy of o, safe to mutate independently. Used by
// the path generator's back-propagation step, which re-solves a copy of
// each upstream order rather than the original (the original may still be
// referenced elsewhere while the scan explores whether reduction succeeds).
func (o *Order) Clone() *Order {
	cp := *o
	cp.id = "" // a cloned order that survives is a distinct order, gets its own id
	return &cp
}
