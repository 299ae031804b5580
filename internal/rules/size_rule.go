package rules

import (
	"arbitd/internal/money"
	"arbitd/internal/order"
)

// SizeRule enforces a minimum size, maximum size, and step (lot size) on
// an order's quantity. A zero minimum or maximum is treated as "no
// constraint" on that bound, matching the source's "> 0" guards.
type SizeRule struct {
	Minimum money.Decimal
	Maximum money.Decimal
	Step    money.Decimal
}

func NewSizeRule(minimum, maximum, step money.Decimal) *SizeRule {
	return &SizeRule{Minimum: minimum, Maximum: maximum, Step: step}
}

func (r *SizeRule) MakeValid(o *order.Order) (bool, error) {
	if money.IsPositive(r.Minimum) && r.Minimum.GreaterThan(o.MaximumSize()) {
		return false, order.ErrImpossibleOrder
	}

	if (money.IsPositive(r.Maximum) && r.Maximum.LessThan(o.MinimumSize())) || o.MaximumSize().LessThan(o.MinimumSize()) {
		return false, order.ErrImpossibleOrder
	}

	changed := false

	if money.IsPositive(r.Minimum) && r.Minimum.GreaterThan(o.Quantity()) {
		o.SetQuantity(r.Minimum)
		changed = true
	}

	if money.IsPositive(r.Maximum) && r.Maximum.LessThan(o.Quantity()) {
		o.SetQuantity(r.Maximum)
		changed = true
	}

	if !money.IsZero(r.Step) {
		mod := o.Quantity().Mod(r.Step)

		if !money.IsZero(mod) {
			firstOption := o.Quantity().Sub(mod)

			if firstOption.GreaterThanOrEqual(o.MinimumSize()) && firstOption.LessThan(o.MaximumSize()) {
				o.SetQuantity(firstOption)
			} else {
				// The source computes this as size + mod, which rounds down a
				// second time instead of up to the next step boundary. We round
				// up correctly: size + (step - mod).
				secondOption := o.Quantity().Add(r.Step.Sub(mod))

				if secondOption.GreaterThanOrEqual(o.MinimumSize()) && secondOption.LessThan(o.MaximumSize()) {
					o.SetQuantity(secondOption)
				} else {
					return false, order.ErrImpossibleOrder
				}
			}

			changed = true
		}
	}

	return changed, nil
}
