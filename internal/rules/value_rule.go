package rules

import (
	"arbitd/internal/money"
	"arbitd/internal/order"
)

// ValueRule enforces a minimum notional value (price * size) on an
// order. It can only grow an order's size, never shrink it, and reports
// no change even when it does adjust the size — matching the source.
// Because the adjustment is not reported, a validation pass in which
// only ValueRule changes the size ends the fixed-point loop; SizeRule
// re-checks the new size only when some rule reported a change in that
// same pass.
type ValueRule struct {
	MinValue money.Decimal
}

func NewValueRule(minValue money.Decimal) *ValueRule {
	return &ValueRule{MinValue: minValue}
}

func (r *ValueRule) MakeValid(o *order.Order) (bool, error) {
	value := o.Price().Mul(o.Quantity())

	if value.LessThan(r.MinValue) {
		if money.IsZero(o.Price()) {
			return false, order.ErrImpossibleOrder
		}

		// Ceil rather than Div: a quotient that doesn't terminate within
		// decimal's default precision must still round up, or the
		// resulting size*price can land fractionally below MinValue.
		minSize := money.DivCeil(r.MinValue, o.Price())
		if minSize.GreaterThan(o.MaximumSize()) {
			return false, order.ErrImpossibleOrder
		}

		o.SetQuantity(minSize)
	}

	return false, nil
}
