// Package rules implements the per-market sizing constraints (minimum/
// maximum/step size, minimum notional value) that an Order must satisfy
// before it can be submitted to an exchange. A Market owns an ordered
// list of Rules and runs every order through all of them, repeatedly,
// until a fixed point is reached.
package rules

import (
	"arbitd/internal/order"
)

// Rule tries to make an order compliant with one market constraint.
// MakeValid reports whether it changed the order's size, and returns
// order.ErrImpossibleOrder if no compliant size exists.
type Rule interface {
	MakeValid(o *order.Order) (changed bool, err error)
}
