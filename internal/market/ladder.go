// Package market implements the per-exchange order book ladders, the
// Market type that owns a pair of ladders plus its rule set, and the
// per-scan profit computation that feeds the scanner.
package market

import (
	"sync"

	"arbitd/internal/money"
)

// level is one price/size entry in a Ladder.
type level struct {
	price money.Decimal
	size  money.Decimal
}

// Side distinguishes which edge of the book a Ladder represents, which
// determines "best": highest price for bids, lowest price for asks.
type Side int

const (
	Bid Side = iota
	Ask
)

// Ladder is a single side of an order book. The core deliberately models
// only the top level: Update keeps the full set of quoted levels (small
// in practice — a handful per side) so that removing the current best
// correctly exposes the next one, but Top only ever returns the single
// best entry. A btree or skiplist would be overkill at this size; a
// mutex-protected slice with a linear scan on update is simpler and
// plenty fast, grounded on the teacher's own whole-snapshot-replace
// approach to book state.
type Ladder struct {
	mu     sync.Mutex
	side   Side
	levels []level
}

// NewLadder constructs an empty Ladder for the given side.
func NewLadder(side Side) *Ladder {
	return &Ladder{side: side}
}

// Update inserts, overwrites, or (if size is zero) removes the level at
// price.
func (l *Ladder) Update(price, size money.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.levels {
		if l.levels[i].price.Equal(price) {
			if money.IsZero(size) {
				l.levels = append(l.levels[:i], l.levels[i+1:]...)
			} else {
				l.levels[i].size = size
			}
			return
		}
	}

	if !money.IsZero(size) {
		l.levels = append(l.levels, level{price: price, size: size})
	}
}

// Top returns the best (price, size) in the ladder and true, or the zero
// value and false if the ladder is empty.
func (l *Ladder) Top() (price, size money.Decimal, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.levels) == 0 {
		return money.Zero, money.Zero, false
	}

	best := l.levels[0]
	for _, lv := range l.levels[1:] {
		if l.side == Bid && lv.price.GreaterThan(best.price) {
			best = lv
		}
		if l.side == Ask && lv.price.LessThan(best.price) {
			best = lv
		}
	}
	return best.price, best.size, true
}

// Reset clears all levels.
func (l *Ladder) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = nil
}

// SeedFlat installs a single unbounded level, used to initialize a
// deposit market's synthetic 1:1 book.
func (l *Ladder) SeedFlat(price, size money.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = []level{{price: price, size: size}}
}
