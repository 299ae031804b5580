package market

import (
	"testing"

	"arbitd/internal/money"
)

func TestLadderTopReturnsHighestBid(t *testing.T) {
	t.Parallel()
	l := NewLadder(Bid)
	l.Update(money.MustParse("100"), money.MustParse("1"))
	l.Update(money.MustParse("105"), money.MustParse("2"))
	l.Update(money.MustParse("98"), money.MustParse("3"))

	price, size, ok := l.Top()
	if !ok {
		t.Fatal("expected a top entry")
	}
	if !price.Equal(money.MustParse("105")) || !size.Equal(money.MustParse("2")) {
		t.Errorf("top = (%s, %s), want (105, 2)", price, size)
	}
}

func TestLadderTopReturnsLowestAsk(t *testing.T) {
	t.Parallel()
	l := NewLadder(Ask)
	l.Update(money.MustParse("100"), money.MustParse("1"))
	l.Update(money.MustParse("95"), money.MustParse("2"))

	price, _, ok := l.Top()
	if !ok || !price.Equal(money.MustParse("95")) {
		t.Errorf("top price = %s, want 95", price)
	}
}

func TestLadderUpdateWithZeroSizeRemoves(t *testing.T) {
	t.Parallel()
	l := NewLadder(Bid)
	l.Update(money.MustParse("100"), money.MustParse("1"))
	l.Update(money.MustParse("100"), money.Zero)

	_, _, ok := l.Top()
	if ok {
		t.Error("expected ladder to be empty after zero-size update")
	}
}

func TestLadderReset(t *testing.T) {
	t.Parallel()
	l := NewLadder(Bid)
	l.Update(money.MustParse("100"), money.MustParse("1"))
	l.Reset()

	_, _, ok := l.Top()
	if ok {
		t.Error("expected ladder to be empty after reset")
	}
}

func TestLadderEmptyTop(t *testing.T) {
	t.Parallel()
	l := NewLadder(Ask)
	_, _, ok := l.Top()
	if ok {
		t.Error("expected empty ladder to report ok=false")
	}
}
