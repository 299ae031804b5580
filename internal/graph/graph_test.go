package graph

import (
	"testing"

	"arbitd/internal/market"
	"arbitd/internal/money"
)

func buildTriangle(t *testing.T) (*ExchangeCurrency, *ExchangeCurrency, *ExchangeCurrency) {
	t.Helper()
	usd := NewExchangeCurrency(Intern("USD"), "ex1")
	btc := NewExchangeCurrency(Intern("BTC"), "ex1")
	eth := NewExchangeCurrency(Intern("ETH"), "ex1")

	usdBtc := market.New("ex1", "BTC-USD", "BTC", "USD", money.Zero, money.Zero, nil)
	btcEth := market.New("ex1", "ETH-BTC", "ETH", "BTC", money.Zero, money.Zero, nil)
	ethUsd := market.New("ex1", "ETH-USD", "ETH", "USD", money.Zero, money.Zero, nil)

	usd.AddNeighbor(btc, usdBtc)
	btc.AddNeighbor(eth, btcEth)
	eth.AddNeighbor(usd, ethUsd)

	usdBtc.UpdateAsk(money.MustParse("100"), money.MustParse("10"))
	usdBtc.UpdateBid(money.MustParse("99"), money.MustParse("10"))
	btcEth.UpdateAsk(money.MustParse("0.1"), money.MustParse("10"))
	btcEth.UpdateBid(money.MustParse("0.09"), money.MustParse("10"))
	ethUsd.UpdateAsk(money.MustParse("11"), money.MustParse("1000"))
	ethUsd.UpdateBid(money.MustParse("12"), money.MustParse("1000"))

	return usd, btc, eth
}

func TestGenerateAllPathsFindsTriangle(t *testing.T) {
	t.Parallel()
	usd, _, _ := buildTriangle(t)

	paths := GenerateAllPaths(usd, 3)
	if len(paths) == 0 {
		t.Fatal("expected at least one cycle back to USD")
	}

	foundTriangle := false
	for _, p := range paths {
		if len(p.Currencies()) == 4 {
			foundTriangle = true
		}
	}
	if !foundTriangle {
		t.Error("expected a three-leg cycle USD -> BTC -> ETH -> USD (or its reverse) among the paths")
	}
}

func TestGenerateAllPathsExcludesDepositAsFirstMove(t *testing.T) {
	t.Parallel()
	usdEx1 := NewExchangeCurrency(Intern("USD"), "ex1")
	usdEx2 := NewExchangeCurrency(Intern("USD"), "ex2")
	deposit := market.NewDeposit("ex1", "ex2", "USD")
	usdEx1.AddNeighbor(usdEx2, deposit)

	paths := GenerateAllPaths(usdEx1, 3)
	if len(paths) != 0 {
		t.Errorf("expected no paths (only neighbor is a deposit edge), got %d", len(paths))
	}
}

func TestPathGenerateOrdersProfitable(t *testing.T) {
	t.Parallel()
	usd, btc, eth := buildTriangle(t)
	_ = btc
	_ = eth

	paths := GenerateAllPaths(usd, 3)
	if len(paths) == 0 {
		t.Fatal("expected a cycle")
	}

	found := false
	for _, p := range paths {
		orders, ok := p.GenerateOrders(money.MustParse("1000"))
		if ok && len(orders) > 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one path to generate a valid order chain")
	}
}

func TestGenerateOrdersReducesToThinTopOfBook(t *testing.T) {
	t.Parallel()
	usd := NewExchangeCurrency(Intern("USD2"), "ex1")
	btc := NewExchangeCurrency(Intern("BTC2"), "ex1")
	eth := NewExchangeCurrency(Intern("ETH2"), "ex1")

	usdBtc := market.New("ex1", "BTC2-USD2", "BTC2", "USD2", money.Zero, money.Zero, nil)
	btcEth := market.New("ex1", "ETH2-BTC2", "ETH2", "BTC2", money.Zero, money.Zero, nil)
	ethUsd := market.New("ex1", "ETH2-USD2", "ETH2", "USD2", money.Zero, money.Zero, nil)

	usd.AddNeighbor(btc, usdBtc)
	btc.AddNeighbor(eth, btcEth)
	eth.AddNeighbor(usd, ethUsd)

	// thin books everywhere: large starting amount should trigger reduce
	usdBtc.UpdateAsk(money.MustParse("100"), money.MustParse("0.01"))
	usdBtc.UpdateBid(money.MustParse("99"), money.MustParse("0.01"))
	btcEth.UpdateAsk(money.MustParse("0.1"), money.MustParse("0.01"))
	btcEth.UpdateBid(money.MustParse("0.09"), money.MustParse("0.01"))
	ethUsd.UpdateAsk(money.MustParse("11"), money.MustParse("0.01"))
	ethUsd.UpdateBid(money.MustParse("12"), money.MustParse("0.01"))

	paths := GenerateAllPaths(usd, 3)
	found := false
	for _, p := range paths {
		orders, ok := p.GenerateOrders(money.MustParse("1000000"))
		if ok {
			if len(orders) == 0 {
				t.Error("ok=true but no orders returned")
				continue
			}
			found = true
			if orders[0].Quantity().GreaterThan(money.MustParse("0.01")) {
				t.Errorf("first leg quantity = %s, want at most the 0.01 top-of-book size", orders[0].Quantity())
			}
		}
	}
	if !found {
		t.Error("expected at least one path to be reduced to the thin books rather than abandoned")
	}
}
