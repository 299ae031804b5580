// Package orchestrator wires configuration into a running arbitrage
// engine: it builds the currency graph and markets from config, starts
// every enabled exchange adapter, drives the scanner and executor, and
// implements adapter.Events to route adapter callbacks back into the
// graph, the scanner, and the executor.
//
// Grounded on the teacher's internal/engine/engine.go (the slot-map of
// per-exchange clients, the WS-event-dispatch-by-lookup pattern, and the
// concurrent-initialize/graceful-stop lifecycle) and cmd/bot/main.go
// (config load -> logger setup -> engine start -> signal wait -> engine
// stop).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"arbitd/internal/adapter"
	"arbitd/internal/adapter/rest"
	"arbitd/internal/admission"
	"arbitd/internal/config"
	"arbitd/internal/executor"
	"arbitd/internal/graph"
	"arbitd/internal/journal"
	"arbitd/internal/journal/filejournal"
	"arbitd/internal/market"
	"arbitd/internal/money"
	"arbitd/internal/order"
	"arbitd/internal/rules"
	"arbitd/internal/scanner"
)

// Orchestrator owns the graph, the per-exchange adapters, the scanner,
// the executor, and the journal, and is the adapter.Events sink every
// adapter reports into.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	vertices map[string]*graph.ExchangeCurrency // "<exchange>:<code>" -> vertex
	markets  map[string]map[string]*market.Market // exchange -> symbol -> market

	adapters map[string]adapter.Adapter

	admissionState *admission.State
	journal        journal.Journal
	scanner        *scanner.Scanner
	executor       *executor.Executor

	tradingEnabled atomic.Bool

	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New builds an Orchestrator from cfg: the currency graph, the markets
// and deposit routes declared in cfg, every enabled exchange's adapter,
// and the scanner/executor/journal that drive them. Construction does
// not start any goroutines or network connections; call Start for that.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	orderMaxAmount, err := money.Parse(cfg.OrderMaxAmount)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: order_max_amount: %w", err)
	}
	minProfit, err := money.Parse(cfg.MinProfit)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: min_profit: %w", err)
	}

	o := &Orchestrator{
		cfg:      cfg,
		logger:   logger.With("component", "orchestrator"),
		vertices: make(map[string]*graph.ExchangeCurrency),
		markets:  make(map[string]map[string]*market.Market),
		adapters: make(map[string]adapter.Adapter),
	}
	o.tradingEnabled.Store(!cfg.DryRun)

	if err := o.buildGraph(cfg); err != nil {
		return nil, err
	}

	j, err := filejournal.Open(cfg.Journal.DataDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open journal: %w", err)
	}
	o.journal = j

	o.admissionState = admission.New(cfg.Admission.MultipleSequences, cfg.Admission.MaximumSequences, cfg.Admission.TimeBetweenSequences)

	execAdapters := make(map[string]executor.Adapter, len(o.adapters))
	for name, a := range o.adapters {
		execAdapters[name] = a
	}
	o.executor = executor.New(execAdapters, o.admissionState, o.journal, cfg.Admission.AllowSequentialWithinExchange, o.IsTradingEnabled, logger)

	o.scanner = scanner.New(dispatcherFunc(func(c market.Candidate) {
		candidatesScanned.Inc()
		sequencesAdmitted.Inc()
		o.executor.Execute(executor.Candidate{Profit: c.Profit, Orders: c.Orders})
	}), o.admissionState, orderMaxAmount, minProfit, logger)

	if err := o.buildAdapters(cfg); err != nil {
		return nil, err
	}

	return o, nil
}

// dispatcherFunc adapts a plain function to scanner.Dispatcher, bridging
// market.Candidate to executor.Candidate without letting the executor
// package import market (see executor.Candidate's doc comment).
type dispatcherFunc func(market.Candidate)

func (f dispatcherFunc) Execute(c market.Candidate) { f(c) }

func vertexKey(exchange, code string) string { return exchange + ":" + code }

// buildGraph constructs one ExchangeCurrency per (exchange, currency)
// combination declared across cfg.EnabledCurrencies and cfg.Exchanges,
// wires trading-pair markets and deposit routes as edges between them,
// and enumerates every arbitrage path starting from cfg.BaseCurrency on
// each enabled exchange.
func (o *Orchestrator) buildGraph(cfg *config.Config) error {
	for name, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}
		o.markets[name] = make(map[string]*market.Market)
		for _, code := range cfg.EnabledCurrencies {
			o.vertex(name, code)
		}
	}

	for exName, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}
		for _, mc := range ex.Markets {
			m, err := buildMarket(exName, mc)
			if err != nil {
				return fmt.Errorf("orchestrator: exchange %s market %s: %w", exName, mc.Symbol, err)
			}
			o.markets[exName][mc.Symbol] = m

			base := o.vertex(exName, mc.Base)
			quote := o.vertex(exName, mc.Quote)
			base.AddNeighbor(quote, m)
		}
	}

	for _, d := range cfg.Deposits {
		fromEx, ok1 := cfg.Exchanges[d.FromExchange]
		toEx, ok2 := cfg.Exchanges[d.ToExchange]
		if !ok1 || !ok2 || !fromEx.Enabled || !toEx.Enabled {
			continue
		}
		deposit := market.NewDeposit(d.FromExchange, d.ToExchange, d.Currency)
		if o.markets[d.FromExchange] == nil {
			o.markets[d.FromExchange] = make(map[string]*market.Market)
		}
		o.markets[d.FromExchange][deposit.Symbol()] = deposit

		from := o.vertex(d.FromExchange, d.Currency)
		to := o.vertex(d.ToExchange, d.Currency)
		from.AddNeighbor(to, deposit)
	}

	for name, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}
		start, ok := o.vertices[vertexKey(name, cfg.BaseCurrency)]
		if !ok {
			continue
		}
		// Paths self-register with every market they traverse (see
		// Path.AddCurrency), so the returned slice itself is discarded.
		graph.GenerateAllPaths(start, cfg.MaxDepth)
	}

	return nil
}

func (o *Orchestrator) vertex(exchange, code string) *graph.ExchangeCurrency {
	key := vertexKey(exchange, code)
	if v, ok := o.vertices[key]; ok {
		return v
	}
	v := graph.NewExchangeCurrency(graph.Intern(code), exchange)
	o.vertices[key] = v
	return v
}

func buildMarket(exchange string, mc config.MarketConfig) (*market.Market, error) {
	makerFee, err := money.Parse(mc.MakerFee)
	if err != nil {
		return nil, fmt.Errorf("maker_fee: %w", err)
	}
	takerFee, err := money.Parse(mc.TakerFee)
	if err != nil {
		return nil, fmt.Errorf("taker_fee: %w", err)
	}

	var ruleSet []rules.Rule
	if mc.SizeRule != nil {
		minimum, err := parseOrZero(mc.SizeRule.Minimum)
		if err != nil {
			return nil, fmt.Errorf("size_rule.minimum: %w", err)
		}
		maximum, err := parseOrZero(mc.SizeRule.Maximum)
		if err != nil {
			return nil, fmt.Errorf("size_rule.maximum: %w", err)
		}
		step, err := parseOrZero(mc.SizeRule.Step)
		if err != nil {
			return nil, fmt.Errorf("size_rule.step: %w", err)
		}
		ruleSet = append(ruleSet, rules.NewSizeRule(minimum, maximum, step))
	}
	if mc.ValueRule != nil {
		minValue, err := parseOrZero(mc.ValueRule.MinValue)
		if err != nil {
			return nil, fmt.Errorf("value_rule.min_value: %w", err)
		}
		ruleSet = append(ruleSet, rules.NewValueRule(minValue))
	}

	return market.New(exchange, mc.Symbol, mc.Base, mc.Quote, makerFee, takerFee, ruleSet), nil
}

func parseOrZero(s string) (money.Decimal, error) {
	if s == "" {
		return money.Zero, nil
	}
	return money.Parse(s)
}

// buildAdapters constructs the reference REST+WebSocket adapter.Adapter
// for every enabled exchange, handing each the slice of markets built
// for it by buildGraph and this Orchestrator as its Events sink.
func (o *Orchestrator) buildAdapters(cfg *config.Config) error {
	for name, ex := range cfg.Exchanges {
		if !ex.Enabled {
			continue
		}

		auth := rest.NewAuth(rest.Credentials{APIKey: ex.APIKey, Secret: ex.Secret, Passphrase: ex.Passphrase})
		rl := rest.NewRateLimiter(ex.RateLimits.OrderBurst, ex.RateLimits.OrderRate, ex.RateLimits.CancelBurst, ex.RateLimits.CancelRate, ex.RateLimits.BookBurst, ex.RateLimits.BookRate)
		client := rest.NewClient(ex.RESTBaseURL, auth, rl, cfg.DryRun, o.logger)
		marketFeed := rest.NewMarketFeed(ex.WSMarketURL, o.logger)
		accountFeed := rest.NewAccountFeed(ex.WSAccountURL, auth, o.logger)

		a := rest.NewExchange(name, client, marketFeed, accountFeed, o.markets[name], o, o.logger)
		o.adapters[name] = a
	}
	return nil
}

// Start initializes every enabled exchange adapter concurrently, begins
// the scan loop, and (if configured) serves /healthz and /metrics.
// Start blocks until every adapter's Initialize has returned or ctx is
// cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	for name, a := range o.adapters {
		name, a := name, a
		g.Go(func() error {
			if err := a.Initialize(gctx); err != nil {
				return fmt.Errorf("initialize %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cancel()
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.scanner.Run(runCtx)
	}()

	if o.cfg.Metrics.Enabled {
		o.startMetricsServer(o.cfg.Metrics.Port)
	}

	o.logger.Info("orchestrator started", "exchanges", len(o.adapters), "dry_run", o.cfg.DryRun)
	return nil
}

func (o *Orchestrator) startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	o.httpServer = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.logger.Error("metrics server stopped", "err", err)
		}
	}()
}

// Stop cancels the scan loop, stops every adapter, closes the journal,
// and shuts down the metrics server if one was started. Stop blocks
// until every background goroutine this Orchestrator owns has returned.
func (o *Orchestrator) Stop() error {
	if o.cancel != nil {
		o.cancel()
	}

	var firstErr error
	for name, a := range o.adapters {
		if err := a.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", name, err)
		}
	}

	if o.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.httpServer.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	o.wg.Wait()

	if err := o.journal.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// SetTradingEnabled toggles whether the executor may submit successor
// orders within an in-flight chain, mirroring the CLI's
// "activate"/TRADING=1 control surface.
func (o *Orchestrator) SetTradingEnabled(enabled bool) {
	o.tradingEnabled.Store(enabled)
}

// IsTradingEnabled reports the current trading toggle; passed to
// executor.New as its tradingEnabled poll function.
func (o *Orchestrator) IsTradingEnabled() bool {
	return o.tradingEnabled.Load()
}

// Balances returns every vertex's current settled balance, keyed by
// "<exchange>:<code>", for the CLI's "balances" command.
func (o *Orchestrator) Balances() map[string]money.Decimal {
	out := make(map[string]money.Decimal, len(o.vertices))
	for key, v := range o.vertices {
		out[key] = v.Balance()
	}
	return out
}

// --- adapter.Events ---

// OnOrderUpdate forwards a submitted order's terminal status to the
// executor and bumps the matching completion counter.
func (o *Orchestrator) OnOrderUpdate(ord *order.Order, status order.Status) {
	o.executor.OnOrderUpdate(ord, status)
	switch status {
	case order.COMPLETED:
		ordersCompleted.WithLabelValues(ord.Market().Exchange()).Inc()
	case order.REJECTED:
		ordersRejected.WithLabelValues(ord.Market().Exchange()).Inc()
	}
	if status == order.PENDING {
		ordersDispatched.WithLabelValues(ord.Market().Exchange()).Inc()
	}
}

// OnBalanceUpdate applies a new settled balance to the matching vertex.
func (o *Orchestrator) OnBalanceUpdate(exchange, currencyCode string, balance money.Decimal) {
	if v, ok := o.vertices[vertexKey(exchange, currencyCode)]; ok {
		v.SetBalance(balance)
	}
	activeSequences.Set(float64(o.admissionState.Current()))
}

// OnMarketUpdate schedules a rescan of the market an adapter just
// mutated.
func (o *Orchestrator) OnMarketUpdate(exchange, symbol string) {
	m, ok := o.markets[exchange][symbol]
	if !ok {
		return
	}
	o.scanner.ScheduleScan(m)
}
