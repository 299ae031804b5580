// Package executor partitions an admitted candidate order sequence into
// per-exchange chains, dispatches each chain's head concurrently, and
// advances each chain as order-update callbacks report COMPLETED or
// REJECTED terminal status.
//
// Grounded on the original's App.py parallelize_orders / execute_order /
// on_order_update trio: the partitioning and bookkeeping logic mirror
// that control flow; the concurrency mechanics (errgroup-based dispatch,
// mutex-protected per-sequence state) are expressed the way the teacher
// expresses background worker fan-out.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"arbitd/internal/admission"
	"arbitd/internal/journal"
	"arbitd/internal/money"
	"arbitd/internal/order"
)

// Adapter is the narrow submission surface the Executor needs from an
// exchange adapter: hand the order to the exchange. A non-nil error
// means the submission itself was rejected synchronously; a nil error
// means the order is now PENDING and its terminal status will arrive
// later via OnOrderUpdate.
type Adapter interface {
	Submit(ctx context.Context, o *order.Order) error
}

// ErrInsufficientBalance is returned when a sequence's first chain head
// cannot be funded at dispatch time; the whole sequence is rejected and
// admission state is left untouched.
var ErrInsufficientBalance = fmt.Errorf("executor: insufficient balance to dispatch sequence")

// ErrSequentialNotAllowed is returned when a chain has more than one
// order but allowSequentialWithinExchange is false.
var ErrSequentialNotAllowed = fmt.Errorf("executor: sequential chain within one exchange is not allowed")

type sequenceState struct {
	mu sync.Mutex

	id     string
	chains [][]*order.Order

	dispatched map[int]bool // chain index -> head submitted
	nextOf     map[string]*order.Order
	chainOf    map[string]int // order id -> chain index

	remaining int

	initialAmount money.Decimal
	finalAmount   money.Decimal
}

// Executor partitions, registers, and dispatches admitted sequences.
type Executor struct {
	mu        sync.Mutex
	sequences map[string]*sequenceState
	orderSeq  map[string]string // order id -> sequence id

	adapters map[string]Adapter

	admission *admission.State
	journal   journal.Journal

	allowSequentialWithinExchange bool
	tradingEnabled                func() bool

	logger *slog.Logger
	clock  func() time.Time
}

// Candidate mirrors market.Candidate without importing package market,
// keeping the executor's dependency surface to order/money/journal/admission.
type Candidate struct {
	Profit money.Decimal
	Orders []*order.Order
}

// New constructs an Executor. tradingEnabled is polled at dispatch time
// of each successor order, letting the CLI's "activate"/TRADING=1 toggle
// gate live submission without restructuring the executor.
func New(adapters map[string]Adapter, adm *admission.State, j journal.Journal, allowSequentialWithinExchange bool, tradingEnabled func() bool, logger *slog.Logger) *Executor {
	return &Executor{
		sequences:                     make(map[string]*sequenceState),
		orderSeq:                      make(map[string]string),
		adapters:                      adapters,
		admission:                     adm,
		journal:                       j,
		allowSequentialWithinExchange: allowSequentialWithinExchange,
		tradingEnabled:                tradingEnabled,
		logger:                        logger.With("component", "executor"),
		clock:                         time.Now,
	}
}

// partitionChains splits orders into maximal per-exchange chains. A
// deposit order always begins a new chain. Within a chain, any
// subsequent order that is independently executable (its source balance
// is already on hand) closes the current chain and starts a new one at
// that order — it does not need to wait for its chain-mate ahead of it.
func partitionChains(orders []*order.Order) [][]*order.Order {
	var chains [][]*order.Order
	var current []*order.Order

	for _, o := range orders {
		switch {
		case o.IsDeposit():
			if len(current) > 0 {
				chains = append(chains, current)
			}
			current = []*order.Order{o}
		case len(current) == 0:
			current = []*order.Order{o}
		case o.CanBeExecuted():
			chains = append(chains, current)
			current = []*order.Order{o}
		default:
			current = append(current, o)
		}
	}
	if len(current) > 0 {
		chains = append(chains, current)
	}
	return chains
}

// Execute runs a candidate sequence through partitioning, pre-flight,
// registration, journaling, and dispatch. Errors are logged; Execute
// never panics on a bad candidate, matching spec's "sequence-level
// failures at dispatch roll back the sequence registration and log the
// cause."
func (e *Executor) Execute(c Candidate) {
	if err := e.execute(c); err != nil {
		e.logger.Error("sequence rejected", "err", err)
	}
}

func (e *Executor) execute(c Candidate) error {
	if len(c.Orders) == 0 {
		return fmt.Errorf("executor: empty candidate")
	}

	chains := partitionChains(c.Orders)

	if !e.allowSequentialWithinExchange {
		for _, chain := range chains {
			if len(chain) > 1 {
				return ErrSequentialNotAllowed
			}
		}
	}

	// Pre-flight: only the very first chain's head is guaranteed funded
	// from the trader's currently-held starting balance; that's the only
	// head checked before admission. Later chains' heads may legitimately
	// depend on funds an earlier chain's order has not yet delivered (see
	// the cross-exchange deposit scenario) — those are dispatched only
	// once CanBeExecuted() becomes true, retried on every completion
	// event within this sequence rather than rejected up front.
	if !chains[0][0].CanBeExecuted() {
		return ErrInsufficientBalance
	}

	seqID := fmt.Sprintf("seq-%d-%p", e.clock().UnixNano(), &chains)
	seq := &sequenceState{
		id:            seqID,
		chains:        chains,
		dispatched:    make(map[int]bool),
		nextOf:        make(map[string]*order.Order),
		chainOf:       make(map[string]int),
		remaining:     len(c.Orders),
		initialAmount: c.Orders[0].SourceAmount(),
		finalAmount:   c.Orders[len(c.Orders)-1].TargetAmount(true),
	}

	for ci, chain := range chains {
		for i, o := range chain {
			o.SetSequenceID(seqID)
			seq.chainOf[o.ID()] = ci
			if i < len(chain)-1 {
				seq.nextOf[o.ID()] = chain[i+1]
			}
		}
	}

	e.mu.Lock()
	e.sequences[seqID] = seq
	for _, o := range c.Orders {
		e.orderSeq[o.ID()] = seqID
	}
	e.mu.Unlock()

	for _, o := range c.Orders {
		if o.IsDeposit() {
			e.recordTransfer(o)
		}
	}
	e.recordSequence(seq)

	now := e.clock()
	e.admission.Register(now)

	e.dispatchReady(seq)

	return nil
}

// dispatchReady submits the head of every not-yet-dispatched chain whose
// head is currently executable.
func (e *Executor) dispatchReady(seq *sequenceState) {
	seq.mu.Lock()
	var toSubmit []*order.Order
	for i, chain := range seq.chains {
		if seq.dispatched[i] {
			continue
		}
		head := chain[0]
		if head.CanBeExecuted() {
			seq.dispatched[i] = true
			toSubmit = append(toSubmit, head)
		}
	}
	seq.mu.Unlock()

	if len(toSubmit) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, o := range toSubmit {
		o := o
		g.Go(func() error {
			return e.submit(ctx, o)
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("chain head dispatch failed", "err", err)
	}
}

func (e *Executor) submit(ctx context.Context, o *order.Order) error {
	adapter, ok := e.adapters[o.Market().Exchange()]
	if !ok {
		e.OnOrderUpdate(o, order.REJECTED)
		return fmt.Errorf("executor: no adapter registered for exchange %q", o.Market().Exchange())
	}

	if err := adapter.Submit(ctx, o); err != nil {
		e.logger.Error("submit rejected", "order", o.ID(), "exchange", o.Market().Exchange(), "err", err)
		e.OnOrderUpdate(o, order.REJECTED)
		return err
	}
	return nil
}

// OnOrderUpdate is the Exchange Adapter's completion callback.
func (e *Executor) OnOrderUpdate(o *order.Order, status order.Status) {
	e.mu.Lock()
	seqID, ok := e.orderSeq[o.ID()]
	if !ok {
		e.mu.Unlock()
		return
	}
	seq := e.sequences[seqID]
	e.mu.Unlock()

	if seq == nil {
		return
	}

	seq.mu.Lock()
	switch status {
	case order.COMPLETED:
		seq.remaining--
		next, hasNext := seq.nextOf[o.ID()]
		seq.mu.Unlock()

		if hasNext && next != nil && e.tradingEnabled() {
			g, ctx := errgroup.WithContext(context.Background())
			g.Go(func() error { return e.submit(ctx, next) })
			_ = g.Wait()
		}
		e.dispatchReady(seq)

	case order.REJECTED:
		descendants := e.countUndispatchedDescendants(seq, o)
		seq.remaining -= 1 + descendants
		seq.mu.Unlock()

	default:
		seq.mu.Unlock()
		return
	}

	e.maybeComplete(seqID, seq)
}

// countUndispatchedDescendants counts every order still downstream of o
// within its chain, none of which will ever be submitted once o has been
// rejected, so they must be synthetically decremented to keep
// remaining_leg_count reaching zero.
func (e *Executor) countUndispatchedDescendants(seq *sequenceState, o *order.Order) int {
	n := 0
	cur, ok := seq.nextOf[o.ID()]
	for ok && cur != nil {
		n++
		cur, ok = seq.nextOf[cur.ID()]
	}
	return n
}

func (e *Executor) maybeComplete(seqID string, seq *sequenceState) {
	seq.mu.Lock()
	done := seq.remaining <= 0
	seq.mu.Unlock()

	if !done {
		return
	}

	e.admission.Complete()

	e.mu.Lock()
	delete(e.sequences, seqID)
	for _, chain := range seq.chains {
		for _, o := range chain {
			delete(e.orderSeq, o.ID())
		}
	}
	e.mu.Unlock()

	e.logger.Info("sequence completed", "sequence_id", seqID)
}

func (e *Executor) recordTransfer(o *order.Order) {
	if e.journal == nil {
		return
	}
	t := journal.Transfer{
		Amount:         o.SourceAmount(),
		CurrencyCode:   o.SourceCurrency().Code(),
		SourceExchange: o.SourceCurrency().Exchange(),
		TargetExchange: o.TargetCurrency().Exchange(),
		UnixSeconds:    e.clock().Unix(),
	}
	if err := e.journal.RecordTransfer(t); err != nil {
		e.logger.Error("failed to record transfer", "err", err)
	}
}

func (e *Executor) recordSequence(seq *sequenceState) {
	if e.journal == nil {
		return
	}
	profit := money.Zero
	if !money.IsZero(seq.initialAmount) {
		profit = seq.finalAmount.Div(seq.initialAmount).Sub(money.One)
	}
	s := journal.Sequence{
		SequenceID:    seq.id,
		InitialAmount: seq.initialAmount,
		FinalAmount:   seq.finalAmount,
		Profit:        profit,
		UnixSeconds:   e.clock().Unix(),
	}
	if err := e.journal.RecordSequence(s); err != nil {
		e.logger.Error("failed to record sequence", "err", err)
	}
}
