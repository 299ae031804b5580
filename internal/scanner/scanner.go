// Package scanner drives the single logical scan loop: it consumes scan
// requests from a deduplicated queue keyed by Market identity, applies
// the admission-control policy, and hands the most profitable surviving
// candidate off to the Executor.
//
// Structurally grounded on the teacher's internal/market/scanner.go
// Run(ctx) channel-drain loop, generalized from a ticker-driven HTTP poll
// to an event-driven dequeue: here a scan is requested by a market data
// update rather than on a fixed schedule.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"arbitd/internal/admission"
	"arbitd/internal/market"
	"arbitd/internal/money"
)

// queueCapacity bounds the scan queue. In practice the queue holds at
// most one entry per distinct Market (see ScheduleScan's dedup check),
// so this is generous headroom rather than a hard constraint.
const queueCapacity = 4096

// Dispatcher receives the best candidate surfaced by a scan.
type Dispatcher interface {
	Execute(candidate market.Candidate)
}

// Scanner is the single logical scan consumer.
type Scanner struct {
	mu      sync.Mutex
	pending map[*market.Market]struct{}
	queue   chan *market.Market

	admission *admission.State

	orderMaxAmount money.Decimal
	minProfit      money.Decimal

	dispatcher Dispatcher
	logger     *slog.Logger
}

// New constructs a Scanner. orderMaxAmount seeds scan_paths's
// initial_amount; minProfit is the per-candidate profit floor.
func New(dispatcher Dispatcher, adm *admission.State, orderMaxAmount, minProfit money.Decimal, logger *slog.Logger) *Scanner {
	return &Scanner{
		pending:        make(map[*market.Market]struct{}),
		queue:          make(chan *market.Market, queueCapacity),
		admission:      adm,
		orderMaxAmount: orderMaxAmount,
		minProfit:      minProfit,
		dispatcher:     dispatcher,
		logger:         logger.With("component", "scanner"),
	}
}

// ScheduleScan enqueues m for scanning if it isn't already pending.
// Called by an exchange adapter immediately after it mutates m's
// ladders.
func (s *Scanner) ScheduleScan(m *market.Market) {
	s.mu.Lock()
	if _, already := s.pending[m]; already {
		s.mu.Unlock()
		return
	}
	s.pending[m] = struct{}{}
	s.mu.Unlock()

	select {
	case s.queue <- m:
	default:
		s.logger.Warn("scan queue full, dropping request", "market", m.Symbol())
		s.mu.Lock()
		delete(s.pending, m)
		s.mu.Unlock()
	}
}

// Run drains the scan queue until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-s.queue:
			if !ok {
				return
			}
			s.mu.Lock()
			delete(s.pending, m)
			s.mu.Unlock()
			s.process(m)
		}
	}
}

func (s *Scanner) process(m *market.Market) {
	if !s.admission.CanAdmit(time.Now()) {
		return
	}

	candidates := m.ScanPaths(s.orderMaxAmount, s.minProfit)
	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Profit.GreaterThan(best.Profit) {
			best = c
		}
	}

	s.logger.Info("admitted candidate", "profit", best.Profit.String(), "legs", len(best.Orders), "market", m.Symbol())
	s.dispatcher.Execute(best)
}
