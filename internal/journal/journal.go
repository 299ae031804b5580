// Package journal defines the audit-log interface the Executor writes
// to: one append for every deposit (transfer) order and one append per
// admitted sequence.
package journal

import (
	"arbitd/internal/money"
)

// Transfer is one cross-exchange deposit record.
type Transfer struct {
	Amount           money.Decimal
	CurrencyCode     string
	SourceExchange   string
	TargetExchange   string
	UnixSeconds      int64
}

// Sequence is one admitted arbitrage sequence record. FinalAmount and
// Profit are the amounts expected when the sequence was admitted.
type Sequence struct {
	SequenceID     string
	InitialAmount  money.Decimal
	FinalAmount    money.Decimal
	Profit         money.Decimal
	UnixSeconds    int64
}

// Journal is the append-only audit log the core writes to. Implementations
// must serialize concurrent writers; callers never need their own lock.
//
// The Executor calls these after a sequence's chains are registered and
// before any of its orders is submitted, so a sequence is recorded even
// if its orders are later rejected. A failed write is logged and does
// not stop dispatch. Nothing reads the journal back to recover in-flight
// sequences after a restart.
type Journal interface {
	RecordTransfer(t Transfer) error
	RecordSequence(s Sequence) error
	Close() error
}
