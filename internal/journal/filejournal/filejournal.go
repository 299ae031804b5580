// Package filejournal is the file-backed Journal implementation: two
// append-only JSON-lines files, one per record kind.
//
// Grounded on the teacher's internal/store/store.go write-tmp-then-rename
// pattern, adapted from whole-file snapshot replacement to append
// semantics, since a journal is a growing log rather than a single
// current-state snapshot. Each append opens the target file with
// O_APPEND|O_CREATE|O_WRONLY and writes one JSON object followed by a
// newline, all under a single mutex per spec.md's "Journal serializes
// writes with a single mutex."
package filejournal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"arbitd/internal/journal"
)

// FileJournal persists transfer and sequence records as JSON-lines files
// in a designated directory.
type FileJournal struct {
	mu sync.Mutex

	transfers *os.File
	sequences *os.File
}

// Open creates (or appends to) transfers.jsonl and sequences.jsonl inside
// dir.
func Open(dir string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filejournal: create dir: %w", err)
	}

	transfers, err := os.OpenFile(filepath.Join(dir, "transfers.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filejournal: open transfers.jsonl: %w", err)
	}

	sequences, err := os.OpenFile(filepath.Join(dir, "sequences.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		transfers.Close()
		return nil, fmt.Errorf("filejournal: open sequences.jsonl: %w", err)
	}

	return &FileJournal{transfers: transfers, sequences: sequences}, nil
}

// RecordTransfer appends one deposit-order row to transfers.jsonl.
func (f *FileJournal) RecordTransfer(t journal.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendLine(f.transfers, t)
}

// RecordSequence appends one admitted-sequence row to sequences.jsonl.
func (f *FileJournal) RecordSequence(s journal.Sequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendLine(f.sequences, s)
}

func appendLine(file *os.File, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("filejournal: marshal: %w", err)
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Close flushes and closes both underlying files.
func (f *FileJournal) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err1 := f.transfers.Close()
	err2 := f.sequences.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
