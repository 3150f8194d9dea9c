// Package memstore is an in-memory wal.Store grounded on the teacher's
// runlog/inmem cursor-and-sequence design, adapted from opaque string
// cursors to plain sequence numbers since wal.Store paginates by seq.
package memstore

import (
	"context"
	"sync"

	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/wal"
)

// Store is a non-durable, process-local wal.Store.
type Store struct {
	mu      sync.Mutex
	nextSeq map[string]int64
	records map[string][]wal.Record
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		nextSeq: make(map[string]int64),
		records: make(map[string][]wal.Record),
	}
}

func (s *Store) Append(_ context.Context, runID string, env hooks.Envelope) (wal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq[runID]
	rec := wal.Record{Seq: seq, Envelope: env}
	s.records[runID] = append(s.records[runID], rec)
	s.nextSeq[runID] = seq + 1
	return rec, nil
}

func (s *Store) ReadPrefix(_ context.Context, runID string, upToSeq int64) ([]wal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, ok := s.records[runID]
	if !ok {
		return nil, &wal.ErrNotFound{RunID: runID}
	}
	if upToSeq < 0 || int(upToSeq) >= len(all)-1 {
		out := make([]wal.Record, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]wal.Record, upToSeq+1)
	copy(out, all[:upToSeq+1])
	return out, nil
}

func (s *Store) Fork(_ context.Context, runID string, forkSeq int64, newRunID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, ok := s.records[runID]
	if !ok {
		return &wal.ErrNotFound{RunID: runID}
	}
	n := int(forkSeq) + 1
	if n > len(all) {
		n = len(all)
	}
	forked := make([]wal.Record, n)
	for i := 0; i < n; i++ {
		env := all[i].Envelope
		env.RunID = newRunID
		forked[i] = wal.Record{Seq: all[i].Seq, Envelope: env}
	}
	s.records[newRunID] = forked
	s.nextSeq[newRunID] = int64(n)
	return nil
}

func (s *Store) Close() error { return nil }
