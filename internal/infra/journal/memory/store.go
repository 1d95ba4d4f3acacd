// Package memory provides an in-memory journal store for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"edcohort/internal/journal/core"
)

var _ core.Store = (*Store)(nil)

// Store keeps run records in process memory.
type Store struct {
	mu   sync.RWMutex
	recs []core.Record
}

// New returns an empty in-memory journal store.
func New() *Store { return &Store{} }

// Append records the run, replacing any earlier record with the same RunID.
func (s *Store) Append(_ context.Context, rec core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.recs[i].RunID == rec.RunID {
			s.recs[i] = cloneRecord(rec)
			return nil
		}
	}
	s.recs = append(s.recs, cloneRecord(rec))
	return nil
}

// List returns the records for pipeline ordered by start time ascending.
func (s *Store) List(_ context.Context, pipeline string) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Record
	for _, r := range s.recs {
		if r.Pipeline == pipeline {
			out = append(out, cloneRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// Latest returns the most recent record for pipeline, if any.
func (s *Store) Latest(ctx context.Context, pipeline string) (core.Record, bool, error) {
	recs, err := s.List(ctx, pipeline)
	if err != nil || len(recs) == 0 {
		return core.Record{}, false, err
	}
	return recs[len(recs)-1], true, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func cloneRecord(rec core.Record) core.Record {
	out := rec
	if rec.Stages != nil {
		out.Stages = append([]core.StageReport(nil), rec.Stages...)
	}
	if rec.Diagnostics != nil {
		out.Diagnostics = make(map[string]int, len(rec.Diagnostics))
		for k, v := range rec.Diagnostics {
			out.Diagnostics[k] = v
		}
	}
	return out
}
