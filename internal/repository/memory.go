package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// MemoryStatusStore keeps status records in process memory. Readers never
// block each other; a writer blocks readers only for the map assignment.
type MemoryStatusStore struct {
	mu      sync.RWMutex
	records map[string]entity.Record
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{records: make(map[string]entity.Record)}
}

func (s *MemoryStatusStore) Put(_ context.Context, rec entity.Record) error {
	rec.Result = slices.Clone(rec.Result)
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatusStore) Get(_ context.Context, id string) (entity.Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return entity.Record{}, notFound(id)
	}
	rec.Result = slices.Clone(rec.Result)
	return rec, nil
}

func (s *MemoryStatusStore) List(_ context.Context) ([]entity.Record, error) {
	s.mu.RLock()
	out := make([]entity.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sortRecords(out)
	return out, nil
}

func (s *MemoryStatusStore) Sweep(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if expired(rec, before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStatusStore) Close() error { return nil }

// sortRecords orders by creation time, oldest first, then by id.
func sortRecords(recs []entity.Record) {
	slices.SortFunc(recs, func(a, b entity.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
