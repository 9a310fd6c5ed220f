package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// BadgerStatusStore keeps status records in an embedded Badger database
// through badgerhold, keyed by job id.
type BadgerStatusStore struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

func OpenBadgerStatusStore(path string, logger *slog.Logger) (*BadgerStatusStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	logger.Info("badger status store opened", "path", path)
	return &BadgerStatusStore{store: store, logger: logger}, nil
}

func (s *BadgerStatusStore) Put(_ context.Context, rec entity.Record) error {
	if err := s.store.Upsert(rec.ID, rec); err != nil {
		return fmt.Errorf("put status %s: %w", rec.ID, err)
	}
	return nil
}

func (s *BadgerStatusStore) Get(_ context.Context, id string) (entity.Record, error) {
	var rec entity.Record
	if err := s.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return entity.Record{}, notFound(id)
		}
		return entity.Record{}, fmt.Errorf("get status %s: %w", id, err)
	}
	return rec, nil
}

func (s *BadgerStatusStore) List(_ context.Context) ([]entity.Record, error) {
	var all []entity.Record
	if err := s.store.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	sortRecords(all)
	return all, nil
}

// Sweep scans every record; status sets are small enough that an index on
// UpdatedAt is not worth maintaining.
func (s *BadgerStatusStore) Sweep(_ context.Context, before time.Time) (int, error) {
	var all []entity.Record
	if err := s.store.Find(&all, nil); err != nil {
		return 0, fmt.Errorf("sweep status: %w", err)
	}
	n := 0
	for _, rec := range all {
		if !expired(rec, before) {
			continue
		}
		if err := s.store.Delete(rec.ID, entity.Record{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return n, fmt.Errorf("sweep status %s: %w", rec.ID, err)
		}
		n++
	}
	return n, nil
}

func (s *BadgerStatusStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
