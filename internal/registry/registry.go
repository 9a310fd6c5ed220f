// Package registry owns job identities and status records and enforces the
// PENDING -> PROGRESS* -> SUCCESS|FAILURE lifecycle on top of a Store.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// Store persists status records. Get must return an error matching
// common.ErrNotFound for unknown ids.
type Store interface {
	Put(ctx context.Context, rec entity.Record) error
	Get(ctx context.Context, id string) (entity.Record, error)
	List(ctx context.Context) ([]entity.Record, error)
	Sweep(ctx context.Context, before time.Time) (int, error)
}

// ErrIllegalTransition is returned when a write would move a record
// backwards or rewrite a terminal record.
var ErrIllegalTransition = errors.New("illegal status transition")

type Registry struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger

	// transitions are read-check-write; serialize them per process.
	mu sync.Mutex
}

type Option func(*Registry)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(store Store, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{store: store, now: time.Now, logger: logger}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create writes a fresh PENDING record.
func (r *Registry) Create(ctx context.Context, id string, t constants.JobType) (entity.Record, error) {
	rec := entity.NewPendingRecord(id, t, r.now().UTC())
	if err := r.store.Put(ctx, rec); err != nil {
		return entity.Record{}, fmt.Errorf("create status %s: %w", id, err)
	}
	r.logger.Info("registry.created", "job_id", id, "job_type", t)
	return rec, nil
}

// Get returns the current record; unknown ids yield common.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (entity.Record, error) {
	return r.store.Get(ctx, id)
}

func (r *Registry) List(ctx context.Context) ([]entity.Record, error) {
	return r.store.List(ctx)
}

// Progress moves the record to PROGRESS with a stage label.
func (r *Registry) Progress(ctx context.Context, id, label string) error {
	return r.transition(ctx, id, constants.JobStateProgress, func(rec *entity.Record) {
		rec.StageMessage = label
	})
}

// Succeed stores result as the terminal SUCCESS payload.
func (r *Registry) Succeed(ctx context.Context, id string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return r.Fail(ctx, id, common.NewJobError(common.KindInternal, "encode result", err))
	}
	return r.transition(ctx, id, constants.JobStateSuccess, func(rec *entity.Record) {
		rec.Result = b
	})
}

// Fail records cause as the terminal FAILURE. Only the kind and the
// poller-safe message are kept.
func (r *Registry) Fail(ctx context.Context, id string, cause error) error {
	detail := &entity.ErrorDetail{Kind: common.KindOf(cause), Message: common.MessageOf(cause)}
	return r.transition(ctx, id, constants.JobStateFailure, func(rec *entity.Record) {
		rec.Error = detail
	})
}

func (r *Registry) transition(ctx context.Context, id string, to constants.JobState, set func(*entity.Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !entity.CanTransition(rec.State, to) {
		r.logger.Warn("registry.transition.rejected", "job_id", id, "from", rec.State, "to", to)
		return fmt.Errorf("%w: %s -> %s for job %s", ErrIllegalTransition, rec.State, to, id)
	}

	rec.State = to
	rec.StageMessage = ""
	rec.Result = nil
	rec.Error = nil
	set(&rec)
	rec.UpdatedAt = r.now().UTC()

	if err := r.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	r.logger.Debug("registry.transition", "job_id", id, "state", to, "stage", rec.StageMessage)
	return nil
}

// Sweep deletes terminal records last updated more than retention ago.
func (r *Registry) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	n, err := r.store.Sweep(ctx, r.now().Add(-retention))
	if err != nil {
		r.logger.Error("registry.sweep.failed", "error", err)
		return 0, err
	}
	if n > 0 {
		r.logger.Info("registry.sweep.ok", "removed", n)
	}
	return n, nil
}

// ErrInterrupted is the cause recorded for jobs a restart left unfinished.
var ErrInterrupted = common.NewJobError(common.KindInternal, "job interrupted by a service restart", nil)

// RecoverInterrupted fails records whose work cannot resume after a restart.
// PROGRESS records are always failed because no worker holds them any more;
// PENDING records are failed only when includePending is set, i.e. when the
// queue that held their descriptors did not survive the restart.
func (r *Registry) RecoverInterrupted(ctx context.Context, includePending bool) (int, error) {
	recs, err := r.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list status records: %w", err)
	}
	n := 0
	for _, rec := range recs {
		switch rec.State {
		case constants.JobStateProgress:
		case constants.JobStatePending:
			if !includePending {
				continue
			}
		default:
			continue
		}
		if err := r.Fail(ctx, rec.ID, ErrInterrupted); err != nil {
			if errors.Is(err, ErrIllegalTransition) {
				continue
			}
			return n, err
		}
		n++
	}
	if n > 0 {
		r.logger.Warn("registry.recover.failed_interrupted", "count", n, "include_pending", includePending)
	}
	return n, nil
}
