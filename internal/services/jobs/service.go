package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/async"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// Registry is what submission needs from the status registry.
type Registry interface {
	Create(ctx context.Context, id string, t constants.JobType) (entity.Record, error)
	Get(ctx context.Context, id string) (entity.Record, error)
	Fail(ctx context.Context, id string, cause error) error
}

// Service handles job submission and status lookups.
type Service struct {
	registry Registry
	queue    async.Queue
	logger   *slog.Logger
}

// NewService creates a new submission service.
func NewService(r Registry, q async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: r, queue: q, logger: logger}
}

// Submit validates req, creates its PENDING record and enqueues it. Invalid
// requests are rejected before any id exists.
func (s *Service) Submit(ctx context.Context, req entity.Request) (string, error) {
	if err := entity.Validate(req); err != nil {
		s.logger.Warn("jobs.submit.invalid", "error", err, "request_id", common.RequestIDFromContext(ctx))
		return "", err
	}

	id := uuid.NewString()
	t := req.JobType()
	if _, err := s.registry.Create(ctx, id, t); err != nil {
		s.logger.Error("jobs.submit.create_failed", "job_type", t, "error", err)
		return "", common.NewJobError(common.KindInternal, "could not record job", err)
	}

	desc := entity.Descriptor{ID: id, Type: t, Payload: req, SubmittedAt: time.Now().UTC()}
	if err := s.queue.Enqueue(ctx, desc); err != nil {
		s.logger.Error("jobs.submit.enqueue_failed", "job_id", id, "job_type", t, "error", err)
		cause := common.NewJobError(common.KindInternal, "job could not be queued", err)
		if ferr := s.registry.Fail(context.WithoutCancel(ctx), id, cause); ferr != nil {
			s.logger.Error("jobs.submit.mark_failed", "job_id", id, "error", ferr)
		}
		return "", cause
	}

	s.logger.Info("jobs.submit.ok", "job_id", id, "job_type", t, "request_id", common.RequestIDFromContext(ctx))
	return id, nil
}

// Status returns the current record for id.
func (s *Service) Status(ctx context.Context, id string) (entity.Record, error) {
	rec, err := s.registry.Get(ctx, id)
	if err != nil {
		return entity.Record{}, fmt.Errorf("status %s: %w", id, err)
	}
	return rec, nil
}
