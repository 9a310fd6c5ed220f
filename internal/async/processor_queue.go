package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// ProcessorQueue is the in-process broker: a buffered channel drained by a
// fixed pool of workers.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan entity.Descriptor
	wg   sync.WaitGroup
	once sync.Once

	// RLock for senders, Lock for close; a send never races the close.
	mu     sync.RWMutex
	closed bool
}

func NewProcessorQueue(h Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := defaultPool()
	for _, o := range opts {
		o(&cfg)
	}
	q := &ProcessorQueue{
		handler: h,
		logger:  logger,
		workers: cfg.workers,
		timeout: cfg.timeout,
		ch:      make(chan entity.Descriptor, cfg.size),
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for desc := range q.ch {
					start := time.Now()
					runJob(q.handler, q.timeout, desc)
					q.logger.Info("queue.job.done",
						"worker_id", workerID,
						"job_id", desc.ID,
						"job_type", desc.Type,
						"elapsed_ms", time.Since(start).Milliseconds(),
					)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the buffer is full (backpressure) until ctx ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, desc entity.Descriptor) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", desc.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- desc:
		q.logger.Info("queue.enqueue.ok", "job_id", desc.ID, "job_type", desc.Type)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "job_id", desc.ID)
	select {
	case q.ch <- desc:
		q.logger.Info("queue.enqueue.ok", "job_id", desc.ID, "job_type", desc.Type)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued and in-flight jobs, bounded by ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	if waitDrained(ctx, &q.wg) {
		q.logger.Info("queue drained, shutdown complete")
	} else {
		q.logger.Warn("shutdown interrupted by context")
	}
}
