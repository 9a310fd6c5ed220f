package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// Handler runs one job to completion. It owns the job's status record, so it
// reports outcomes there rather than returning them.
type Handler interface {
	Run(ctx context.Context, desc entity.Descriptor)
}

// Queue accepts descriptors and feeds them to a worker pool.
type Queue interface {
	Enqueue(ctx context.Context, desc entity.Descriptor) error
	Shutdown(ctx context.Context)
}

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("queue is shutting down")

// StatusFailer marks a job failed; the registry satisfies it.
type StatusFailer interface {
	Fail(ctx context.Context, id string, cause error) error
}

type poolConfig struct {
	workers int
	size    int
	timeout time.Duration
	failer  StatusFailer
}

func defaultPool() poolConfig {
	return poolConfig{workers: 4, size: 256, timeout: 3 * time.Minute}
}

type Option func(*poolConfig)

func WithWorkers(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize bounds the in-memory buffer; the Redis queue ignores it.
func WithQueueSize(n int) Option {
	return func(c *poolConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(c *poolConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithFailer lets the Redis queue fail the record of an entry it cannot
// decode. The in-memory queue never decodes, so it ignores this.
func WithFailer(f StatusFailer) Option {
	return func(c *poolConfig) { c.failer = f }
}

// runJob gives every job its own deadline, detached from whoever enqueued it.
func runJob(h Handler, timeout time.Duration, desc entity.Descriptor) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	h.Run(ctx, desc)
}

// waitDrained blocks until wg is done or ctx ends.
func waitDrained(ctx context.Context, wg interface{ Wait() }) bool {
	done := make(chan struct{})
	go func() { defer close(done); wg.Wait() }()
	select {
	case <-ctx.Done():
		return false
	case <-done:
		return true
	}
}
