package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

const brpopBlock = 2 * time.Second

// RedisQueue shares one Redis list between processes: LPUSH to enqueue,
// BRPOP to dequeue. Descriptors travel as JSON.
type RedisQueue struct {
	rdb     *redis.Client
	key     string
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration
	failer  StatusFailer

	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewRedisQueue starts the workers immediately. A nil handler makes a
// producer-only queue.
func NewRedisQueue(rdb *redis.Client, key string, h Handler, logger *slog.Logger, opts ...Option) *RedisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := defaultPool()
	for _, o := range opts {
		o(&cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &RedisQueue{
		rdb:     rdb,
		key:     key,
		handler: h,
		logger:  logger,
		workers: cfg.workers,
		timeout: cfg.timeout,
		failer:  cfg.failer,
		stop:    cancel,
	}
	if h != nil {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(ctx, i+1)
		}
	}
	return q
}

func (q *RedisQueue) Enqueue(ctx context.Context, desc entity.Descriptor) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	b, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode descriptor %s: %w", desc.ID, err)
	}
	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		q.logger.Error("queue.enqueue.failed", "job_id", desc.ID, "error", err)
		return fmt.Errorf("enqueue %s: %w", desc.ID, err)
	}
	q.logger.Info("queue.enqueue.ok", "job_id", desc.ID, "job_type", desc.Type, "key", q.key)
	return nil
}

func (q *RedisQueue) work(ctx context.Context, workerID int) {
	defer q.wg.Done()
	q.logger.Info("worker started", "worker_id", workerID, "key", q.key)
	for {
		desc, ok := q.next(ctx, workerID)
		if ctx.Err() != nil && !ok {
			q.logger.Info("worker stopped", "worker_id", workerID)
			return
		}
		if !ok {
			continue
		}
		start := time.Now()
		runJob(q.handler, q.timeout, desc)
		q.logger.Info("queue.job.done",
			"worker_id", workerID,
			"job_id", desc.ID,
			"job_type", desc.Type,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// next pops one descriptor. ok is false on timeout, shutdown, broker error
// or an undecodable entry.
func (q *RedisQueue) next(ctx context.Context, workerID int) (entity.Descriptor, bool) {
	res, err := q.rdb.BRPop(ctx, brpopBlock, q.key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return entity.Descriptor{}, false
	case err != nil:
		if ctx.Err() == nil {
			q.logger.Error("queue.dequeue.failed", "worker_id", workerID, "error", err)
			// avoid a hot loop while the broker is unreachable
			select {
			case <-ctx.Done():
			case <-time.After(brpopBlock):
			}
		}
		return entity.Descriptor{}, false
	}
	if len(res) != 2 {
		return entity.Descriptor{}, false
	}
	var desc entity.Descriptor
	if err := json.Unmarshal([]byte(res[1]), &desc); err != nil {
		q.reject(ctx, []byte(res[1]), workerID, err)
		return entity.Descriptor{}, false
	}
	return desc, true
}

// rejectTimeout bounds the status write for an undecodable entry.
const rejectTimeout = 5 * time.Second

// reject drops an entry that does not decode as a descriptor. When the entry
// still names a job id, that job's record is failed so it does not sit in
// PENDING forever.
func (q *RedisQueue) reject(ctx context.Context, raw []byte, workerID int, decodeErr error) {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	q.logger.Error("queue.dequeue.decode_failed", "worker_id", workerID, "job_id", head.ID, "error", decodeErr)
	if head.ID == "" || q.failer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rejectTimeout)
	defer cancel()
	cause := common.NewJobError(common.KindInternal, "job descriptor could not be decoded", decodeErr)
	if err := q.failer.Fail(ctx, head.ID, cause); err != nil {
		q.logger.Warn("queue.dequeue.fail_record_failed", "job_id", head.ID, "error", err)
	}
}

// Shutdown stops intake and dequeuing, then waits for in-flight jobs. Jobs
// still in the list stay there for the next process.
func (q *RedisQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.stop()
	if waitDrained(ctx, &q.wg) {
		q.logger.Info("queue drained, shutdown complete")
	} else {
		q.logger.Warn("shutdown interrupted by context")
	}
}
