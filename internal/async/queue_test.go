package async

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

type recordingHandler struct {
	mu    sync.Mutex
	seen  []string
	delay time.Duration
	block chan struct{}
}

func (h *recordingHandler) Run(ctx context.Context, desc entity.Descriptor) {
	if h.block != nil {
		<-h.block
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		panic("job context has no deadline")
	}
	h.mu.Lock()
	h.seen = append(h.seen, desc.ID)
	h.mu.Unlock()
}

func (h *recordingHandler) ids() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func descriptor(id string) entity.Descriptor {
	return entity.Descriptor{
		ID:          id,
		Type:        constants.JobTypeSummarize,
		Payload:     entity.SummarizeRequest{Source: entity.TextSource("nội dung")},
		SubmittedAt: time.Now().UTC(),
	}
}

func TestProcessorQueue_RunsEveryJobAndDrains(t *testing.T) {
	h := &recordingHandler{delay: 5 * time.Millisecond}
	q := NewProcessorQueue(h, nil, WithWorkers(3), WithQueueSize(2), WithProcessTimeout(time.Second))

	var want []string
	for i := 0; i < 10; i++ {
		id := uuid.NewString()
		want = append(want, id)
		require.NoError(t, q.Enqueue(context.Background(), descriptor(id)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	assert.ElementsMatch(t, want, h.ids())
}

func TestProcessorQueue_RejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingHandler{}, nil, WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())
	assert.ErrorIs(t, q.Enqueue(context.Background(), descriptor("late")), ErrQueueClosed)
}

func TestProcessorQueue_BackpressureHonoursContext(t *testing.T) {
	h := &recordingHandler{block: make(chan struct{})}
	q := NewProcessorQueue(h, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), descriptor("a")))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), descriptor("b")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, descriptor("c")), context.DeadlineExceeded)

	close(h.block)
	q.Shutdown(context.Background())
	assert.ElementsMatch(t, []string{"a", "b"}, h.ids())
}

func TestProcessorQueue_ShutdownBoundedByContext(t *testing.T) {
	h := &recordingHandler{block: make(chan struct{})}
	q := NewProcessorQueue(h, nil, WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), descriptor("stuck")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	q.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)
	close(h.block)
}

// Runs only against a live server: REDIS_ADDR=localhost:6379 go test ./...
func TestRedisQueue_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	key := "docjobs:test:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	h := &recordingHandler{}
	q := NewRedisQueue(rdb, key, h, nil, WithWorkers(2))
	require.NoError(t, q.Enqueue(context.Background(), descriptor("r1")))
	require.NoError(t, q.Enqueue(context.Background(), descriptor("r2")))

	require.Eventually(t, func() bool { return len(h.ids()) == 2 }, 5*time.Second, 10*time.Millisecond)
	q.Shutdown(context.Background())
	assert.ElementsMatch(t, []string{"r1", "r2"}, h.ids())
	assert.ErrorIs(t, q.Enqueue(context.Background(), descriptor("r3")), ErrQueueClosed)
}

type failRecorder struct {
	mu     sync.Mutex
	failed map[string]error
}

func (f *failRecorder) Fail(_ context.Context, id string, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = map[string]error{}
	}
	f.failed[id] = cause
	return nil
}

func (f *failRecorder) causeOf(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed[id]
}

func TestRedisQueue_RejectFailsNamedRecord(t *testing.T) {
	f := &failRecorder{}
	q := &RedisQueue{logger: slog.Default(), failer: f}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q.reject(ctx, []byte(`{"id":"job-9","type":"NOT_A_TYPE","payload":{}}`), 1, errors.New("unknown job type"))

	cause := f.causeOf("job-9")
	require.Error(t, cause)
	assert.Equal(t, common.KindInternal, common.KindOf(cause))
	assert.Equal(t, "job descriptor could not be decoded", common.MessageOf(cause))
}

func TestRedisQueue_RejectWithoutID(t *testing.T) {
	f := &failRecorder{}
	q := &RedisQueue{logger: slog.Default(), failer: f}
	q.reject(context.Background(), []byte(`not json`), 1, errors.New("invalid character"))
	q.reject(context.Background(), []byte(`{"type":"SUMMARIZE"}`), 1, errors.New("bad payload"))
	assert.Empty(t, f.failed)

	// no failer configured
	(&RedisQueue{logger: slog.Default()}).reject(context.Background(), []byte(`{"id":"x"}`), 1, errors.New("x"))
}

func TestRedisQueue_UndecodableEntryFailsRecord(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	key := "docjobs:test:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	require.NoError(t, rdb.LPush(context.Background(), key, `{"id":"broken-1","type":"NOT_A_TYPE"}`).Err())
	f := &failRecorder{}
	h := &recordingHandler{}
	q := NewRedisQueue(rdb, key, h, nil, WithWorkers(1), WithFailer(f))

	require.Eventually(t, func() bool { return f.causeOf("broken-1") != nil }, 10*time.Second, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	assert.Empty(t, h.ids())
}
