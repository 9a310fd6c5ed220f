package registry

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/llm"
	"github.com/joseph-ayodele/docjobs/internal/repository"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRegistry() (*Registry, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	return New(repository.NewMemoryStatusStore(), nil, WithClock(c.now)), c
}

func TestLifecycle_Success(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry()

	rec, err := r.Create(ctx, "j1", constants.JobTypeSummarize)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatePending, rec.State)

	got, err := r.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatePending, got.State)
	assert.Empty(t, got.StageMessage)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.Error)

	c.t = c.t.Add(time.Second)
	require.NoError(t, r.Progress(ctx, "j1", "Extracting text"))
	require.NoError(t, r.Progress(ctx, "j1", "Summarizing"))
	got, _ = r.Get(ctx, "j1")
	assert.Equal(t, constants.JobStateProgress, got.State)
	assert.Equal(t, "Summarizing", got.StageMessage)

	require.NoError(t, r.Succeed(ctx, "j1", map[string]string{"summary": "ngắn gọn"}))
	got, _ = r.Get(ctx, "j1")
	assert.Equal(t, constants.JobStateSuccess, got.State)
	assert.JSONEq(t, `{"summary":"ngắn gọn"}`, string(got.Result))
	assert.Empty(t, got.StageMessage)
	assert.Nil(t, got.Error)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestLifecycle_TerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	_, err := r.Create(ctx, "j2", constants.JobTypeOCRExtract)
	require.NoError(t, err)

	require.NoError(t, r.Fail(ctx, "j2", common.EmptyContentf("no text could be extracted")))
	got, _ := r.Get(ctx, "j2")
	assert.Equal(t, constants.JobStateFailure, got.State)
	require.NotNil(t, got.Error)
	assert.Equal(t, common.KindEmptyContent, got.Error.Kind)
	assert.Equal(t, "no text could be extracted", got.Error.Message)
	assert.Nil(t, got.Result)

	assert.ErrorIs(t, r.Progress(ctx, "j2", "again"), ErrIllegalTransition)
	assert.ErrorIs(t, r.Succeed(ctx, "j2", "x"), ErrIllegalTransition)
	assert.ErrorIs(t, r.Fail(ctx, "j2", errors.New("boom")), ErrIllegalTransition)

	after, _ := r.Get(ctx, "j2")
	assert.Equal(t, got, after)
}

func TestFail_PlainErrorIsInternal(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	_, _ = r.Create(ctx, "j3", constants.JobTypeCompareText)
	require.NoError(t, r.Fail(ctx, "j3", errors.New("panic: index out of range")))
	got, _ := r.Get(ctx, "j3")
	assert.Equal(t, common.KindInternal, got.Error.Kind)
	assert.Equal(t, "panic: index out of range", got.Error.Message)
}

func TestUnknownID(t *testing.T) {
	r, _ := newRegistry()
	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, r.Progress(context.Background(), "nope", "x"), common.ErrNotFound)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	r, c := newRegistry()
	_, _ = r.Create(ctx, "done", constants.JobTypeSummarize)
	require.NoError(t, r.Succeed(ctx, "done", "ok"))
	_, _ = r.Create(ctx, "running", constants.JobTypeSummarize)
	require.NoError(t, r.Progress(ctx, "running", "Summarizing"))

	c.t = c.t.Add(25 * time.Hour)
	n, err := r.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = r.Get(ctx, "done")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Get(ctx, "running")
	assert.NoError(t, err)
}

func TestRecoverInterrupted(t *testing.T) {
	ctx := context.Background()
	seed := func(r *Registry) {
		_, _ = r.Create(ctx, "queued", constants.JobTypeSummarize)
		_, _ = r.Create(ctx, "running", constants.JobTypeSummarize)
		require.NoError(t, r.Progress(ctx, "running", "Summarizing"))
		_, _ = r.Create(ctx, "done", constants.JobTypeSummarize)
		require.NoError(t, r.Succeed(ctx, "done", "ok"))
	}

	t.Run("memory queue fails pending and progress", func(t *testing.T) {
		r, _ := newRegistry()
		seed(r)
		n, err := r.RecoverInterrupted(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		for _, id := range []string{"queued", "running"} {
			got, _ := r.Get(ctx, id)
			assert.Equal(t, constants.JobStateFailure, got.State, id)
			require.NotNil(t, got.Error, id)
			assert.Equal(t, common.KindInternal, got.Error.Kind)
			assert.Equal(t, "job interrupted by a service restart", got.Error.Message)
		}
		done, _ := r.Get(ctx, "done")
		assert.Equal(t, constants.JobStateSuccess, done.State)
	})

	t.Run("durable queue keeps pending", func(t *testing.T) {
		r, _ := newRegistry()
		seed(r)
		n, err := r.RecoverInterrupted(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		queued, _ := r.Get(ctx, "queued")
		assert.Equal(t, constants.JobStatePending, queued.State)
		running, _ := r.Get(ctx, "running")
		assert.Equal(t, constants.JobStateFailure, running.State)
	})

	t.Run("swept records expire afterwards", func(t *testing.T) {
		r, c := newRegistry()
		seed(r)
		_, err := r.RecoverInterrupted(ctx, true)
		require.NoError(t, err)
		c.t = c.t.Add(25 * time.Hour)
		n, err := r.Sweep(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestSucceed_ModelWeightNaNStillSucceeds(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	_, _ = r.Create(ctx, "x1", constants.JobTypeExtractStructured)

	s, err := llm.ParseSyllabus([]byte(`{"assessments":[{"name":"Final","weightPercent":"NaN"}]}`))
	require.NoError(t, err)
	require.NoError(t, r.Succeed(ctx, "x1", s))

	got, _ := r.Get(ctx, "x1")
	assert.Equal(t, constants.JobStateSuccess, got.State)
	assert.Contains(t, string(got.Result), `"weightPercent":0`)
}

func TestSucceed_UnencodableResultIsFailure(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry()
	_, _ = r.Create(ctx, "nan", constants.JobTypeExtractStructured)
	_ = r.Succeed(ctx, "nan", map[string]float64{"weightPercent": math.NaN()})
	got, _ := r.Get(ctx, "nan")
	assert.Equal(t, constants.JobStateFailure, got.State)
}
