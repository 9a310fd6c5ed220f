package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

// Runner starts the external OCR tools; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const (
	// maxStderrBytes bounds the diagnostics kept per tool run.
	maxStderrBytes = 8 << 10
	// toolWaitDelay is how long a cancelled tool may hold its pipes open.
	toolWaitDelay = 5 * time.Second
)

type processRunner struct {
	logger *slog.Logger
}

func (r processRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	var stdout bytes.Buffer
	stderr := &headBuffer{max: maxStderrBytes}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = toolWaitDelay
	err := cmd.Run()

	log := r.logger.With(
		"job_id", common.JobIDFromContext(ctx),
		"tool", filepath.Base(name),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.Warn("ocr.tool.failed", "args", len(args), "error", err, "stderr", stderr.String())
	} else {
		log.Debug("ocr.tool.done", "stdout_bytes", stdout.Len(), "stderr_bytes", stderr.total)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// headBuffer keeps the first max bytes written and counts the rest.
type headBuffer struct {
	buf   bytes.Buffer
	max   int
	total int
}

func (b *headBuffer) Write(p []byte) (int, error) {
	b.total += len(p)
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *headBuffer) Bytes() []byte { return b.buf.Bytes() }

func (b *headBuffer) String() string {
	if b.total > b.buf.Len() {
		return b.buf.String() + "...(truncated)"
	}
	return b.buf.String()
}
