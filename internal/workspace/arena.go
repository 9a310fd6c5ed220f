// Package workspace materializes job payload bytes as files that the
// extraction tools can read, and removes them when the job ends.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Arena is the shared directory; every file a job writes is prefixed with its id.
type Arena struct {
	root   string
	logger *slog.Logger
}

func NewArena(root string, logger *slog.Logger) (*Arena, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = os.TempDir()
	}
	root = filepath.Join(root, "docjobs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	return &Arena{root: root, logger: logger}, nil
}

func (a *Arena) Root() string { return a.root }

// ForJob returns a handle for one job's files.
func (a *Arena) ForJob(jobID string) *JobSpace {
	return &JobSpace{arena: a, jobID: jobID}
}

// Cleanup removes everything written under jobID's prefix. It is safe to call
// more than once and when nothing was written.
func (a *Arena) Cleanup(jobID string) error {
	if jobID == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(a.root, globEscape(jobID)+"-*"))
	if err != nil {
		return err
	}
	var firstErr error
	for _, m := range matches {
		if err := os.RemoveAll(m); err != nil {
			a.logger.Warn("workspace.cleanup.failed", "job_id", jobID, "path", m, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.logger.Debug("workspace.cleanup.ok", "job_id", jobID, "removed", len(matches))
	return firstErr
}

// JobSpace writes files named <jobID>-<n>-<name> so two documents of the same
// job, or two jobs with the same filename, never collide.
type JobSpace struct {
	arena *Arena
	jobID string

	mu sync.Mutex
	n  int
}

func (s *JobSpace) Materialize(filename string, data []byte) (string, error) {
	s.mu.Lock()
	s.n++
	n := s.n
	s.mu.Unlock()

	path := filepath.Join(s.arena.root, fmt.Sprintf("%s-%d-%s", s.jobID, n, safeName(filename)))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("materialize %s: %w", filename, err)
	}
	s.arena.logger.Debug("workspace.materialize.ok", "job_id", s.jobID, "path", path, "bytes", len(data))
	return path, nil
}

// Cleanup releases this job's files.
func (s *JobSpace) Cleanup() error { return s.arena.Cleanup(s.jobID) }

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '?', '[', ']', ':', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

func globEscape(s string) string {
	r := strings.NewReplacer("*", `\*`, "?", `\?`, "[", `\[`)
	return r.Replace(s)
}
