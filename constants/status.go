package constants

// JobState is the canonical state stored on a job status record.
type JobState string

// Stable values (store these exact strings).
const (
	JobStatePending  JobState = "PENDING"  // created, not yet picked up by a worker
	JobStateProgress JobState = "PROGRESS" // a stage is running; stage_message names it
	JobStateSuccess  JobState = "SUCCESS"  // terminal, result populated
	JobStateFailure  JobState = "FAILURE"  // terminal, error populated
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

func (s JobState) String() string { return string(s) }
