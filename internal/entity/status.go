package entity

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
)

// ErrorDetail is what a poller sees for a failed job.
type ErrorDetail struct {
	Kind    common.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Record is the status record for one job. Exactly one of StageMessage,
// Result and Error is set, according to State; PENDING carries none.
type Record struct {
	ID           string             `json:"id"`
	Type         constants.JobType  `json:"type"`
	State        constants.JobState `json:"state"`
	StageMessage string             `json:"stage_message,omitempty"`
	Result       json.RawMessage    `json:"result,omitempty"`
	Error        *ErrorDetail       `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func NewPendingRecord(id string, t constants.JobType, now time.Time) Record {
	return Record{ID: id, Type: t, State: constants.JobStatePending, CreatedAt: now, UpdatedAt: now}
}

func (r Record) IsTerminal() bool { return r.State.IsTerminal() }

var transitions = map[constants.JobState][]constants.JobState{
	constants.JobStatePending:  {constants.JobStateProgress, constants.JobStateSuccess, constants.JobStateFailure},
	constants.JobStateProgress: {constants.JobStateProgress, constants.JobStateSuccess, constants.JobStateFailure},
}

// CanTransition reports whether a record in state from may move to state to.
// Terminal states have no outgoing edges.
func CanTransition(from, to constants.JobState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
