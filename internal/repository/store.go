package repository

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

// StatusKeyPrefix namespaces status records in shared key spaces.
const StatusKeyPrefix = "docjobs:status:"

func notFound(id string) error {
	return common.NewJobError(common.KindNotFound, fmt.Sprintf("job %s not found", id), nil)
}

// expired reports whether a record is eligible for retention sweeping.
// In-flight records are never swept.
func expired(rec entity.Record, before time.Time) bool {
	return rec.IsTerminal() && rec.UpdatedAt.Before(before)
}
