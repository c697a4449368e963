package watch

import (
	"fmt"

	"github.com/jiulngdjso/poofpop-web/api"
)

// Snapshot is the latest known state of a watched job. Each snapshot
// supersedes the previous one; no history is kept.
type Snapshot struct {
	Status api.Status
	// Progress is a percentage in [0,100]; 0 means indeterminate.
	Progress    int
	Message     string
	OutputKey   string
	ErrorDetail string
}

func snapshotFromStatus(status api.JobStatus) Snapshot {
	return Snapshot{
		Status:      status.Status,
		Progress:    status.Progress,
		Message:     status.ProgressMessage,
		OutputKey:   status.OutputKey,
		ErrorDetail: status.Error,
	}
}

// JobFailedError is the terminal failure outcome of a watched job.
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
	}
	return fmt.Sprintf("job %s failed", e.JobID)
}

// JobCancelledError is the terminal cancelled outcome of a watched job.
type JobCancelledError struct {
	JobID  string
	Detail string
}

func (e *JobCancelledError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("job %s was cancelled: %s", e.JobID, e.Detail)
	}
	return fmt.Sprintf("job %s was cancelled", e.JobID)
}
