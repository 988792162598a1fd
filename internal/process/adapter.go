// internal/process/adapter.go
package process

// JobStatus represents the lifecycle state of one sync pass.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job captures the minimal metadata the worker tracks for auditing purposes,
// including the packed retry status word before and after the pass.
type Job struct {
	ID           string
	Kind         string
	StatusBefore uint32
	StatusAfter  uint32
	Status       JobStatus
	Error        string
}

func NewJob(kind, id string, statusBefore uint32) *Job {
	return &Job{
		ID:           id,
		Kind:         kind,
		StatusBefore: statusBefore,
		StatusAfter:  statusBefore,
		Status:       JobStatusPending,
	}
}

func MarkRunning(j *Job) { j.Status = JobStatusRunning }

func MarkSucceeded(j *Job, statusAfter uint32) {
	j.Status = JobStatusSucceeded
	j.StatusAfter = statusAfter
}

func MarkFailed(j *Job, err error) {
	j.Status = JobStatusFailed
	if err != nil {
		j.Error = err.Error()
	}
}
