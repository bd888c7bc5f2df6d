package enums

// JobStatus is the status reported by the inference provider for a job.
type JobStatus string

const (
	JobStatusInQueue    JobStatus = "IN_QUEUE"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
	JobStatusTimedOut   JobStatus = "TIMED_OUT"
)

func (s JobStatus) Pending() bool {
	return s == JobStatusInQueue || s == JobStatusInProgress
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusFailed || s == JobStatusCancelled || s == JobStatusTimedOut
}
