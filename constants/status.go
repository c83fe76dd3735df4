package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"    // accepted, waiting for a worker
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusParsed    JobStatus = "PARSED"    // stage 1 completed (text extracted)
	JobStatusExtracted JobStatus = "EXTRACTED" // stage 2 completed (document extracted)
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobStatusExtracted || s == JobStatusFailed
}
