package constants

// JobStatus is the canonical lifecycle status for a processing job.
type JobStatus string

// Stable values (these exact strings appear in logs).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // ticket written to the spool
	JobStatusRunning JobStatus = "RUNNING" // claimed by a worker
	JobStatusDone    JobStatus = "DONE"    // artifacts published
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure, source routed to the error sink
)
