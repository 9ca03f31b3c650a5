package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one accepted, ready file handed from ingestion to processing.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Queue is the producer side of the job transport.
type Queue interface {
	// Enqueue hands one job over. It returns an error only when the job
	// could not be durably accepted.
	Enqueue(ctx context.Context, job Job) error

	// Shutdown releases producer resources. Accepted jobs stay deliverable.
	Shutdown(ctx context.Context)
}
