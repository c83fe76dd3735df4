package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

var (
	ErrQueueClosed = errors.New("queue is shutting down")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one uploaded invoice waiting for parse and extraction. The file travels
// in memory; only the job record is persisted.
type Job struct {
	JobID       uuid.UUID
	FileName    string
	Data        []byte
	Schema      entity.APISchema
	SubmittedAt time.Time
	TraceID     string
}

// JobRunner processes one dequeued job.
type JobRunner interface {
	ProcessJob(ctx context.Context, job Job) error
}

// JobFailer is implemented by runners that record failures the queue observes
// outside ProcessJob's return value, such as a recovered panic.
type JobFailer interface {
	FailJob(ctx context.Context, job Job, cause error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
