package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// JobRecorder is the slice of the job repository the pipeline writes to.
type JobRecorder interface {
	Create(ctx context.Context, req repository.CreateJobRequest) (*entity.ExtractJob, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	FinishParsed(ctx context.Context, jobID uuid.UUID, text string, pages int, method string) error
	FinishExtracted(ctx context.Context, jobID uuid.UUID, document json.RawMessage, modelName string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

// Input is one PDF plus the schema to extract with.
type Input struct {
	FileName    string
	Data        []byte
	Schema      entity.APISchema
	ContentHash string // computed when empty
}

// Result carries the outputs of both stages. JobID is uuid.Nil without a recorder.
type Result struct {
	JobID    uuid.UUID
	Text     extract.TextExtractionResult
	Document entity.Document
	Raw      json.RawMessage
}

// Processor coordinates text extraction then LLM extraction.
type Processor struct {
	Logger    *slog.Logger
	Text      *TextStage
	Extract   *ExtractStage
	Jobs      JobRecorder
	ModelName string
}

var (
	_ async.JobRunner = (*Processor)(nil)
	_ async.JobFailer = (*Processor)(nil)
)

// NewProcessor wires both stages. jobs may be nil, in which case nothing is recorded.
func NewProcessor(logger *slog.Logger, text extract.TextExtractor, docs llm.DocumentExtractor, jobs JobRecorder, modelName string) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:    logger,
		Text:      NewTextStage(text, logger),
		Extract:   NewExtractStage(docs, logger),
		Jobs:      jobs,
		ModelName: modelName,
	}
}

// ParseText runs only the text stage.
func (p *Processor) ParseText(ctx context.Context, fileName string, data []byte) (extract.TextExtractionResult, error) {
	return p.Text.Run(ctx, fileName, data)
}

// ExtractText runs only the LLM stage.
func (p *Processor) ExtractText(ctx context.Context, text string, api entity.APISchema, fileName string) (entity.Document, []byte, error) {
	if api.IsEmpty() {
		return nil, nil, schema.ErrNoSchema
	}
	return p.Extract.Run(ctx, llm.ExtractRequest{Text: text, Schema: api, FileName: fileName})
}

// CreateJob validates the input and records a QUEUED job for it.
func (p *Processor) CreateJob(ctx context.Context, in Input) (*entity.ExtractJob, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if p.Jobs == nil {
		return &entity.ExtractJob{ID: uuid.New(), FileName: in.FileName, Format: constants.PDF, Status: constants.JobStatusQueued}, nil
	}
	return p.createJob(ctx, in, constants.JobStatusQueued)
}

// Process runs parse then extract synchronously, recording the job as it goes.
func (p *Processor) Process(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	jobID := uuid.Nil
	if p.Jobs != nil {
		job, err := p.createJob(ctx, in, constants.JobStatusRunning)
		if err != nil {
			return nil, err
		}
		jobID = job.ID
	}
	return p.run(ctx, jobID, in)
}

// ProcessJob runs a job that was recorded by CreateJob and queued.
func (p *Processor) ProcessJob(ctx context.Context, job async.Job) error {
	if p.Jobs != nil {
		if err := p.Jobs.MarkRunning(ctx, job.JobID); err != nil {
			p.fail(job.JobID, "start", err)
			return err
		}
	}
	_, err := p.run(ctx, job.JobID, Input{FileName: job.FileName, Data: job.Data, Schema: job.Schema})
	return err
}

// FailJob marks a queued job FAILED when it ends outside the normal error path.
func (p *Processor) FailJob(_ context.Context, job async.Job, cause error) {
	p.fail(job.JobID, "job", cause)
}

func (p *Processor) run(ctx context.Context, jobID uuid.UUID, in Input) (out *Result, err error) {
	start := time.Now()
	out = &Result{JobID: jobID}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.fail(jobID, "panic", err)
		}
	}()

	text, err := p.Text.Run(ctx, in.FileName, in.Data)
	if err != nil {
		p.fail(jobID, "text", err)
		return out, err
	}
	out.Text = text
	if p.Jobs != nil {
		if err := p.Jobs.FinishParsed(ctx, jobID, text.Text, text.Pages, text.Method); err != nil {
			p.fail(jobID, "record", err)
			return out, err
		}
	}
	p.Logger.Info("processor.text.ok",
		"job_id", jobID,
		"method", text.Method,
		"pages", text.Pages,
		"chars", len(text.Text),
	)

	doc, raw, err := p.Extract.Run(ctx, llm.ExtractRequest{Text: text.Text, Schema: in.Schema, FileName: in.FileName})
	if err != nil {
		out.Raw = raw
		p.failWithOutput(jobID, "extract", err, raw)
		return out, err
	}
	out.Document = doc
	out.Raw = raw
	if p.Jobs != nil {
		if err := p.Jobs.FinishExtracted(ctx, jobID, raw, p.ModelName); err != nil {
			p.fail(jobID, "record", err)
			return out, err
		}
	}

	p.Logger.Info("processor.ok",
		"job_id", jobID,
		"file_name", in.FileName,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (p *Processor) createJob(ctx context.Context, in Input, status constants.JobStatus) (*entity.ExtractJob, error) {
	schemaJSON, err := json.Marshal(in.Schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	hash := in.ContentHash
	if hash == "" {
		hash = ContentHash(in.Data)
	}
	return p.Jobs.Create(ctx, repository.CreateJobRequest{
		FileName:    in.FileName,
		ContentHash: hash,
		Schema:      schemaJSON,
		Status:      status,
	})
}

// maxFailureOutput caps how much model output is kept on a failed job.
const maxFailureOutput = 2000

// fail records the failure on a fresh context so a cancelled request still lands FAILED.
func (p *Processor) fail(jobID uuid.UUID, stage string, cause error) {
	p.failWithOutput(jobID, stage, cause, nil)
}

// failWithOutput is fail plus the raw model output that could not be accepted.
func (p *Processor) failWithOutput(jobID uuid.UUID, stage string, cause error, raw []byte) {
	p.Logger.Error("processor."+stage+".failed", "job_id", jobID, "error", cause, "raw_len", len(raw))
	if p.Jobs == nil {
		return
	}
	message := cause.Error()
	if len(raw) > 0 {
		out := raw
		if len(out) > maxFailureOutput {
			out = out[:maxFailureOutput]
		}
		message += "; model output: " + string(out)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Jobs.FinishFailure(ctx, jobID, message); err != nil {
		p.Logger.Warn("processor.finish_failure.error", "job_id", jobID, "error", err)
	}
}

func validateInput(in Input) error {
	if err := extract.ValidatePDF(in.FileName, in.Data); err != nil {
		return err
	}
	return schema.ValidateAPI(in.Schema)
}

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
