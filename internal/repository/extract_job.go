package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	// Fixed width so timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// CreateJobRequest wraps parameters for recording a new extraction job.
type CreateJobRequest struct {
	FileName    string
	ContentHash string
	Schema      json.RawMessage
	Status      constants.JobStatus // defaults to QUEUED
}

type ExtractJobRepository interface {
	Create(ctx context.Context, req CreateJobRequest) (*entity.ExtractJob, error)
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	FinishParsed(ctx context.Context, jobID uuid.UUID, text string, pages int, method string) error
	FinishExtracted(ctx context.Context, jobID uuid.UUID, document json.RawMessage, modelName string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

const jobColumns = `id, file_name, content_hash, format, status, pages, method, ocr_text,
	schema_json, document_json, model_name, error_message, created_at, updated_at, finished_at`

func (r *extractJobRepo) Create(ctx context.Context, req CreateJobRequest) (*entity.ExtractJob, error) {
	status := req.Status
	if status == "" {
		status = constants.JobStatusQueued
	}
	now := r.now()
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		FileName:    req.FileName,
		ContentHash: req.ContentHash,
		Format:      constants.PDF,
		Status:      status,
		Schema:      req.Schema,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO extract_job
		(id, file_name, content_hash, format, status, schema_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		job.ID.String(), job.FileName, job.ContentHash, job.Format, string(job.Status),
		string(job.Schema), formatTime(now), formatTime(now),
	)
	if err != nil {
		r.log.Error("extract_job create failed", "file_name", req.FileName, "err", err)
		return nil, common.NewAppError("DB_ERROR", "create extract job", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("extract_job created", "job_id", job.ID, "file_name", job.FileName, "status", job.Status)
	return job, nil
}

func (r *extractJobRepo) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	return r.update(ctx, jobID, constants.JobStatusRunning, false, "", nil)
}

func (r *extractJobRepo) FinishParsed(ctx context.Context, jobID uuid.UUID, text string, pages int, method string) error {
	return r.update(ctx, jobID, constants.JobStatusParsed, false,
		"ocr_text = ?, pages = ?, method = ?", []any{text, pages, method})
}

func (r *extractJobRepo) FinishExtracted(ctx context.Context, jobID uuid.UUID, document json.RawMessage, modelName string) error {
	return r.update(ctx, jobID, constants.JobStatusExtracted, true,
		"document_json = ?, model_name = ?", []any{string(document), modelName})
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, constants.JobStatusFailed, true, "error_message = ?", []any{message})
	if err == nil {
		r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	}
	return err
}

// update moves a job to status, setting extra columns and finished_at for terminal states.
func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, finished bool, set string, args []any) error {
	now := formatTime(r.now())
	query := "UPDATE extract_job SET status = ?, updated_at = ?"
	params := []any{string(status), now}
	if finished {
		query += ", finished_at = ?"
		params = append(params, now)
	}
	if set != "" {
		query += ", " + set
		params = append(params, args...)
	}
	query += " WHERE id = ?"
	params = append(params, jobID.String())

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), params...)
	if err != nil {
		r.log.Error("extract_job update failed", "job_id", jobID, "status", status, "err", err)
		return common.NewAppError("DB_ERROR", "update extract job", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NotFoundError(fmt.Sprintf("extract job %s not found", jobID))
	}
	r.log.Debug("extract_job updated", "job_id", jobID, "status", status)
	return nil
}

func (r *extractJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT "+jobColumns+" FROM extract_job WHERE id = ?"), jobID.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("extract job %s not found", jobID))
	}
	if err != nil {
		r.log.Error("extract_job get failed", "job_id", jobID, "err", err)
		return nil, common.NewAppError("DB_ERROR", "get extract job", errors.Join(common.ErrDatabase, err))
	}
	return job, nil
}

// List returns the most recent jobs first.
func (r *extractJobRepo) List(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+jobColumns+" FROM extract_job ORDER BY created_at DESC, id LIMIT ?"), limit)
	if err != nil {
		r.log.Error("extract_job list failed", "err", err)
		return nil, common.NewAppError("DB_ERROR", "list extract jobs", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]*entity.ExtractJob, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan extract job", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "list extract jobs", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*entity.ExtractJob, error) {
	var (
		job                      entity.ExtractJob
		id, status               string
		schemaJSON, documentJSON string
		createdAt, updatedAt     string
		finishedAt               sql.NullString
	)
	err := s.Scan(&id, &job.FileName, &job.ContentHash, &job.Format, &status, &job.Pages, &job.Method,
		&job.Text, &schemaJSON, &documentJSON, &job.ModelName, &job.ErrorMessage,
		&createdAt, &updatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	job.Status = constants.JobStatus(status)
	if schemaJSON != "" {
		job.Schema = json.RawMessage(schemaJSON)
	}
	if documentJSON != "" {
		job.Document = json.RawMessage(documentJSON)
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		job.FinishedAt = &t
	}
	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
