package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	return db
}

func TestExtractJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	schema := json.RawMessage(`{"root":{"company":{"type":"string","description":"name"}},"items":{}}`)
	job, err := repo.Create(ctx, CreateJobRequest{FileName: "acme.pdf", ContentHash: "abc", Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, job.Status)
	assert.Equal(t, constants.PDF, job.Format)

	require.NoError(t, repo.MarkRunning(ctx, job.ID))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, repo.FinishParsed(ctx, job.ID, "ACME invoice", 2, "llamaparse"))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusParsed, got.Status)
	assert.Equal(t, "ACME invoice", got.Text)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, "llamaparse", got.Method)

	doc := json.RawMessage(`{"company":"ACME","items":[]}`)
	require.NoError(t, repo.FinishExtracted(ctx, job.ID, doc, "gpt-4o-2024-08-06"))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusExtracted, got.Status)
	assert.JSONEq(t, string(doc), string(got.Document))
	assert.JSONEq(t, string(schema), string(got.Schema))
	assert.Equal(t, "gpt-4o-2024-08-06", got.ModelName)
	assert.Equal(t, "abc", got.ContentHash)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.Status.Terminal())
	assert.WithinDuration(t, job.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestExtractJobFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	job, err := repo.Create(ctx, CreateJobRequest{FileName: "bad.pdf", Status: constants.JobStatusRunning})
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, job.Status)

	require.NoError(t, repo.FinishFailure(ctx, job.ID, "Error processing PDF file"))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, got.Status)
	assert.Equal(t, "Error processing PDF file", got.ErrorMessage)
	assert.NotNil(t, got.FinishedAt)
	assert.Empty(t, got.Document)
}

func TestExtractJobNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	_, err := repo.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)

	err = repo.MarkRunning(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractJobList(t *testing.T) {
	ctx := context.Background()
	r := NewExtractJobRepository(openTestDB(t), nil).(*extractJobRepo)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		r.now = func() time.Time { return at }
		job, err := r.Create(ctx, CreateJobRequest{FileName: "f.pdf"})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	jobs, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	jobs, err = r.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "UPDATE t SET a = $1 WHERE id = $2", pg.Rebind("UPDATE t SET a = ? WHERE id = ?"))

	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))

	assert.True(t, IsPostgresDSN("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgresDSN("postgresql://localhost/db"))
	assert.False(t, IsPostgresDSN("file:invoices.db"))
}
