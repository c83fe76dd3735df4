package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// ExtractJob represents an extract job for data transfer between layers.
type ExtractJob struct {
	ID           uuid.UUID           `json:"id"`
	FileName     string              `json:"file_name"`
	ContentHash  string              `json:"content_hash,omitempty"`
	Format       string              `json:"format"`
	Status       constants.JobStatus `json:"status"`
	Pages        int                 `json:"pages,omitempty"`
	Method       string              `json:"method,omitempty"`
	Text         string              `json:"text,omitempty"`
	Schema       json.RawMessage     `json:"schema,omitempty"`
	Document     json.RawMessage     `json:"document,omitempty"`
	ModelName    string              `json:"model_name,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
}
