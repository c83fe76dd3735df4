package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ExtractRequest is everything a provider needs to pull one document out of text.
type ExtractRequest struct {
	Text     string
	Schema   entity.APISchema
	FileName string
}

// DocumentExtractor is the interface our pipeline depends on.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, req ExtractRequest) (entity.Document, []byte /*rawJSON*/, error)
}
