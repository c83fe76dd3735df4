package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// ExtractStage sends parsed text and the schema to the LLM.
type ExtractStage struct {
	Extractor llm.DocumentExtractor
	Logger    *slog.Logger
}

func NewExtractStage(ex llm.DocumentExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: ex, Logger: logger}
}

func (s *ExtractStage) Run(ctx context.Context, req llm.ExtractRequest) (entity.Document, []byte, error) {
	start := time.Now()
	doc, raw, err := s.Extractor.ExtractDocument(ctx, req)
	if err != nil {
		return nil, raw, err
	}
	s.Logger.Info("extract.ok",
		"file_name", req.FileName,
		"root_fields", len(req.Schema.RootNames()),
		"items", len(doc.Items()),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, raw, nil
}
