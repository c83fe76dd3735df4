package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// TextStage turns an uploaded PDF into text.
type TextStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewTextStage(tx extract.TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{TextExtractor: tx, Logger: logger}
}

// Run validates the upload and extracts its text. A document that yields no text
// is an upstream failure, not an empty success.
func (s *TextStage) Run(ctx context.Context, fileName string, data []byte) (extract.TextExtractionResult, error) {
	if err := extract.ValidatePDF(fileName, data); err != nil {
		return extract.TextExtractionResult{}, err
	}
	start := time.Now()
	s.Logger.Info("text.start", "file_name", fileName, "job_id", common.JobIDFromContext(ctx), "bytes", len(data))

	res, err := s.TextExtractor.Extract(ctx, fileName, data)
	if err != nil {
		s.Logger.Error("text.failed", "file_name", fileName, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return res, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, common.NewAppError("EMPTY_TEXT", "no text could be extracted from "+fileName, common.ErrUpstream)
	}
	for _, w := range res.Warnings {
		s.Logger.Warn("text.warning", "file_name", fileName, "warning", w)
	}
	s.Logger.Info("text.ok",
		"file_name", fileName,
		"method", res.Method,
		"pages", res.Pages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
