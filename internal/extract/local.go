package extract

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

// LocalExtractor adapts the in-process ocr.Extractor to TextExtractor.
type LocalExtractor struct {
	e *ocr.Extractor
}

func NewLocalExtractor(e *ocr.Extractor) *LocalExtractor {
	return &LocalExtractor{e: e}
}

func (a *LocalExtractor) Extract(ctx context.Context, fileName string, data []byte) (TextExtractionResult, error) {
	if err := ValidatePDF(fileName, data); err != nil {
		return TextExtractionResult{}, err
	}
	r, err := a.e.Extract(ctx, data)
	return TextExtractionResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Method:   r.Method,
		Duration: r.Duration,
		Warnings: r.Warnings,
	}, err
}
