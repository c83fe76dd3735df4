package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Fallback tries Primary and, when it fails for a reason other than bad input,
// runs Secondary on the same file.
type Fallback struct {
	Primary   TextExtractor
	Secondary TextExtractor
	Logger    *slog.Logger
}

func NewFallback(primary, secondary TextExtractor, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}
}

func (f *Fallback) Extract(ctx context.Context, fileName string, data []byte) (TextExtractionResult, error) {
	start := time.Now()
	res, err := f.Primary.Extract(ctx, fileName, data)
	if err == nil || f.Secondary == nil || errors.Is(err, common.ErrInvalidInput) || ctx.Err() != nil {
		return res, err
	}

	f.Logger.Warn("extract.fallback",
		"file_name", fileName,
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	res2, err2 := f.Secondary.Extract(ctx, fileName, data)
	if err2 != nil {
		return res2, errors.Join(err, err2)
	}
	res2.Warnings = append([]string{"primary extractor failed: " + err.Error()}, res2.Warnings...)
	res2.Duration = time.Since(start)
	return res2, nil
}
