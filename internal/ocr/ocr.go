package ocr

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	MethodPDFText   = "pdf-text"
	MethodPdftotext = "pdftotext"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxPages  int    // 0 = no limit
}

type ExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdftotext"
	Duration time.Duration
	Warnings []string
}

// Extractor pulls text out of PDFs locally: the embedded text layer first, then
// pdftotext when that yields nothing.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner used for pdftotext.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	if r != nil {
		e.runner = r
	}
	return e
}

// Extract reads the text of one PDF held in memory.
func (e *Extractor) Extract(ctx context.Context, data []byte) (ExtractionResult, error) {
	start := time.Now()
	e.logger.Debug("ocr.extract.start", "bytes", len(data), "max_pages", e.cfg.MaxPages)

	var warns []string
	text, pages, err := e.pdfText(data)
	switch {
	case err != nil:
		e.logger.Warn("ocr.pdf_text.failed", "error", err)
		warns = append(warns, "embedded text unreadable: "+err.Error())
	case strings.TrimSpace(text) != "":
		e.logger.Info("ocr.extract.ok",
			"method", MethodPDFText,
			"pages", pages,
			"text_len", len(text),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ExtractionResult{
			Text:     text,
			Pages:    pages,
			Method:   MethodPDFText,
			Duration: time.Since(start),
		}, nil
	default:
		warns = append(warns, "no embedded text layer")
	}

	text, pdftoPages, pw, err := e.pdfToText(ctx, data)
	warns = append(warns, pw...)
	if pages == 0 {
		pages = pdftoPages
	}
	res := ExtractionResult{
		Text:     text,
		Pages:    pages,
		Method:   MethodPdftotext,
		Duration: time.Since(start),
		Warnings: warns,
	}
	if err != nil {
		e.logger.Error("ocr.extract.failed", "error", err, "elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"method", MethodPdftotext,
		"pages", pages,
		"text_len", len(text),
		"warnings", len(warns),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
