package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var ErrNoText = errors.New("no text content found in PDF")

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (text string, pages int, warnings []string, err error) {
	f, err := os.CreateTemp("", "invoice-*.pdf")
	if err != nil {
		return "", 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			e.logger.Warn("ocr.tempfile.remove_failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, nil, fmt.Errorf("close temp file: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		var warns []string
		if s := strings.TrimSpace(string(errb)); s != "" {
			warns = append(warns, s)
		}
		return "", 0, warns, fmt.Errorf("%s: %w", e.cfg.Pdftotext, err)
	}

	text, pages = splitFormFeeds(string(out))
	if text == "" {
		return "", pages, nil, ErrNoText
	}
	return text, pages, nil, nil
}

// splitFormFeeds turns pdftotext's form-feed page separators into blank lines and
// counts the pages.
func splitFormFeeds(raw string) (string, int) {
	parts := strings.Split(strings.TrimRight(raw, "\n"), "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "\n"); strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n"), len(parts)
}
