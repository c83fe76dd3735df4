package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// FSIngestor loads invoices from the local filesystem.
type FSIngestor struct {
	SkipHidden  bool
	MaxFileSize int64 // bytes; 0 means no limit
	Logger      *slog.Logger
}

func NewFSIngestor(skipHidden bool, maxFileSize int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{SkipHidden: skipHidden, MaxFileSize: maxFileSize, Logger: logger}
}

// IngestPath reads and hashes a single PDF.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	if !constants.AllowedExt(filepath.Ext(abs)) {
		return out, common.InvalidInputErrorf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if i.MaxFileSize > 0 && info.Size() > i.MaxFileSize {
		return out, common.InvalidInputErrorf("%s is %d bytes, limit is %d", filepath.Base(abs), info.Size(), i.MaxFileSize)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return out, err
	}
	if !constants.LooksLikePDF(abs, data) || len(data) == 0 {
		return out, common.InvalidInputErrorf("%s is not a PDF file", filepath.Base(abs))
	}
	sum := sha256.Sum256(data)

	return IngestionResult{
		SourcePath: abs,
		FileName:   filepath.Base(abs),
		Size:       info.Size(),
		HashHex:    hex.EncodeToString(sum[:]),
		Data:       data,
	}, nil
}

// IngestDirectory walks root in lexical order and reads every PDF under it.
// Files whose content hash was already seen are reported as deduplicated and
// carry no data.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInputError("root path is required")
	}
	if _, err := os.Stat(root); err != nil {
		return nil, DirStats{}, fmt.Errorf("stat root: %w", err)
	}

	var results []IngestionResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			i.Logger.Warn("ingest.file.failed", "path", path, "error", err)
			results = append(results, IngestionResult{SourcePath: path, FileName: filepath.Base(path), Err: err.Error()})
			stats.Failed++
			return nil
		}

		stats.Succeeded++
		if first, dup := seen[r.HashHex]; dup {
			i.Logger.Info("ingest.file.duplicate", "path", r.SourcePath, "same_as", first)
			r.Deduplicated = true
			r.Data = nil
			stats.Deduplicated++
		} else {
			seen[r.HashHex] = r.SourcePath
		}
		results = append(results, r)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.Logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
