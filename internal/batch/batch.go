// Package batch runs the extraction pipeline over a directory of invoices.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// Outcome is the result for one ingested file.
type Outcome struct {
	Path     string
	Document entity.Document
	Err      error
}

type Summary struct {
	Stats     ingest.DirStats
	Outcomes  []Outcome // in path order
	Rejected  []Outcome // files that could not be read as PDFs
	Succeeded int
	Failed    int
}

// Total counts every matched file that was not a duplicate.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + len(s.Rejected)
}

// Documents returns the extracted documents in path order.
func (s Summary) Documents() []entity.Document {
	docs := make([]entity.Document, 0, s.Succeeded)
	for _, o := range s.Outcomes {
		if o.Err == nil {
			docs = append(docs, o.Document)
		}
	}
	return docs
}

type Runner struct {
	Processor *pipeline.Processor
	Exporter  *export.Service
	Ingestor  *ingest.FSIngestor
	Workers   int
	Logger    *slog.Logger
}

func NewRunner(proc *pipeline.Processor, exporter *export.Service, ingestor *ingest.FSIngestor, workers int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Runner{Processor: proc, Exporter: exporter, Ingestor: ingestor, Workers: workers, Logger: logger}
}

// Run ingests dir and processes every unique PDF with up to Workers files in flight.
// Per-file failures are reported in the summary, not returned.
func (r *Runner) Run(ctx context.Context, dir string, api entity.APISchema) (Summary, error) {
	start := time.Now()
	files, stats, err := r.Ingestor.IngestDirectory(ctx, dir)
	if err != nil {
		return Summary{Stats: stats}, err
	}

	var (
		ready    []ingest.IngestionResult
		rejected []Outcome
	)
	for _, f := range files {
		switch {
		case f.Err != "":
			rejected = append(rejected, Outcome{Path: f.SourcePath, Err: errors.New(f.Err)})
		case f.Ready():
			ready = append(ready, f)
		}
	}

	outcomes := make([]Outcome, len(ready))
	sem := make(chan struct{}, r.Workers)
	var wg sync.WaitGroup
	for i, f := range ready {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return Summary{Stats: stats}, ctx.Err()
		}
		wg.Add(1)
		go func(i int, f ingest.IngestionResult) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := r.Processor.Process(ctx, pipeline.Input{
				FileName:    f.FileName,
				Data:        f.Data,
				Schema:      api,
				ContentHash: f.HashHex,
			})
			out := Outcome{Path: f.SourcePath, Err: err}
			if err == nil {
				out.Document = res.Document
			} else {
				r.Logger.Error("batch.file.failed", "path", f.SourcePath, "error", err)
			}
			outcomes[i] = out
		}(i, f)
	}
	wg.Wait()

	sum := Summary{Stats: stats, Outcomes: outcomes, Rejected: rejected}
	for _, o := range outcomes {
		if o.Err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
	}
	r.Logger.Info("batch.run.ok",
		"dir", dir,
		"files", len(ready),
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"rejected", len(rejected),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

// WriteWorkbook exports the successful documents of sum to path, one sheet each.
func (r *Runner) WriteWorkbook(ctx context.Context, sum Summary, api entity.APISchema, path string) error {
	docs := sum.Documents()
	if len(docs) == 0 {
		return errors.New("no documents were extracted")
	}
	data, err := r.Exporter.WorkbookXLSX(ctx, docs, api)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.Logger.Info("batch.workbook.written", "path", path, "documents", len(docs), "bytes", len(data))
	return nil
}

// ProcessFile runs one file through the pipeline and writes a workbook next to
// outDir, named after the file. Used by watch mode.
func (r *Runner) ProcessFile(ctx context.Context, path string, api entity.APISchema, outDir string) (string, error) {
	f, err := r.Ingestor.IngestPath(ctx, path)
	if err != nil {
		return "", err
	}
	res, err := r.Processor.Process(ctx, pipeline.Input{FileName: f.FileName, Data: f.Data, Schema: api, ContentHash: f.HashHex})
	if err != nil {
		return "", err
	}
	data, err := r.Exporter.WorkbookXLSX(ctx, []entity.Document{res.Document}, api)
	if err != nil {
		return "", err
	}
	out := filepath.Join(outDir, export.DownloadName(f.FileName))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
