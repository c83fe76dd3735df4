package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

const (
	minColWidth = 10
	maxColWidth = 60
)

// JobReader loads stored extraction jobs.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
}

// Service is a tiny façade that produces XLSX bytes for exports.
type Service struct {
	jobs   JobReader
	logger *slog.Logger
}

// NewService builds an export service. jobs may be nil when only ad hoc documents
// are exported.
func NewService(jobs JobReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// WorkbookXLSX returns an XLSX workbook (as bytes) with one sheet per document.
func (s *Service) WorkbookXLSX(ctx context.Context, docs []entity.Document, api entity.APISchema) ([]byte, error) {
	start := time.Now()
	if api.IsEmpty() {
		return nil, schema.ErrNoSchema
	}
	if len(docs) == 0 {
		return nil, common.InvalidInputError("No documents provided")
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	headers := Headers(api)
	rowCount := 0
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := SheetName(i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("xlsx rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("xlsx new sheet: %w", err)
		}

		rows := Flatten(doc, api)
		if err := writeSheet(f, sheet, headers, rows, bold); err != nil {
			return nil, fmt.Errorf("xlsx write %s: %w", sheet, err)
		}
		rowCount += len(rows)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"rows", rowCount,
		"columns", len(headers),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows []entity.Row, headerStyle int) error {
	widths := make([]int, len(headers))
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
			if n := utf8.RuneCountInString(v); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	if len(headers) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(clamp(w+2, minColWidth, maxColWidth))); err != nil {
			return err
		}
	}
	return nil
}

// ExportJobXLSX returns the workbook for a stored job together with a download name.
func (s *Service) ExportJobXLSX(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if s.jobs == nil {
		return nil, "", common.NotFoundError("job history is disabled")
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if job.Status != constants.JobStatusExtracted || len(job.Document) == 0 {
		return nil, "", common.InvalidInputErrorf("job %s has no extracted document (status %s)", id, job.Status)
	}

	var api entity.APISchema
	if err := json.Unmarshal(job.Schema, &api); err != nil {
		return nil, "", fmt.Errorf("decode job schema: %w", err)
	}
	var doc entity.Document
	dec := json.NewDecoder(bytes.NewReader(job.Document))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("decode job document: %w", err)
	}

	data, err := s.WorkbookXLSX(ctx, []entity.Document{doc}, api)
	if err != nil {
		return nil, "", err
	}
	return data, DownloadName(job.FileName), nil
}

// DownloadName derives the workbook name from the source file name.
func DownloadName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	base = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		return constants.DefaultExportFilename
	}
	return base + ".xlsx"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
