package constants

import (
	"bytes"
	"path/filepath"
	"strings"
)

const (
	// PDF is the only source format the extraction pipeline accepts.
	PDF = "PDF"

	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeJSON = "application/json"

	// DefaultExportFilename is the attachment name used for workbook downloads.
	DefaultExportFilename = "extracted_data.xlsx"

	MaxUploadMBDefault = 32
)

// AllowedExtensions holds the file extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

var pdfMagic = []byte("%PDF-")

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// LooksLikePDF reports whether data carries the PDF header, falling back to the
// file name when the header sits past a leading BOM or junk bytes.
func LooksLikePDF(name string, data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, pdfMagic) {
		return true
	}
	return AllowedExt(filepath.Ext(name))
}
