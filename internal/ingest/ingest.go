package ingest

import "path/filepath"

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	FileName     string
	Size         int64
	HashHex      string
	Data         []byte
	Deduplicated bool
	Err          string
}

// Ready reports whether the file was read and is not a duplicate.
func (r IngestionResult) Ready() bool {
	return r.Err == "" && !r.Deduplicated
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && base[0] == '.' && base != ".."
}
