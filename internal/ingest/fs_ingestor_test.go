package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "%PDF-1.4 b")
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF-1.4 a")
	writeFile(t, filepath.Join(root, "sub", "copy.PDF"), "%PDF-1.4 a")
	writeFile(t, filepath.Join(root, "notes.txt"), "hello")
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "%PDF-1.4 h")
	writeFile(t, filepath.Join(root, ".cache", "c.pdf"), "%PDF-1.4 c")

	results, stats, err := NewFSIngestor(true, 0, nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "a.pdf", results[0].FileName)
	assert.Equal(t, "b.pdf", results[1].FileName)
	assert.Equal(t, "copy.PDF", results[2].FileName)

	assert.True(t, results[0].Ready())
	assert.Equal(t, []byte("%PDF-1.4 a"), results[0].Data)
	assert.Len(t, results[0].HashHex, 64)

	assert.True(t, results[2].Deduplicated)
	assert.False(t, results[2].Ready())
	assert.Nil(t, results[2].Data)
	assert.Equal(t, results[0].HashHex, results[2].HashHex)

	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestIngestDirectoryIncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "%PDF-1.4 h")

	results, _, err := NewFSIngestor(false, 0, nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Ready())
}

func TestIngestDirectoryRecordsFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.pdf"), "%PDF-1.4 "+string(make([]byte, 64)))

	results, stats, err := NewFSIngestor(true, 16, nil).IngestDirectory(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Err, "limit is 16")
	assert.EqualValues(t, 1, stats.Failed)
}

func TestIngestDirectoryErrors(t *testing.T) {
	i := NewFSIngestor(true, 0, nil)

	_, _, err := i.IngestDirectory(context.Background(), " ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, _, err = i.IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = i.IngestDirectory(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestPathRejectsNonPDF(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "hello")

	_, err := NewFSIngestor(true, 0, nil).IngestPath(context.Background(), filepath.Join(root, "a.txt"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/tmp/.git"))
	assert.True(t, IsHidden(".env.pdf"))
	assert.False(t, IsHidden("invoice.pdf"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden(".."))
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "%PDF-1.4 e")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "existing.pdf"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit existing file")
	}

	writeFile(t, filepath.Join(root, "new.pdf"), "%PDF-1.4 n")
	writeFile(t, filepath.Join(root, "ignored.txt"), "x")

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.pdf"), p)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not emit new file")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcherNeedsRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
