package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type fakeExtractor struct {
	res   TextExtractionResult
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, string, []byte) (TextExtractionResult, error) {
	f.calls++
	return f.res, f.err
}

func TestValidatePDF(t *testing.T) {
	require.NoError(t, ValidatePDF("scan.bin", []byte("%PDF-1.7\n...")))
	require.NoError(t, ValidatePDF("invoice.PDF", []byte("no magic but right extension")))

	err := ValidatePDF("invoice.pdf", nil)
	require.ErrorIs(t, err, common.ErrInvalidInput)

	err = ValidatePDF("photo.png", []byte("\x89PNG"))
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, common.PublicMessage(err), "not a PDF")
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &fakeExtractor{res: TextExtractionResult{Text: "remote", Method: "llamaparse"}}
		secondary := &fakeExtractor{}
		res, err := NewFallback(primary, secondary, nil).Extract(ctx, "a.pdf", []byte("%PDF-"))
		require.NoError(t, err)
		assert.Equal(t, "remote", res.Text)
		assert.Zero(t, secondary.calls)
	})

	t.Run("falls back on upstream failure", func(t *testing.T) {
		primary := &fakeExtractor{err: common.UpstreamError("llamaparse", errors.New("status 503"))}
		secondary := &fakeExtractor{res: TextExtractionResult{Text: "local", Method: "pdf-text", Warnings: []string{"w"}}}
		res, err := NewFallback(primary, secondary, nil).Extract(ctx, "a.pdf", []byte("%PDF-"))
		require.NoError(t, err)
		assert.Equal(t, "local", res.Text)
		require.Len(t, res.Warnings, 2)
		assert.Contains(t, res.Warnings[0], "status 503")
		assert.Equal(t, "w", res.Warnings[1])
	})

	t.Run("does not fall back on invalid input", func(t *testing.T) {
		primary := &fakeExtractor{err: common.InvalidInputError("uploaded file is empty")}
		secondary := &fakeExtractor{}
		_, err := NewFallback(primary, secondary, nil).Extract(ctx, "a.pdf", nil)
		require.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Zero(t, secondary.calls)
	})

	t.Run("both fail", func(t *testing.T) {
		first, second := errors.New("remote down"), errors.New("pdftotext missing")
		_, err := NewFallback(&fakeExtractor{err: first}, &fakeExtractor{err: second}, nil).Extract(ctx, "a.pdf", []byte("%PDF-"))
		require.ErrorIs(t, err, first)
		require.ErrorIs(t, err, second)
	})
}
