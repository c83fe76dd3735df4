package ocr

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	return []byte(s.stdout), []byte(s.stderr), s.err
}

func TestTextFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single Tj",
			content: "BT\n/F1 12 Tf\n72 720 Td\n(Invoice 42) Tj\nET",
			want:    "Invoice 42",
		},
		{
			name:    "operators on one line",
			content: "BT /F1 12 Tf 72 720 Td (ACME Ltd) Tj 0 -14 Td (Total: 10.00) Tj ET",
			want:    "ACME Ltd\nTotal: 10.00",
		},
		{
			name:    "TJ array with kerning",
			content: "BT [(Inv) -20 (oice)] TJ ET",
			want:    "Invoice",
		},
		{
			name:    "escapes and nested parentheses",
			content: `BT (Qty \(2\) at \0444.00 (net)) Tj ET`,
			want:    "Qty (2) at $4.00 (net)",
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello",
		},
		{
			name:    "quote operator starts a new line",
			content: "BT (first) Tj (second) ' ET",
			want:    "first\nsecond",
		},
		{
			name:    "no text operators",
			content: "q 1 0 0 1 0 0 cm /Im0 Do Q",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textFromContent([]byte(tt.content)))
		})
	}
}

func TestSplitFormFeeds(t *testing.T) {
	text, pages := splitFormFeeds("page one\n\fpage two\n\f")
	assert.Equal(t, "page one\n\npage two", text)
	assert.Equal(t, 2, pages)

	text, pages = splitFormFeeds("just text")
	assert.Equal(t, "just text", text)
	assert.Equal(t, 1, pages)
}

func TestExtractFallsBackToPdftotext(t *testing.T) {
	runner := &stubRunner{stdout: "Invoice 42\n\f"}
	e := NewExtractor(Config{Pdftotext: "/usr/bin/pdftotext", MaxPages: 3}, nil).WithRunner(runner)

	res, err := e.Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"))
	require.NoError(t, err)
	assert.Equal(t, MethodPdftotext, res.Method)
	assert.Equal(t, "Invoice 42", res.Text)
	assert.Equal(t, 1, res.Pages)
	assert.NotEmpty(t, res.Warnings)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "/usr/bin/pdftotext", call[0])
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "-l", "3"}, call[1:8])
	assert.True(t, strings.HasSuffix(call[8], ".pdf"))
	assert.Equal(t, "-", call[9])
}

func TestExtractErrors(t *testing.T) {
	t.Run("pdftotext fails", func(t *testing.T) {
		runner := &stubRunner{stderr: "Syntax Error", err: errors.New("exit status 1")}
		e := NewExtractor(Config{}, nil).WithRunner(runner)

		res, err := e.Extract(context.Background(), []byte("garbage"))
		require.Error(t, err)
		assert.Contains(t, res.Warnings, "Syntax Error")
	})

	t.Run("pdftotext finds nothing", func(t *testing.T) {
		e := NewExtractor(Config{}, nil).WithRunner(&stubRunner{stdout: "\n\f"})
		_, err := e.Extract(context.Background(), []byte("garbage"))
		require.ErrorIs(t, err, ErrNoText)
	})
}

func TestExtractTextLayer(t *testing.T) {
	runner := &stubRunner{stdout: "Invoice 42 via pdftotext\f"}
	e := NewExtractor(Config{}, nil).WithRunner(runner)

	res, err := e.Extract(context.Background(), buildTextPDF("Invoice 42"))
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Invoice 42")
	if res.Method == MethodPDFText {
		assert.Equal(t, 1, res.Pages)
		assert.Empty(t, runner.calls)
	}
}

func buildTextPDF(text string) []byte {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + text + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		off := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(off)) + off + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + strconv.Itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}
