package ocr

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfText reads the embedded text layer with pdfcpu, one page at a time.
func (e *Extractor) pdfText(data []byte) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", 0, fmt.Errorf("pdfcpu read: %w", err)
	}

	last := ctx.PageCount
	if e.cfg.MaxPages > 0 && last > e.cfg.MaxPages {
		last = e.cfg.MaxPages
	}

	pages := make([]string, 0, last)
	for pageNr := 1; pageNr <= last; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			e.logger.Debug("ocr.pdf_text.page_skipped", "page", pageNr, "error", err)
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if text := textFromContent(content); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), ctx.PageCount, nil
}

// textFromContent walks a page content stream and collects the operands of the
// text showing operators. Positioning operators start a new line.
func textFromContent(data []byte) string {
	var (
		lines   []string
		cur     strings.Builder
		pending []string
	)
	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, n := readLiteral(data[i:])
			pending = append(pending, s)
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, n := readHex(data[i:])
			pending = append(pending, s)
			i += n
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '[' || c == ']' || c == '{' || c == '}' || isSpace(c):
			i++
		default:
			j := i + 1
			for j < len(data) && !isSpace(data[j]) && !isDelim(data[j]) {
				j++
			}
			op := string(data[i:j])
			i = j
			if !isOperator(op) {
				continue
			}
			switch op {
			case "Tj", "TJ":
				cur.WriteString(strings.Join(pending, ""))
			case "'", `"`:
				flush()
				cur.WriteString(strings.Join(pending, ""))
			case "Td", "TD", "T*", "Tm", "ET":
				flush()
			}
			pending = pending[:0]
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// readLiteral decodes a (...) string with nested parentheses and escapes and
// returns it with the number of bytes consumed.
func readLiteral(b []byte) (string, int) {
	var sb strings.Builder
	depth := 0
	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		switch {
		case c == '\\' && i+1 < len(b):
			i++
			switch b[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\n', '\r':
				// line continuation
			default:
				if b[i] >= '0' && b[i] <= '7' {
					val := 0
					for k := 0; k < 3 && i < len(b) && b[i] >= '0' && b[i] <= '7'; k++ {
						val = val*8 + int(b[i]-'0')
						i++
					}
					i--
					sb.WriteRune(printable(rune(val & 0xff)))
				} else {
					sb.WriteByte(b[i])
				}
			}
		case c == '(':
			if depth > 0 {
				sb.WriteByte(c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		default:
			sb.WriteRune(printable(rune(c)))
		}
	}
	return sb.String(), i
}

// readHex decodes a <...> string. Two-byte glyph ids from composite fonts do not
// map to text and come out as blanks.
func readHex(b []byte) (string, int) {
	end := bytes.IndexByte(b, '>')
	if end < 0 {
		return "", len(b)
	}
	digits := bytes.Map(func(r rune) rune {
		if unicode.Is(unicode.ASCII_Hex_Digit, r) {
			return r
		}
		return -1
	}, b[1:end])
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(raw, digits); err != nil {
		return "", end + 1
	}
	var sb strings.Builder
	for _, c := range raw {
		sb.WriteRune(printable(rune(c)))
	}
	return sb.String(), end + 1
}

func printable(r rune) rune {
	if r == '\t' || r == '\n' || r == '\r' {
		return ' '
	}
	if !unicode.IsPrint(r) {
		return ' '
	}
	return r
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isOperator(tok string) bool {
	if tok == "'" || tok == `"` {
		return true
	}
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
