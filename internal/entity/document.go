package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Document is one structured object extracted from an invoice. Root values sit at
// the top level; line items, when present, live under "items".
type Document map[string]any

// Items returns the repeated entries of the document, or nil when "items" is
// missing or not an array.
func (d Document) Items() []any {
	items, _ := d[constants.ItemsGroupName].([]any)
	return items
}

// Row is one flattened line of a document, aligned with a header list.
type Row []string

// Table is a flattened document ready for display or spreadsheet export.
type Table struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// CellString renders one extracted value as spreadsheet text. Missing and null
// values are empty, numbers use their shortest decimal form, and nested values
// are compact JSON.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return numberString(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// numberString keeps integer literals digit-exact and prints everything else in
// shortest decimal form, so 12.50 and 1e3 render as 12.5 and 1000.
func numberString(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
