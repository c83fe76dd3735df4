package export

import (
	"strconv"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// SheetName names the sheet or table holding the i-th document (0-based).
func SheetName(i int) string {
	return "Document " + strconv.Itoa(i+1)
}

// Headers returns the column order: root fields, then item fields, as declared.
func Headers(api entity.APISchema) []string {
	roots := api.RootNames()
	return append(roots, api.ItemNames()...)
}

// Flatten turns one document into rows aligned with Headers. Root values repeat on
// every item row; a document without items yields one row with empty item cells.
func Flatten(doc entity.Document, api entity.APISchema) []entity.Row {
	rootNames := api.RootNames()
	itemNames := api.ItemNames()
	width := len(rootNames) + len(itemNames)

	base := make(entity.Row, 0, width)
	for _, name := range rootNames {
		base = append(base, entity.CellString(doc[name]))
	}

	items := doc.Items()
	if len(items) == 0 {
		row := make(entity.Row, width)
		copy(row, base)
		return []entity.Row{row}
	}

	rows := make([]entity.Row, 0, len(items))
	for _, it := range items {
		obj, _ := it.(map[string]any)
		row := make(entity.Row, 0, width)
		row = append(row, base...)
		for _, name := range itemNames {
			row = append(row, entity.CellString(obj[name]))
		}
		rows = append(rows, row)
	}
	return rows
}

// Preview flattens every document into a named table.
func Preview(docs []entity.Document, api entity.APISchema) []entity.Table {
	headers := Headers(api)
	tables := make([]entity.Table, 0, len(docs))
	for i, doc := range docs {
		tables = append(tables, entity.Table{
			Name:    SheetName(i),
			Headers: headers,
			Rows:    Flatten(doc, api),
		})
	}
	return tables
}
