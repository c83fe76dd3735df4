package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// NormalizeDocument reshapes a model response that failed strict validation so it
// fits the extraction schema:
// - drops keys the schema does not declare
// - turns null into "" and numbers/bools into strings
// - coerces a missing or non-array items value to []
// - fills declared but missing fields with ""
func NormalizeDocument(raw []byte, api entity.APISchema, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: document is null")
	}

	var changes []string
	out := normalizeObject(m, api.Root, "", &changes)

	items := make([]any, 0)
	switch t := m[constants.ItemsGroupName].(type) {
	case []any:
		for i, it := range t {
			obj, ok := it.(map[string]any)
			if !ok {
				changes = append(changes, fmt.Sprintf("items[%d](type)", i))
				continue
			}
			items = append(items, normalizeObject(obj, api.Items, fmt.Sprintf("items[%d].", i), &changes))
		}
	case nil:
		changes = append(changes, "items(missing)")
	default:
		changes = append(changes, "items(type)")
	}
	out[constants.ItemsGroupName] = items

	b, err := json.Marshal(out)
	if err != nil {
		return nil, changes, fmt.Errorf("sanitize: encode: %w", err)
	}
	slices.Sort(changes)
	if len(changes) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "changed", changes)
	}
	return b, changes, nil
}

func normalizeObject(in map[string]any, fields *entity.FieldMap, prefix string, changes *[]string) map[string]any {
	out := make(map[string]any, fields.Len()+1)
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		k := pair.Key
		if prefix == "" && k == constants.ItemsGroupName {
			continue
		}
		v, ok := in[k]
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = ""
			if ok {
				*changes = append(*changes, prefix+k+"(null)")
			} else {
				*changes = append(*changes, prefix+k+"(missing)")
			}
		default:
			out[k] = entity.CellString(t)
			*changes = append(*changes, prefix+k+"(coerced)")
		}
	}
	for k := range in {
		if prefix == "" && k == constants.ItemsGroupName {
			continue
		}
		if !entity.HasField(fields, k) {
			*changes = append(*changes, prefix+k+"(unknown)")
		}
	}
	return out
}
