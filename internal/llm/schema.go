package llm

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ItemsArrayDescription describes the items array to the model.
const ItemsArrayDescription = "list of items"

// BuildExtractionJSONSchema returns the JSON Schema for one document as a generic map.
// We pass this to OpenAI as a strict structured output constraint and also use it
// locally to validate. Properties keep the schema's declaration order.
func BuildExtractionJSONSchema(api entity.APISchema) map[string]any {
	itemProps, itemRequired := stringProps(api.Items, false)
	rootProps, required := stringProps(api.Root, true)

	rootProps.Set(constants.ItemsGroupName, map[string]any{
		"type":        "array",
		"description": ItemsArrayDescription,
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           itemProps,
			"required":             itemRequired,
		},
	})
	required = append(required, constants.ItemsGroupName)

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           rootProps,
		"required":             required,
	}
}

func stringProps(fields *entity.FieldMap, root bool) (*orderedmap.OrderedMap[string, any], []string) {
	props := orderedmap.New[string, any]()
	required := make([]string, 0, fields.Len())
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		if root && pair.Key == constants.ItemsGroupName {
			continue
		}
		props.Set(pair.Key, map[string]any{
			"type":        constants.ValueTypeString,
			"description": pair.Value.Description,
		})
		required = append(required, pair.Key)
	}
	return props, required
}
