package schema

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ErrNoSchema is returned when a schema declares neither root nor item fields.
var ErrNoSchema = common.NewAppError("NO_SCHEMA", "No schema provided", common.ErrInvalidInput)

// Validate checks the tree invariants: groups hold fields, leaves do not, the only
// group is "items", and names are non-empty and unique per level.
func Validate(tree []entity.SchemaField) error {
	if len(tree) == 0 {
		return ErrNoSchema
	}
	v := common.NewValidator()
	validateLevel(v, "schema", tree, true)
	return common.ValidateAndReturnError(v)
}

func validateLevel(v *common.Validator, path string, fields []entity.SchemaField, root bool) {
	seen := make(map[string]struct{}, len(fields))
	groups := 0
	for i, f := range fields {
		at := fmt.Sprintf("%s[%d].name", path, i)
		v.Field(at, f.Name, common.Required, common.PrintableName, common.MaxLength(constants.MaxFieldNameLength))
		if _, dup := seen[f.Name]; dup {
			v.Fail(at, f.Name, "is declared more than once")
		}
		seen[f.Name] = struct{}{}

		switch f.Type {
		case constants.FieldTypeField:
			if len(f.Fields) > 0 {
				v.Fail(at, f.Name, "is a field and cannot have child fields")
			}
			if root && f.Name == constants.ItemsGroupName {
				v.Fail(at, f.Name, "is reserved for the items group")
			}
		case constants.FieldTypeGroup:
			groups++
			if !root || f.Name != constants.ItemsGroupName {
				v.Fail(at, f.Name, "only a top-level group named items is supported")
				continue
			}
			if len(f.Fields) == 0 {
				v.Fail(at, f.Name, "group must declare at least one field")
				continue
			}
			validateLevel(v, fmt.Sprintf("%s[%d].fields", path, i), f.Fields, false)
		default:
			v.Fail(fmt.Sprintf("%s[%d].type", path, i), f.Type, "must be field or group")
		}
	}
	if groups > 1 {
		v.Fail(path, groups, "at most one items group is allowed")
	}
}

// ValidateAPI checks a root/items schema before it is used for extraction.
func ValidateAPI(api entity.APISchema) error {
	if api.IsEmpty() {
		return ErrNoSchema
	}
	v := common.NewValidator()
	for pair := api.Root.Oldest(); pair != nil; pair = pair.Next() {
		at := "root." + pair.Key
		v.Field(at, pair.Key, common.Required, common.PrintableName, common.MaxLength(constants.MaxFieldNameLength))
		if pair.Key == constants.ItemsGroupName {
			v.Fail(at, pair.Key, "is reserved for the items group")
		}
	}
	for pair := api.Items.Oldest(); pair != nil; pair = pair.Next() {
		v.Field("items."+pair.Key, pair.Key, common.Required, common.PrintableName, common.MaxLength(constants.MaxFieldNameLength))
	}
	return common.ValidateAndReturnError(v)
}
