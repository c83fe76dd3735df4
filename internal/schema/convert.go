package schema

import (
	"strconv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ToAPI converts a schema tree into its root/items form. The items group's
// children become item fields, everything else a root field; order is kept.
func ToAPI(tree []entity.SchemaField) entity.APISchema {
	out := entity.NewAPISchema()
	for _, f := range tree {
		if f.IsGroup() && f.Name == constants.ItemsGroupName {
			out.ItemsDescription = f.Description
			for _, child := range f.Fields {
				out.Items.Set(child.Name, entity.APIField{Type: constants.ValueTypeString, Description: child.Description})
			}
			continue
		}
		out.Root.Set(f.Name, entity.APIField{Type: constants.ValueTypeString, Description: f.Description})
	}
	return out
}

// FromAPI converts the root/items form back into a tree with fresh ids. A root
// key named "items" is skipped; the items group is only emitted when it has
// fields.
func FromAPI(api entity.APISchema) []entity.SchemaField {
	tree := make([]entity.SchemaField, 0, api.Root.Len()+1)
	id := 1
	for pair := api.Root.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == constants.ItemsGroupName {
			continue
		}
		tree = append(tree, leaf(strconv.Itoa(id), pair.Key, pair.Value.Description))
		id++
	}

	if api.Items.Len() == 0 {
		return tree
	}

	groupID := strconv.Itoa(id)
	children := make([]entity.SchemaField, 0, api.Items.Len())
	for pair := api.Items.Oldest(); pair != nil; pair = pair.Next() {
		childID := groupID + "." + strconv.Itoa(len(children)+1)
		children = append(children, leaf(childID, pair.Key, pair.Value.Description))
	}

	description := api.ItemsDescription
	if description == "" {
		description = constants.ItemsGroupDescription
	}
	return append(tree, entity.SchemaField{
		ID:          groupID,
		Name:        constants.ItemsGroupName,
		Type:        constants.FieldTypeGroup,
		Description: description,
		Fields:      children,
	})
}
