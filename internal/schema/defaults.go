package schema

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Default returns the schema new sessions start from: three invoice-level fields
// and the four usual line item columns.
func Default() []entity.SchemaField {
	return []entity.SchemaField{
		leaf("1", "company", "name of company"),
		leaf("2", "address", "address of company"),
		leaf("3", "total_sum", "total amount we purchased"),
		{
			ID:          "4",
			Name:        constants.ItemsGroupName,
			Type:        constants.FieldTypeGroup,
			Description: constants.ItemsGroupDescription,
			Fields: []entity.SchemaField{
				leaf("4.1", "item", "name of item"),
				leaf("4.2", "unit_price", "unit price of item"),
				leaf("4.3", "quantity", "quantity we purchased"),
				leaf("4.4", "sum", "total amount we purchased"),
			},
		},
	}
}

// DefaultAPI is Default in root/items form.
func DefaultAPI() entity.APISchema {
	return ToAPI(Default())
}

func leaf(id, name, description string) entity.SchemaField {
	return entity.SchemaField{ID: id, Name: name, Type: constants.FieldTypeField, Description: description}
}
