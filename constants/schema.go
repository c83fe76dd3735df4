package constants

// FieldType distinguishes leaf fields from groups in a schema tree.
type FieldType string

const (
	FieldTypeField FieldType = "field"
	FieldTypeGroup FieldType = "group"
)

const (
	// ItemsGroupName is the only group name with meaning: its children are
	// extracted once per line item.
	ItemsGroupName = "items"

	// ItemsGroupDescription is used when a schema does not carry its own.
	ItemsGroupDescription = "list of items purchased"

	// ValueTypeString is the JSON type every extracted value is requested as.
	ValueTypeString = "string"

	MaxFieldNameLength = 64

	// ExtractionSchemaName names the structured output format sent to the model.
	ExtractionSchemaName = "invoice_extraction"
)
