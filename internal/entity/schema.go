package entity

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// SchemaField is one node of the schema tree edited by users.
type SchemaField struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        constants.FieldType `json:"type"`
	Description string              `json:"description"`
	Fields      []SchemaField       `json:"fields,omitempty"`
}

// IsGroup reports whether the node holds child fields.
func (f SchemaField) IsGroup() bool {
	return f.Type == constants.FieldTypeGroup
}

// APIField describes one extracted value.
type APIField struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// FieldMap keeps fields in declaration order through JSON round trips.
type FieldMap = orderedmap.OrderedMap[string, APIField]

// NewFieldMap returns an empty ordered field map.
func NewFieldMap() *FieldMap {
	return orderedmap.New[string, APIField]()
}

// APISchema is the root/items form of a schema sent to the extraction endpoints.
type APISchema struct {
	Root             *FieldMap `json:"root"`
	Items            *FieldMap `json:"items"`
	ItemsDescription string    `json:"items_description,omitempty"`
}

// NewAPISchema returns a schema with empty root and items maps.
func NewAPISchema() APISchema {
	return APISchema{Root: NewFieldMap(), Items: NewFieldMap()}
}

func (s APISchema) MarshalJSON() ([]byte, error) {
	type plain APISchema
	p := plain(s)
	if p.Root == nil {
		p.Root = NewFieldMap()
	}
	if p.Items == nil {
		p.Items = NewFieldMap()
	}
	return json.Marshal(p)
}

// RootNames returns root field names in declaration order.
func (s APISchema) RootNames() []string {
	return keys(s.Root)
}

// ItemNames returns item field names in declaration order.
func (s APISchema) ItemNames() []string {
	return keys(s.Items)
}

// IsEmpty reports whether the schema declares no fields at all.
func (s APISchema) IsEmpty() bool {
	return s.Root.Len() == 0 && s.Items.Len() == 0
}

func keys(m *FieldMap) []string {
	out := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// HasField reports whether m declares name. A nil map declares nothing.
func HasField(m *FieldMap, name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Get(name)
	return ok
}
