package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))

	tests := []struct {
		name string
		tree []entity.SchemaField
		want string
	}{
		{
			name: "empty tree",
			tree: nil,
			want: "No schema provided",
		},
		{
			name: "blank name",
			tree: []entity.SchemaField{leaf("1", "  ", "")},
			want: "is required",
		},
		{
			name: "duplicate names",
			tree: []entity.SchemaField{leaf("1", "total", ""), leaf("2", "total", "")},
			want: "declared more than once",
		},
		{
			name: "leaf with children",
			tree: []entity.SchemaField{{ID: "1", Name: "total", Type: constants.FieldTypeField, Fields: []entity.SchemaField{leaf("1.1", "x", "")}}},
			want: "cannot have child fields",
		},
		{
			name: "empty items group",
			tree: []entity.SchemaField{{ID: "1", Name: "items", Type: constants.FieldTypeGroup}},
			want: "at least one field",
		},
		{
			name: "group other than items",
			tree: []entity.SchemaField{{ID: "1", Name: "taxes", Type: constants.FieldTypeGroup, Fields: []entity.SchemaField{leaf("1.1", "rate", "")}}},
			want: "only a top-level group named items",
		},
		{
			name: "leaf named items",
			tree: []entity.SchemaField{leaf("1", "items", "")},
			want: "reserved for the items group",
		},
		{
			name: "unknown type",
			tree: []entity.SchemaField{{ID: "1", Name: "x", Type: "table"}},
			want: "must be field or group",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tree)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrValidation))
		})
	}
}

func TestValidateAPI(t *testing.T) {
	require.NoError(t, ValidateAPI(DefaultAPI()))

	err := ValidateAPI(entity.NewAPISchema())
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, "No schema provided", common.PublicMessage(err))

	items := entity.NewAPISchema()
	items.Items.Set("sku", entity.APIField{Type: "string"})
	require.NoError(t, ValidateAPI(items), "item fields alone are a usable schema")

	reserved := entity.NewAPISchema()
	reserved.Root.Set("items", entity.APIField{Type: "string"})
	require.ErrorIs(t, ValidateAPI(reserved), common.ErrValidation)
}
