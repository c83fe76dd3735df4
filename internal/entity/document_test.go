package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"ACME", "ACME"},
		{json.Number("12.50"), "12.5"},
		{json.Number("1e3"), "1000"},
		{json.Number("1.0E-2"), "0.01"},
		{json.Number("2E+1"), "20"},
		{json.Number("12345678901234567890"), "12345678901234567890"},
		{12.5, "12.5"},
		{float64(3), "3"},
		{1e21, "1000000000000000000000"},
		{0.0, "0"},
		{7, "7"},
		{int64(-2), "-2"},
		{true, "true"},
		{false, "false"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{"x", 2.0}, `["x",2]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CellString(tt.in), "%#v", tt.in)
	}
}

func TestDocumentItems(t *testing.T) {
	assert.Nil(t, Document{}.Items())
	assert.Nil(t, Document{"items": "none"}.Items())
	assert.Len(t, Document{"items": []any{map[string]any{}, map[string]any{}}}.Items(), 2)
}

func TestHasField(t *testing.T) {
	assert.False(t, HasField(nil, "x"))
	m := NewFieldMap()
	m.Set("total", APIField{Type: "string"})
	assert.True(t, HasField(m, "total"))
	assert.False(t, HasField(m, "other"))
}
