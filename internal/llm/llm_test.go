package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

func TestBuildExtractionJSONSchema(t *testing.T) {
	js := BuildExtractionJSONSchema(schema.DefaultAPI())

	raw, err := json.Marshal(js)
	require.NoError(t, err)

	var decoded struct {
		Type                 string `json:"type"`
		AdditionalProperties bool   `json:"additionalProperties"`
		Required             []string
		Properties           map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
			Items       struct {
				Required             []string `json:"required"`
				AdditionalProperties bool     `json:"additionalProperties"`
				Properties           map[string]map[string]string
			} `json:"items"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "object", decoded.Type)
	assert.False(t, decoded.AdditionalProperties)
	assert.Equal(t, []string{"company", "address", "total_sum", "items"}, decoded.Required)
	assert.Equal(t, "name of company", decoded.Properties["company"].Description)

	items := decoded.Properties["items"]
	assert.Equal(t, "array", items.Type)
	assert.Equal(t, ItemsArrayDescription, items.Description)
	assert.Equal(t, []string{"item", "unit_price", "quantity", "sum"}, items.Items.Required)
	assert.False(t, items.Items.AdditionalProperties)
	assert.Equal(t, "string", items.Items.Properties["quantity"]["type"])

	// Properties are emitted in declaration order.
	s := string(raw)
	assert.Less(t, strings.Index(s, `"company"`), strings.Index(s, `"address"`))
	assert.Less(t, strings.Index(s, `"address"`), strings.Index(s, `"total_sum"`))
}

func TestBuildExtractionJSONSchemaWithoutItemFields(t *testing.T) {
	api := entity.NewAPISchema()
	api.Root.Set("vendor", entity.APIField{Type: "string", Description: "seller"})

	js := BuildExtractionJSONSchema(api)
	require.NoError(t, ValidateJSONAgainstSchema(js, []byte(`{"vendor":"ACME","items":[]}`)))
	require.Error(t, ValidateJSONAgainstSchema(js, []byte(`{"vendor":"ACME"}`)))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	js := BuildExtractionJSONSchema(schema.DefaultAPI())

	valid := `{"company":"ACME","address":"1 Road","total_sum":"10",
		"items":[{"item":"bolt","unit_price":"1","quantity":"10","sum":"10"}]}`
	require.NoError(t, ValidateJSONAgainstSchema(js, []byte(valid)))

	tests := map[string]string{
		"extra root key":   `{"company":"A","address":"B","total_sum":"1","items":[],"vat":"x"}`,
		"number value":     `{"company":"A","address":"B","total_sum":1,"items":[]}`,
		"missing root key": `{"company":"A","address":"B","items":[]}`,
		"item missing key": `{"company":"A","address":"B","total_sum":"1","items":[{"item":"x"}]}`,
		"not json":         `{"company":`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Error(t, ValidateJSONAgainstSchema(js, []byte(doc)))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt(schema.DefaultAPI())

	assert.True(t, strings.HasPrefix(got, "You are an expert at extracting structured data from invoices and bank statements."))
	assert.Contains(t, got, "Root fields: company, address, total_sum\n")
	assert.Contains(t, got, "Item fields: item, unit_price, quantity, sum\n")
	assert.True(t, strings.HasSuffix(got, "Do not add any additional fields."))
}

func TestBuildUserPrompt(t *testing.T) {
	assert.Equal(t, "INVOICE 42", BuildUserPrompt(ExtractRequest{Text: "INVOICE 42"}))
	assert.Equal(t, "File name: a.pdf\n\nINVOICE 42", BuildUserPrompt(ExtractRequest{Text: "INVOICE 42", FileName: " a.pdf "}))
}

func TestNormalizeDocument(t *testing.T) {
	api := schema.DefaultAPI()
	js := BuildExtractionJSONSchema(api)

	t.Run("coerces values and drops unknown keys", func(t *testing.T) {
		raw := `{"company":"ACME","address":null,"total_sum":12.50,"vat":"20%",
			"items":[{"item":"bolt","unit_price":1.25,"quantity":10,"sum":true,"color":"red"}, "junk"]}`

		out, changed, err := NormalizeDocument([]byte(raw), api, nil)
		require.NoError(t, err)
		require.NoError(t, ValidateJSONAgainstSchema(js, out))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out, &doc))
		assert.Equal(t, "", doc["address"])
		assert.Equal(t, "12.5", doc["total_sum"])
		assert.NotContains(t, doc, "vat")

		items := doc["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "1.25", item["unit_price"])
		assert.Equal(t, "10", item["quantity"])
		assert.Equal(t, "true", item["sum"])
		assert.NotContains(t, item, "color")

		assert.Contains(t, changed, "vat(unknown)")
		assert.Contains(t, changed, "address(null)")
		assert.Contains(t, changed, "items[1](type)")
		assert.Contains(t, changed, "items[0].color(unknown)")
	})

	t.Run("fills missing fields and items", func(t *testing.T) {
		out, changed, err := NormalizeDocument([]byte(`{"company":"ACME"}`), api, nil)
		require.NoError(t, err)
		require.NoError(t, ValidateJSONAgainstSchema(js, out))
		assert.JSONEq(t, `{"company":"ACME","address":"","total_sum":"","items":[]}`, string(out))
		assert.Contains(t, changed, "items(missing)")
	})

	t.Run("items of the wrong type become empty", func(t *testing.T) {
		out, _, err := NormalizeDocument([]byte(`{"company":"A","address":"B","total_sum":"1","items":"none"}`), api, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"company":"A","address":"B","total_sum":"1","items":[]}`, string(out))
	})

	t.Run("rejects non objects", func(t *testing.T) {
		_, _, err := NormalizeDocument([]byte(`[1,2]`), api, nil)
		require.Error(t, err)
		_, _, err = NormalizeDocument([]byte(`null`), api, nil)
		require.Error(t, err)
	})
}
