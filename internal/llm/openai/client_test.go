package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

func completion(content, refusal string) map[string]any {
	msg := map[string]any{"role": "assistant", "content": content, "refusal": nil}
	if refusal != "" {
		msg["content"] = nil
		msg["refusal"] = refusal
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultModel,
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       msg,
		}},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
	}
}

func newTestClient(t *testing.T, lenient bool, handler func(w http.ResponseWriter, body map[string]any)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(server.Close)

	return NewClient(Config{
		APIKey:          "test-key",
		BaseURL:         server.URL,
		MaxRetries:      0,
		LenientOptional: lenient,
	}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestExtractDocument(t *testing.T) {
	var sent map[string]any
	client := newTestClient(t, false, func(w http.ResponseWriter, body map[string]any) {
		sent = body
		writeJSON(w, http.StatusOK, completion(
			`{"company":"ACME","address":"1 Road","total_sum":"20","items":[{"item":"bolt","unit_price":"2","quantity":"10","sum":"20"}]}`, ""))
	})

	doc, raw, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{
		Text:     "ACME invoice",
		Schema:   schema.DefaultAPI(),
		FileName: "acme.pdf",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "ACME", doc["company"])
	require.Len(t, doc.Items(), 1)

	assert.Equal(t, DefaultModel, sent["model"])
	assert.EqualValues(t, 0, sent["temperature"])

	format := sent["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "invoice_extraction", js["name"])
	assert.Equal(t, true, js["strict"])

	messages := sent["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Contains(t, messages[0].(map[string]any)["content"], "Root fields: company, address, total_sum")
	assert.Equal(t, "File name: acme.pdf\n\nACME invoice", messages[1].(map[string]any)["content"])
}

func TestExtractDocumentLogsJobID(t *testing.T) {
	client := newTestClient(t, false, func(w http.ResponseWriter, _ map[string]any) {
		writeJSON(w, http.StatusOK, completion(`{"company":"ACME","address":"","total_sum":"","items":[]}`, ""))
	})
	var logs bytes.Buffer
	client.log = slog.New(slog.NewJSONHandler(&logs, nil))

	ctx := common.WithJobID(context.Background(), "job-7")
	_, _, err := client.ExtractDocument(ctx, llm.ExtractRequest{Text: "ACME", Schema: schema.DefaultAPI()})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"msg":"llm.extract.start"`)
	assert.Contains(t, logs.String(), `"job_id":"job-7"`)
}

func TestExtractDocumentLenient(t *testing.T) {
	content := `{"company":"ACME","total_sum":20,"note":"x","items":null}`

	t.Run("normalizes when lenient", func(t *testing.T) {
		client := newTestClient(t, true, func(w http.ResponseWriter, _ map[string]any) {
			writeJSON(w, http.StatusOK, completion(content, ""))
		})
		doc, raw, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "t", Schema: schema.DefaultAPI()})
		require.NoError(t, err)
		assert.Equal(t, "20", doc["total_sum"])
		assert.Equal(t, "", doc["address"])
		assert.NotContains(t, doc, "note")
		assert.Empty(t, doc.Items())
		assert.JSONEq(t, `{"company":"ACME","address":"","total_sum":"20","items":[]}`, string(raw))
	})

	t.Run("fails when strict", func(t *testing.T) {
		client := newTestClient(t, false, func(w http.ResponseWriter, _ map[string]any) {
			writeJSON(w, http.StatusOK, completion(content, ""))
		})
		_, raw, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "t", Schema: schema.DefaultAPI()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation failed")
		assert.Equal(t, content, string(raw))
	})
}

func TestExtractDocumentErrors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		client := newTestClient(t, true, func(w http.ResponseWriter, _ map[string]any) {
			t.Error("no request expected")
		})
		_, _, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "  ", Schema: schema.DefaultAPI()})
		require.ErrorIs(t, err, common.ErrInvalidInput)
		assert.Equal(t, "No text provided", common.PublicMessage(err))
	})

	t.Run("refusal", func(t *testing.T) {
		client := newTestClient(t, true, func(w http.ResponseWriter, _ map[string]any) {
			writeJSON(w, http.StatusOK, completion("", "I can't help with that."))
		})
		_, _, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "t", Schema: schema.DefaultAPI()})
		require.ErrorIs(t, err, common.ErrUpstream)
		assert.Contains(t, err.Error(), "refused")
	})

	t.Run("api error", func(t *testing.T) {
		client := newTestClient(t, true, func(w http.ResponseWriter, _ map[string]any) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"message": "bad schema", "type": "invalid_request_error", "param": nil, "code": nil},
			})
		})
		_, _, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "t", Schema: schema.DefaultAPI()})
		require.ErrorIs(t, err, common.ErrUpstream)
		assert.Contains(t, common.PublicMessage(err), "bad schema")
		assert.Equal(t, http.StatusBadGateway, common.HTTPStatus(err))
	})

	t.Run("no choices", func(t *testing.T) {
		client := newTestClient(t, true, func(w http.ResponseWriter, _ map[string]any) {
			resp := completion("{}", "")
			resp["choices"] = []any{}
			writeJSON(w, http.StatusOK, resp)
		})
		_, _, err := client.ExtractDocument(context.Background(), llm.ExtractRequest{Text: "t", Schema: schema.DefaultAPI()})
		require.ErrorIs(t, err, common.ErrUpstream)
	})
}

func TestNewClientDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	c := NewClient(Config{}, nil)
	assert.Equal(t, "from-env", c.cfg.APIKey)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
}
