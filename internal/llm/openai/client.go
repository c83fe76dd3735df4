package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

var _ llm.DocumentExtractor = (*Client)(nil)

// ExtractDocument implements llm.DocumentExtractor. The response is constrained by
// a strict JSON schema built from req.Schema and validated again locally.
func (c *Client) ExtractDocument(ctx context.Context, req llm.ExtractRequest) (entity.Document, []byte, error) {
	rid := uuid.New().String()
	if id := common.RequestIDFromContext(ctx); id != "" {
		rid = id
	}
	jobID := common.JobIDFromContext(ctx)
	start := time.Now()

	if strings.TrimSpace(req.Text) == "" {
		return nil, nil, common.NewAppError("NO_TEXT", "No text provided", common.ErrInvalidInput)
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"job_id", jobID,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"file_name", req.FileName,
		"root_fields", req.Schema.Root.Len(),
		"item_fields", req.Schema.Items.Len(),
	)

	schema := llm.BuildExtractionJSONSchema(req.Schema)
	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.BuildSystemPrompt(req.Schema)),
			openai.UserMessage(llm.BuildUserPrompt(req)),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        constants.ExtractionSchemaName,
					Description: openai.String("Fields extracted from one invoice"),
					Strict:      openai.Bool(true),
					Schema:      schema,
				},
			},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = mapOpenAIError(err)
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, common.UpstreamError("openai", errors.New("no choices in openai response"))
	}

	msg := resp.Choices[0].Message
	if refusal := strings.TrimSpace(msg.Refusal); refusal != "" {
		c.log.Warn("llm.extract.refusal",
			"req_id", rid, "refusal", refusal,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, common.UpstreamError("openai", fmt.Errorf("model refused: %s", refusal))
	}
	rawContent := []byte(strings.TrimSpace(msg.Content))
	if len(rawContent) == 0 {
		return nil, nil, common.UpstreamError("openai", errors.New("empty completion content"))
	}

	// Validate strictly first.
	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		if !c.cfg.LenientOptional {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", err, "content", string(rawContent),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, fmt.Errorf("schema validation failed: %w", err)
		}
		cleaned, changed, sErr := llm.NormalizeDocument(rawContent, req.Schema, c.log)
		if sErr != nil {
			c.log.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(cleaned),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("llm.extract.lenient_sanitize_applied",
			"req_id", rid, "changed", changed,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	var doc entity.Document
	dec := json.NewDecoder(bytes.NewReader(rawContent))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, fmt.Errorf("unmarshal document: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"job_id", jobID,
		"model", resp.Model,
		"items", len(doc.Items()),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, rawContent, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return common.UpstreamError("openai", fmt.Errorf("status %d: %s", apiErr.StatusCode, apiErr.Message))
		}
		return common.UpstreamError("openai", fmt.Errorf("status %d", apiErr.StatusCode))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return common.UpstreamError("openai", err)
}
