package llamaparse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

var _ extract.TextExtractor = (*Client)(nil)

var errJobPending = errors.New("parse job still pending")

// Extract uploads the PDF, waits for the parse job and returns its markdown.
func (c *Client) Extract(ctx context.Context, fileName string, data []byte) (extract.TextExtractionResult, error) {
	if err := extract.ValidatePDF(fileName, data); err != nil {
		return extract.TextExtractionResult{}, err
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Info("llamaparse.extract.start", "file_name", fileName, "bytes", len(data))

	jobID, err := c.upload(ctx, fileName, data)
	if err != nil {
		c.log.Error("llamaparse.upload.failed", "file_name", fileName, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return extract.TextExtractionResult{}, err
	}

	if err := c.wait(ctx, jobID); err != nil {
		c.log.Error("llamaparse.job.failed", "job_id", jobID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return extract.TextExtractionResult{}, err
	}

	var res markdownResult
	if err := c.getJSON(ctx, "/api/parsing/job/"+jobID+"/result/"+ResultMarkdown, &res); err != nil {
		c.log.Error("llamaparse.result.failed", "job_id", jobID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return extract.TextExtractionResult{}, err
	}

	text := strings.TrimSpace(res.Markdown)
	out := extract.TextExtractionResult{
		Text:     text,
		Pages:    res.JobMetadata.JobPages,
		Method:   Name,
		Duration: time.Since(start),
	}
	if text == "" {
		out.Warnings = append(out.Warnings, "parser returned no text")
	}
	c.log.Info("llamaparse.extract.ok",
		"job_id", jobID,
		"pages", out.Pages,
		"text_len", len(text),
		"elapsed_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func (c *Client) upload(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	name := filepath.Base(fileName)
	if name == "." || name == "/" || name == "" {
		name = "upload.pdf"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", constants.ContentTypePDF)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/parsing/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var job jobResponse
	if err := c.do(req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", common.UpstreamError(Name, errors.New("upload response has no job id"))
	}
	c.log.Debug("llamaparse.upload.ok", "job_id", job.ID, "status", job.Status)
	return job.ID, nil
}

// wait polls the job until it leaves PENDING. The poll budget is bounded by the
// client timeout through ctx.
func (c *Client) wait(ctx context.Context, jobID string) error {
	attempts := uint(c.timeout/c.pollInterval) + 1
	err := retry.Do(
		func() error {
			var job jobResponse
			if err := c.getJSON(ctx, "/api/parsing/job/"+jobID, &job); err != nil {
				return retry.Unrecoverable(err)
			}
			switch strings.ToUpper(job.Status) {
			case StatusSuccess:
				return nil
			case StatusError, StatusCanceled:
				msg := job.ErrorMessage
				if msg == "" {
					msg = strings.ToLower(job.Status)
				}
				return retry.Unrecoverable(common.UpstreamError(Name, fmt.Errorf("job %s: %s", jobID, msg)))
			default:
				return errJobPending
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if errors.Is(err, errJobPending) || errors.Is(err, context.DeadlineExceeded) {
		return common.UpstreamError(Name, fmt.Errorf("job %s did not finish in %s", jobID, c.timeout))
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", constants.ContentTypeJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return common.UpstreamError(Name, ctxErr)
		}
		return common.UpstreamError(Name, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("llamaparse.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.UpstreamError(Name, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.UpstreamError(Name, fmt.Errorf("status %d: %s", resp.StatusCode, errorDetail(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return common.UpstreamError(Name, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func errorDetail(raw []byte) string {
	var e apiError
	if err := json.Unmarshal(raw, &e); err == nil && e.Detail != nil {
		if s, ok := e.Detail.(string); ok {
			return s
		}
		b, _ := json.Marshal(e.Detail)
		return string(b)
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
