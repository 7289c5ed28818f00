package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap"
)

const (
	saveFailedMessage   = "Failed to save to Google Sheet. Check your webhook URL."
	unreachableMessage  = `Webhook not accessible. Make sure it's deployed as "Anyone".`
	maxResponseBodySize = 1 << 20
)

var tracer = telemetry.GetTracer("jobsnap/capture/webhook")

// appendResult is the optional body returned by the sheet script.
type appendResult struct {
	Success *bool           `json:"success,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// failure reports the message carried by the error field, if the field is
// set to anything truthy. Non-string values are reported as raw JSON.
func (r appendResult) failure() (string, bool) {
	raw := bytes.TrimSpace(r.Error)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, true
	}
	return string(raw), true
}

// Client appends rows to a spreadsheet through its web-app endpoint.
type Client struct {
	client *http.Client
	logger *zap.Logger
}

func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Append POSTs row to webhookURL. A 2xx reply whose body carries an "error"
// field is an application-level failure.
func (c *Client) Append(ctx context.Context, webhookURL string, row models.SheetRow) error {
	ctx, span := tracer.Start(ctx, "Append")
	defer span.End()

	body, err := json.Marshal(row)
	if err != nil {
		return errors.Internal("marshaling row", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Persistence(saveFailedMessage, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to execute webhook request", zap.Error(err))
		return errors.Persistence(saveFailedMessage, err)
	}
	defer c.closeBody(resp)

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("unexpected webhook status", zap.Int("status_code", resp.StatusCode))
		return errors.Persistence(saveFailedMessage, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		c.logger.Warn("failed to read webhook response", zap.Error(err))
		return nil
	}

	// Apps Script often answers with HTML or nothing at all; only a JSON
	// error field counts against the append.
	var result appendResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	if msg, failed := result.failure(); failed {
		c.logger.Warn("webhook reported an error", zap.String("error", msg))
		return errors.Persistence(msg, nil)
	}

	return nil
}

// Probe checks that a plain GET to webhookURL succeeds.
func (c *Client) Probe(ctx context.Context, webhookURL string) error {
	ctx, span := tracer.Start(ctx, "Probe")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, webhookURL, nil)
	if err != nil {
		return errors.Persistence(unreachableMessage, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Persistence(unreachableMessage, err)
	}
	defer c.closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("webhook probe failed", zap.Int("status_code", resp.StatusCode))
		return errors.Persistence(unreachableMessage, nil)
	}
	return nil
}

func (c *Client) closeBody(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
	if err := resp.Body.Close(); err != nil {
		c.logger.Warn("failed to close response body", zap.Error(err))
	}
}
