package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/config"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/classifier")

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// statusError carries a non-2xx reply and the API's own error message, if any.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("status %d: %s", e.code, e.message)
	}
	return fmt.Sprintf("status %d", e.code)
}

// Client classifies pages with the Gemini generateContent API.
type Client struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		client:      &http.Client{Timeout: cfg.HTTPClientTimeout},
		baseURL:     strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:       cfg.GeminiModel,
		temperature: cfg.GeminiTemperature,
		maxTokens:   cfg.GeminiMaxOutputTokens,
		logger:      logger,
	}
}

// Classify sends one generation request for doc. A reply that is not valid
// JSON yields the fallback record rather than an error.
func (c *Client) Classify(ctx context.Context, doc *models.PageDocument, apiKey string) (*models.JobRecord, error) {
	ctx, span := tracer.Start(ctx, "Classify")
	defer span.End()

	text, err := c.generate(ctx, apiKey, BuildPrompt(doc), &generationConfig{
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		var se *statusError
		if stderrors.As(err, &se) {
			msg := se.message
			if msg == "" {
				msg = http.StatusText(se.code)
			}
			return nil, errors.API("Gemini API error: "+msg, err)
		}
		if errors.IsType(err, errors.ErrTypeAPI) {
			return nil, errors.API("Gemini API error: "+errors.Message(err), err)
		}
		return nil, err
	}

	record, parsed := ParseReply(text, doc.Title)
	span.SetAttributes(telemetry.Bool("classifier.parsed", parsed))
	if !parsed {
		c.logger.Warn("failed to parse classifier reply, using fallback record",
			zap.String("url", doc.URL),
			zap.String("reply", text))
	}

	return record, nil
}

// Ping checks that apiKey is accepted by the API.
func (c *Client) Ping(ctx context.Context, apiKey string) error {
	ctx, span := tracer.Start(ctx, "Ping")
	defer span.End()

	_, err := c.generate(ctx, apiKey, pingPrompt, nil)
	var se *statusError
	if stderrors.As(err, &se) {
		msg := se.message
		if msg == "" {
			msg = "Invalid API key"
		}
		return errors.API("Gemini API Error: "+msg, err)
	}
	if err != nil {
		return errors.API("Gemini API Error: "+errors.Message(err), err)
	}
	return nil
}

// transportMessage describes a failed round trip without the request URL,
// which carries the API key.
func transportMessage(err error) string {
	var ue *url.Error
	if stderrors.As(err, &ue) {
		return ue.Err.Error()
	}
	return err.Error()
}

func (c *Client) endpoint(apiKey string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(apiKey))
}

func (c *Client) generate(ctx context.Context, apiKey, prompt string, genCfg *generationConfig) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: genCfg,
	})
	if err != nil {
		return "", errors.Internal("marshaling request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(apiKey), bytes.NewReader(body))
	if err != nil {
		return "", errors.Internal("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("failed to execute request", zap.Error(err))
		return "", errors.API(transportMessage(err), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.API("reading response: "+transportMessage(err), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("unexpected status code", zap.Int("status_code", resp.StatusCode))

		se := &statusError{code: resp.StatusCode}
		var apiErr apiErrorResponse
		if json.Unmarshal(data, &apiErr) == nil {
			se.message = apiErr.Error.Message
		}
		return "", errors.API("unexpected status code", se)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", errors.InvalidResponse("Invalid response from Gemini API", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
		return "", errors.InvalidResponse("Invalid response from Gemini API", nil)
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
