package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jobsnap/services/capture/internal/config"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		GeminiBaseURL:         srv.URL + "/v1beta",
		GeminiModel:           "gemini-2.0-flash",
		GeminiTemperature:     0.1,
		GeminiMaxOutputTokens: 1024,
		HTTPClientTimeout:     5 * time.Second,
	}
	return NewClient(cfg, zaptest.NewLogger(t)), srv
}

func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
			},
		})
	}
}

var doc = &models.PageDocument{
	URL:      "https://jobs.example.com/42",
	Title:    "Cashier - Acme Co",
	BodyText: "Acme Co is hiring a cashier.",
}

func TestClassifyRequestShape(t *testing.T) {
	var got generateRequest
	var path, key string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		replyWith(`{"company":"Acme Co"}`)(w, r)
	})

	if _, err := c.Classify(context.Background(), doc, "k-123"); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if path != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", path)
	}
	if key != "k-123" {
		t.Errorf("key = %q", key)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.Temperature != 0.1 || got.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("generationConfig = %+v", got.GenerationConfig)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 1 {
		t.Fatalf("contents = %+v", got.Contents)
	}
	prompt := got.Contents[0].Parts[0].Text
	for _, want := range []string{"Page Title: Cashier - Acme Co", "Page URL: https://jobs.example.com/42", "Meta Description: N/A", "Acme Co is hiring a cashier."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestClassifyParsesFencedJSON(t *testing.T) {
	reply := "```json\n{\"company\":\"Acme Co\",\"jobTitle\":\"Cashier\",\"positionType\":\"Part-time\",\"location\":\"Austin, TX\",\"salary\":null,\"schedule\":\"Weekends\",\"experienceLevel\":\"Entry Level\",\"description\":\"Handle register and greet customers at busy retail store\"}\n```"
	c, _ := newTestClient(t, replyWith(reply))

	rec, err := c.Classify(context.Background(), doc, "k")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if *rec.Company != "Acme Co" || *rec.Schedule != "Weekends" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Salary != nil {
		t.Errorf("salary = %q, want nil", *rec.Salary)
	}
}

func TestClassifyProseFallsBack(t *testing.T) {
	c, _ := newTestClient(t, replyWith("Sorry, I cannot help with that."))

	rec, err := c.Classify(context.Background(), doc, "k")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if *rec.Company != models.SentinelUnknown || *rec.JobTitle != doc.Title || *rec.Description != models.FallbackDescription {
		t.Errorf("record = %+v, want fallback", rec)
	}
}

func TestClassifyAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Classify(context.Background(), doc, "bad")
	if !errors.IsType(err, errors.ErrTypeAPI) {
		t.Fatalf("err = %v, want API error", err)
	}
	if got := errors.Message(err); got != "Gemini API error: API key not valid" {
		t.Errorf("message = %q", got)
	}
}

func TestClassifyAPIErrorWithoutBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Classify(context.Background(), doc, "k")
	if got := errors.Message(err); got != "Gemini API error: Service Unavailable" {
		t.Errorf("message = %q", got)
	}
}

func TestClassifyUnreachable(t *testing.T) {
	c, srv := newTestClient(t, replyWith("{}"))
	srv.Close()

	_, err := c.Classify(context.Background(), doc, "secret-key")
	if !errors.IsType(err, errors.ErrTypeAPI) {
		t.Fatalf("err = %v, want API error", err)
	}
	msg := errors.Message(err)
	if !strings.HasPrefix(msg, "Gemini API error: ") || len(msg) == len("Gemini API error: ") {
		t.Errorf("message = %q, want the transport cause", msg)
	}
	if strings.Contains(msg, "secret-key") {
		t.Errorf("message leaks the API key: %q", msg)
	}

	err = c.Ping(context.Background(), "secret-key")
	if msg := errors.Message(err); !strings.HasPrefix(msg, "Gemini API Error: ") || strings.Contains(msg, "secret-key") {
		t.Errorf("ping message = %q", msg)
	}
}

func TestClassifyMissingCandidates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Classify(context.Background(), doc, "k")
	if !errors.IsType(err, errors.ErrTypeInvalidResponse) {
		t.Fatalf("err = %v, want invalid response", err)
	}
}

func TestPing(t *testing.T) {
	var got generateRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		replyWith("OK")(w, r)
	})

	if err := c.Ping(context.Background(), "k"); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got.GenerationConfig != nil {
		t.Errorf("ping sent generationConfig %+v", got.GenerationConfig)
	}
	if got.Contents[0].Parts[0].Text != pingPrompt {
		t.Errorf("prompt = %q", got.Contents[0].Parts[0].Text)
	}
}

func TestPingRejectedKey(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`not json`))
	})

	err := c.Ping(context.Background(), "k")
	if got := errors.Message(err); got != "Gemini API Error: Invalid API key" {
		t.Errorf("message = %q", got)
	}
}
