package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/errors"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/page")

const maxPageBytes = 10 << 20

// Fetcher downloads a page's HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (finalURL string, body []byte, err error)
}

// HTTPFetcher fetches pages with browser-like headers, following redirects.
type HTTPFetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewHTTPFetcher(timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		logger: logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, []byte, error) {
	ctx, span := tracer.Start(ctx, "HTTPFetcher.Fetch")
	defer span.End()
	span.SetAttributes(telemetry.String("http.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, errors.InvalidInput(fmt.Sprintf("invalid page url %q", url), err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		f.logger.Error("failed to fetch page", zap.String("url", url), zap.Error(err))
		return "", nil, errors.Extraction("could not load page", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Error("unexpected status code",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode))
		return "", nil, errors.Extraction(fmt.Sprintf("could not load page: status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", nil, errors.Extraction("could not read page", err)
	}

	return resp.Request.URL.String(), body, nil
}
