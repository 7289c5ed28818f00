package page

import (
	"context"
	"sync"
	"time"

	"jobsnap/services/capture/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry holds open pages by tab ID.
type Registry struct {
	mu      sync.RWMutex
	pages   map[string]*Page
	fetcher Fetcher
	logger  *zap.Logger
	now     func() time.Time
}

func NewRegistry(fetcher Fetcher, logger *zap.Logger) *Registry {
	return &Registry{
		pages:   make(map[string]*Page),
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Open registers a page. When rawHTML is empty the page is downloaded from url.
func (r *Registry) Open(ctx context.Context, url string, rawHTML string) (*Page, error) {
	if url == "" {
		return nil, errors.InvalidInput("page url is required", nil)
	}

	p := &Page{
		ID:  uuid.NewString(),
		URL: url,
	}

	if rawHTML != "" {
		p.HTML = []byte(rawHTML)
	} else {
		finalURL, body, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		p.URL = finalURL
		p.HTML = body
	}
	p.LoadedAt = r.now()

	r.mu.Lock()
	r.pages[p.ID] = p
	r.mu.Unlock()

	r.logger.Debug("opened page",
		zap.String("tab_id", p.ID),
		zap.String("url", p.URL),
		zap.Int("bytes", len(p.HTML)))

	return p, nil
}

func (r *Registry) Get(tabID string) (*Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pages[tabID]
	if !ok {
		return nil, errors.NotFound("no such tab: "+tabID, nil)
	}
	return p, nil
}

// Close forgets a page and reports whether it was open.
func (r *Registry) Close(tabID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pages[tabID]; !ok {
		return false
	}
	delete(r.pages, tabID)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}
