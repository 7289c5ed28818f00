package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/messaging"
	"jobsnap/services/capture/internal/models"
	"jobsnap/services/capture/internal/page"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Host runs one extractor agent per open tab. An agent answers
// extractPageContent requests for its tab's page.
type Host struct {
	bus       *messaging.Bus
	registry  *page.Registry
	extractor *Extractor
	logger    *zap.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewHost(bus *messaging.Bus, registry *page.Registry, extractor *Extractor, logger *zap.Logger) *Host {
	return &Host{
		bus:       bus,
		registry:  registry,
		extractor: extractor,
		logger:    logger,
		subs:      make(map[string]*nats.Subscription),
	}
}

// Inject loads the agent into tabID. Injecting into a tab that already has
// an agent is a no-op.
func (h *Host) Inject(ctx context.Context, tabID string) error {
	if _, err := h.registry.Get(tabID); err != nil {
		return errors.Extraction("cannot load extractor into tab", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[tabID]; ok {
		return nil
	}

	sub, err := h.bus.Subscribe(messaging.ExtractSubject(tabID), h.handle(tabID))
	if err != nil {
		return errors.Extraction("cannot load extractor into tab", err)
	}
	if err := h.bus.Flush(ctx); err != nil {
		_ = sub.Unsubscribe()
		return errors.Extraction("cannot load extractor into tab", err)
	}
	h.subs[tabID] = sub

	h.logger.Debug("extractor injected", zap.String("tab_id", tabID))
	return nil
}

// Loaded reports whether tabID has an agent.
func (h *Host) Loaded(tabID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subs[tabID]
	return ok
}

// Unload removes the agent from tabID, if any.
func (h *Host) Unload(tabID string) error {
	h.mu.Lock()
	sub, ok := h.subs[tabID]
	delete(h.subs, tabID)
	h.mu.Unlock()

	if !ok {
		return nil
	}
	return sub.Unsubscribe()
}

func (h *Host) Close() error {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*nats.Subscription)
	h.mu.Unlock()

	for tabID, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn("failed to unload extractor", zap.String("tab_id", tabID), zap.Error(err))
		}
	}
	return nil
}

func (h *Host) handle(tabID string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		doc, err := h.extract(tabID, msg.Data)
		if err != nil {
			h.logger.Warn("extraction failed", zap.String("tab_id", tabID), zap.Error(err))
			h.reply(msg, map[string]string{"error": errors.Message(err)})
			return
		}
		h.reply(msg, doc)
	}
}

func (h *Host) extract(tabID string, data []byte) (*models.PageDocument, error) {
	var req models.ExtractRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.InvalidInput("malformed extraction request", err)
	}
	if req.Action != models.ActionExtractPageContent {
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported action %q", req.Action), nil)
	}

	p, err := h.registry.Get(tabID)
	if err != nil {
		return nil, err
	}
	return h.extractor.Extract(p.URL, p.HTML)
}

func (h *Host) reply(msg *nats.Msg, v any) {
	if err := h.bus.Reply(msg, v); err != nil {
		h.logger.Warn("failed to reply to extraction request", zap.Error(err))
	}
}

// Client requests page content from a tab's agent.
type Client struct {
	bus *messaging.Bus
}

func NewClient(bus *messaging.Bus) *Client {
	return &Client{bus: bus}
}

// RequestExtraction returns messaging.ErrNoResponder (wrapped) when the tab
// has no agent loaded.
func (c *Client) RequestExtraction(ctx context.Context, tabID string) (*models.PageDocument, error) {
	var reply models.ExtractReply
	req := models.ExtractRequest{Action: models.ActionExtractPageContent}
	if err := c.bus.Request(ctx, messaging.ExtractSubject(tabID), req, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, errors.Extraction(reply.Error, nil)
	}

	doc := reply.PageDocument
	return &doc, nil
}
