package messaging

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/config"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/messaging")

const (
	ProcessJobSubject = "jobs.process"
	ProcessJobQueue   = "capture-service"
	CapturedSubject   = "jobs.captured"
)

var (
	// ErrNoResponder means nothing is subscribed on the request subject.
	ErrNoResponder = stderrors.New("no responder for request")
	ErrTimeout     = stderrors.New("request timed out")
)

// ExtractSubject is where the extractor bound to tabID listens.
func ExtractSubject(tabID string) string {
	return "page." + tabID + ".extract"
}

// Bus is JSON request/reply and publish over a NATS connection.
type Bus struct {
	conn    *nats.Conn
	timeout time.Duration
	logger  *zap.Logger
}

func NewBus(conn *nats.Conn, cfg *config.Config, logger *zap.Logger) *Bus {
	return &Bus{
		conn:    conn,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}
}

// Request sends req on subject and decodes the reply into resp. Each request
// is bounded by the bus timeout even if ctx has no deadline.
func (b *Bus) Request(ctx context.Context, subject string, req, resp any) error {
	ctx, span := tracer.Start(ctx, "Bus.Request")
	defer span.End()
	span.SetAttributes(telemetry.String("nats.subject", subject))

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	msg, err := b.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		span.RecordError(err)
		switch {
		case stderrors.Is(err, nats.ErrNoResponders):
			return fmt.Errorf("%s: %w", subject, ErrNoResponder)
		case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, nats.ErrTimeout):
			return fmt.Errorf("%s after %s: %w", subject, b.timeout, ErrTimeout)
		default:
			return fmt.Errorf("request %s: %w", subject, err)
		}
	}

	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return fmt.Errorf("decode reply from %s: %w", subject, err)
	}
	return nil
}

// Reply answers msg with v. Messages without a reply subject have nobody
// listening and are ignored.
func (b *Bus) Reply(msg *nats.Msg, v any) error {
	if msg.Reply == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	return msg.Respond(data)
}

func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	_, span := tracer.Start(ctx, "Bus.Publish")
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := b.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (b *Bus) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

func (b *Bus) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := b.conn.QueueSubscribe(subject, queue, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Flush waits until the server has processed everything sent so far, so a
// new subscription is live before it is relied on.
func (b *Bus) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.conn.FlushWithContext(ctx)
}
