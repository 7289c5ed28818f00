package events

import (
	"context"
	"encoding/json"

	"jobsnap/common/telemetry"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/messaging"
	"jobsnap/services/capture/internal/models"
	"jobsnap/services/capture/internal/pipeline"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobsnap/capture/events")

// Processor runs the pipeline on an already extracted page.
type Processor interface {
	Process(ctx context.Context, doc *models.PageDocument) *pipeline.Result
}

// Handler serves processJob requests arriving on the bus.
type Handler struct {
	logger    *zap.Logger
	bus       *messaging.Bus
	processor Processor
	sub       *nats.Subscription
}

func NewHandler(logger *zap.Logger, bus *messaging.Bus, processor Processor) *Handler {
	return &Handler{
		logger:    logger,
		bus:       bus,
		processor: processor,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return h.Subscribe(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return h.Unsubscribe()
		},
	})
	return nil
}

// Subscribe joins the processJob queue group and waits until the
// subscription is live.
func (h *Handler) Subscribe(ctx context.Context) error {
	sub, err := h.bus.QueueSubscribe(messaging.ProcessJobSubject, messaging.ProcessJobQueue, h.handleProcessJob)
	if err != nil {
		return err
	}
	h.sub = sub

	if err := h.bus.Flush(ctx); err != nil {
		return err
	}

	h.logger.Info("registered NATS subscriptions",
		zap.String("subject", messaging.ProcessJobSubject),
		zap.String("queue", messaging.ProcessJobQueue))
	return nil
}

func (h *Handler) Unsubscribe() error {
	if h.sub == nil {
		return nil
	}
	return h.sub.Unsubscribe()
}

func (h *Handler) handleProcessJob(msg *nats.Msg) {
	ctx, span := tracer.Start(context.Background(), "handleProcessJob")
	defer span.End()

	reply := h.process(ctx, msg.Data)
	if !reply.Success {
		h.logger.Error("failed to process job",
			zap.String("subject", msg.Subject),
			zap.String("error", reply.Error))
	}

	if err := h.bus.Reply(msg, reply); err != nil {
		h.logger.Warn("failed to reply to processJob", zap.Error(err))
	}
}

func (h *Handler) process(ctx context.Context, data []byte) models.CaptureReply {
	var req models.ProcessJobRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return failure(errors.InvalidInput("malformed processJob request", err))
	}
	if req.Action != models.ActionProcessJob {
		return failure(errors.InvalidInput("unsupported action: "+req.Action, nil))
	}

	return h.processor.Process(ctx, req.PageData).Reply()
}

func failure(err error) models.CaptureReply {
	return models.CaptureReply{Success: false, Error: errors.Message(err)}
}
