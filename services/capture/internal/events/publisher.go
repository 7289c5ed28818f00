package events

import (
	"context"

	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/messaging"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap"
)

// Publisher announces finished captures on jobs.captured. Nobody has to be
// listening.
type Publisher struct {
	bus    *messaging.Bus
	logger *zap.Logger
}

func NewPublisher(bus *messaging.Bus, logger *zap.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

func (p *Publisher) Captured(ctx context.Context, reply models.CaptureReply) error {
	if err := p.bus.Publish(ctx, messaging.CapturedSubject, reply); err != nil {
		return errors.Unavailable("publishing capture outcome", err)
	}

	p.logger.Debug("published capture outcome",
		zap.String("capture_id", reply.CaptureID),
		zap.Bool("success", reply.Success))
	return nil
}
