package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Deliverer is the final hop, normally an SMTPSender.
type Deliverer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// Processor turns stream entries into deliveries. Malformed entries are
// logged and acknowledged so they do not block the group.
type Processor struct {
	deliverer Deliverer
	logger    zerolog.Logger
}

func NewProcessor(deliverer Deliverer, logger zerolog.Logger) *Processor {
	return &Processor{
		deliverer: deliverer,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	m, err := messageFromValues(msg.Values)
	if err != nil {
		if errors.Is(err, errMalformed) {
			p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed mail")
			return nil
		}
		return err
	}

	if err := p.deliverer.Send(ctx, m.To, m.Subject, m.Body); err != nil {
		return fmt.Errorf("deliver %s: %w", msg.ID, err)
	}

	p.logger.Info().
		Str("message_id", msg.ID).
		Str("to", m.To).
		Msg("mail delivered")
	return nil
}
