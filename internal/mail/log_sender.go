package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender drops messages after logging their envelope. Bodies carry codes
// and are never logged.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, to string, subject string, _ string) error {
	s.log.Info().Str("to", to).Str("subject", subject).Msg("mail discarded by log driver")
	return nil
}
