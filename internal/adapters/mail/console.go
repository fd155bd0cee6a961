package mail

import (
	"context"
	"strings"

	"badgehub/internal/platform/logger"
)

// consoleSender logs rendered messages instead of delivering them
type consoleSender struct {
	subjPrefix string
	log        logger.Logger
}

var _ Sender = (*consoleSender)(nil)

func newConsoleSender(cfg Config) *consoleSender {
	return &consoleSender{
		subjPrefix: cfg.SubjectPrefix,
		log:        *logger.Named("mail.console"),
	}
}

func (s *consoleSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := msg.Text
	if body == "" {
		body = msg.HTML
	}
	s.log.Info().
		Str("to", strings.Join(msg.To, ", ")).
		Str("subject", s.subjPrefix+msg.Subject).
		Msg("console mail:\n" + body)
	return nil
}
