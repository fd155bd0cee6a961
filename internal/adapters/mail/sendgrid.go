package mail

import (
	"context"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type sendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	log        logger.Logger
}

var _ Sender = (*sendgridSender)(nil)

func newSendgridSender(cfg Config) *sendgridSender {
	return &sendgridSender{
		key:        cfg.SendgridKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddr),
		subjPrefix: cfg.SubjectPrefix,
		log:        *logger.Named("mail.sendgrid"),
	}
}

// Send delivers one message through the sendgrid v3 API
func (s *sendgridSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return perr.InvalidArgf("mail: message needs recipients and a body")
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "mail: sendgrid send failed")
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.log.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("sendgrid rejected message")
		return perr.Unavailablef("mail: sendgrid status %d", res.StatusCode)
	}
	s.log.Debug().Int("status", res.StatusCode).Int("recipients", len(msg.To)).Msg("sendgrid accepted message")
	return nil
}

func (s *sendgridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	for _, to := range msg.To {
		if to != "" {
			p.AddTos(sgmail.NewEmail("", to))
		}
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}
