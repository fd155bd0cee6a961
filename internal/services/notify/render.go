package notify

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"strings"
	texttmpl "text/template"

	"badgehub/internal/adapters/mail"
	perr "badgehub/internal/platform/errors"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	textTemplates = texttmpl.Must(texttmpl.ParseFS(templatesFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltmpl.Must(htmltmpl.ParseFS(templatesFS, "templates/*.html.tmpl"))
)

var subjects = map[string]string{
	KindWelcome:        "Welcome to BadgeHub",
	KindBadgeAwarded:   "You earned a badge",
	KindBadgeExpiring:  "One of your badges is about to expire",
	KindImportFinished: "Your badge import finished",
	KindNetworkInvite:  "An issuer network invited you",
}

// Render builds the outgoing mail for one envelope
func Render(env Envelope) (mail.Message, error) {
	subject, ok := subjects[env.Kind]
	if !ok {
		return mail.Message{}, perr.InvalidArgf("unknown notification kind %s", env.Kind)
	}

	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, env.Kind+".txt.tmpl", env); err != nil {
		return mail.Message{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "render %s text", env.Kind)
	}

	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, env.Kind+".html.tmpl", env); err != nil {
		return mail.Message{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "render %s html", env.Kind)
	}

	return mail.Message{
		To:      []string{env.Recipient},
		Subject: subject,
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}
