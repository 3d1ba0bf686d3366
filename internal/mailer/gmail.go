package mailer

import (
	gomail "gopkg.in/gomail.v2"

	"github.com/jordan-wright/email"

	"github.com/reportmill/internal/config"
)

const (
	gmailSMTPHost = "smtp.gmail.com"
	gmailSMTPPort = 587
)

// gmailTransport delivers through Gmail's SMTP relay using an app password.
type gmailTransport struct {
	dialer *gomail.Dialer
}

func newGmailTransport(cfg config.EmailConfig) *gmailTransport {
	return &gmailTransport{
		dialer: gomail.NewDialer(gmailSMTPHost, gmailSMTPPort, cfg.Gmail.Username, cfg.Gmail.AppPassword),
	}
}

func (t *gmailTransport) Name() string { return "gmail" }

func (t *gmailTransport) Send(msg *email.Email) (string, error) {
	return "", t.dialer.DialAndSend(toGomail(msg))
}
