package mailer

import (
	gomail "gopkg.in/gomail.v2"

	"github.com/jordan-wright/email"

	"github.com/reportmill/internal/config"
)

// smtpTransport delivers through a plain SMTP server via gomail.
type smtpTransport struct {
	dialer *gomail.Dialer
}

func newSMTPTransport(cfg config.EmailConfig) *smtpTransport {
	return &smtpTransport{
		dialer: gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
	}
}

func (t *smtpTransport) Name() string { return "smtp" }

func (t *smtpTransport) Send(msg *email.Email) (string, error) {
	// SMTP has no provider message id to return.
	return "", t.dialer.DialAndSend(toGomail(msg))
}

func toGomail(msg *email.Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case len(msg.Text) > 0 && len(msg.HTML) > 0:
		m.SetBody("text/plain", string(msg.Text))
		m.AddAlternative("text/html", string(msg.HTML))
	case len(msg.HTML) > 0:
		m.SetBody("text/html", string(msg.HTML))
	default:
		m.SetBody("text/plain", string(msg.Text))
	}
	return m
}
