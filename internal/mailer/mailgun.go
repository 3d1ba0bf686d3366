package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/jordan-wright/email"
	"github.com/mailgun/mailgun-go/v4"

	"github.com/reportmill/internal/config"
)

const mailgunSendTimeout = 30 * time.Second

// mailgunTransport delivers through the Mailgun messages API.
type mailgunTransport struct {
	client *mailgun.MailgunImpl
}

func newMailgunTransport(cfg config.EmailConfig) *mailgunTransport {
	return &mailgunTransport{
		client: mailgun.NewMailgun(cfg.Mailgun.Domain, cfg.Mailgun.APIKey),
	}
}

func (t *mailgunTransport) Name() string { return "mailgun" }

func (t *mailgunTransport) Send(msg *email.Email) (string, error) {
	m := t.client.NewMessage(msg.From, msg.Subject, string(msg.Text), msg.To...)
	if len(msg.HTML) > 0 {
		m.SetHtml(string(msg.HTML))
	}
	for _, cc := range msg.Cc {
		m.AddCC(cc)
	}
	for _, bcc := range msg.Bcc {
		m.AddBCC(bcc)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mailgunSendTimeout)
	defer cancel()

	_, id, err := t.client.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("failed to send via Mailgun: %v", err)
	}
	return id, nil
}
