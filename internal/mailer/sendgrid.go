package mailer

import (
	"fmt"
	netmail "net/mail"

	"github.com/jordan-wright/email"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/reportmill/internal/config"
)

// sendgridTransport delivers through the SendGrid v3 API.
type sendgridTransport struct {
	client *sendgrid.Client
}

func newSendGridTransport(cfg config.EmailConfig) *sendgridTransport {
	return &sendgridTransport{
		client: sendgrid.NewSendClient(cfg.SendGrid.APIKey),
	}
}

func (t *sendgridTransport) Name() string { return "sendgrid" }

func (t *sendgridTransport) Send(msg *email.Email) (string, error) {
	m := mail.NewV3Mail()
	m.SetFrom(parseAddress(msg.From))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(mail.NewEmail("", cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(mail.NewEmail("", bcc))
	}
	m.AddPersonalizations(p)

	if len(msg.Text) > 0 {
		m.AddContent(mail.NewContent("text/plain", string(msg.Text)))
	}
	if len(msg.HTML) > 0 {
		m.AddContent(mail.NewContent("text/html", string(msg.HTML)))
	}

	response, err := t.client.Send(m)
	if err != nil {
		return "", fmt.Errorf("failed to send via SendGrid: %v", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// parseAddress splits an optional "Name <addr>" header into a mail.Email.
func parseAddress(from string) *mail.Email {
	if addr, err := netmail.ParseAddress(from); err == nil {
		return mail.NewEmail(addr.Name, addr.Address)
	}
	return mail.NewEmail("", from)
}
