package mailer

import (
	"fmt"
	"time"

	"github.com/jordan-wright/email"

	"github.com/reportmill/internal/config"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

// Transport is one interchangeable email backend. It accepts a fully
// rendered payload and reports a provider message id when one exists.
type Transport interface {
	Name() string
	Send(msg *email.Email) (messageID string, err error)
}

// Mailer is the delivery gateway: it renders a report into an email payload
// and dispatches it through the configured transport. It never panics
// through to callers; every outcome is a DeliveryResult.
type Mailer struct {
	cfg       config.EmailConfig
	transport Transport
}

func New(cfg config.EmailConfig) *Mailer {
	m := &Mailer{cfg: cfg}
	switch cfg.Service {
	case "sendgrid":
		m.transport = newSendGridTransport(cfg)
	case "mailgun":
		m.transport = newMailgunTransport(cfg)
	case "gmail":
		m.transport = newGmailTransport(cfg)
	default:
		m.transport = newSMTPTransport(cfg)
	}
	return m
}

// IsConfigured checks that the minimum fields for the selected transport
// are present. It runs before any network attempt.
func (m *Mailer) IsConfigured() error {
	switch m.cfg.Service {
	case "smtp", "":
		if m.cfg.SMTP.Host == "" || m.cfg.SMTP.Port == 0 {
			return fmt.Errorf("smtp transport requires host and port")
		}
		if m.cfg.SMTP.Username == "" || m.cfg.SMTP.Password == "" {
			return fmt.Errorf("smtp transport requires credentials")
		}
		if m.cfg.From == "" {
			return fmt.Errorf("smtp transport requires a from address")
		}
	case "sendgrid":
		if m.cfg.SendGrid.APIKey == "" {
			return fmt.Errorf("sendgrid transport requires an API key")
		}
		if m.cfg.From == "" {
			return fmt.Errorf("sendgrid transport requires a from address")
		}
	case "mailgun":
		if m.cfg.Mailgun.Domain == "" || m.cfg.Mailgun.APIKey == "" {
			return fmt.Errorf("mailgun transport requires a domain and API key")
		}
		if m.cfg.From == "" {
			return fmt.Errorf("mailgun transport requires a from address")
		}
	case "gmail":
		if m.cfg.Gmail.Username == "" || m.cfg.Gmail.AppPassword == "" {
			return fmt.Errorf("gmail transport requires a username and app password")
		}
	default:
		return fmt.Errorf("unknown email service %q", m.cfg.Service)
	}
	return nil
}

// SendReport renders and delivers a report. Recipients in the result lists
// primary recipients only.
func (m *Mailer) SendReport(rep *models.ReportData, delivery models.DeliveryConfig) models.DeliveryResult {
	if err := m.IsConfigured(); err != nil {
		return m.failure(delivery.Recipients, err)
	}
	if len(delivery.Recipients) == 0 {
		return m.failure(nil, fmt.Errorf("no recipients configured"))
	}

	msg := m.compose(rep, delivery)
	messageID, err := m.transport.Send(msg)
	if err != nil {
		return m.failure(delivery.Recipients, fmt.Errorf("%s transport: %v", m.transport.Name(), err))
	}

	return models.DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		Recipients: delivery.Recipients,
		Timestamp:  time.Now(),
	}
}

// TestConnection delivers a trivial self-addressed message. There is no
// lightweight handshake; testing delivery means delivering once.
func (m *Mailer) TestConnection() models.DeliveryResult {
	self := m.from()
	rep := &models.ReportData{
		Title:       "Delivery test",
		Description: "Test message confirming the email transport is working.",
		GeneratedAt: time.Now(),
	}
	return m.SendReport(rep, models.DeliveryConfig{
		Recipients:  []string{self},
		IncludeText: true,
		Subject:     "ReportMill delivery test",
	})
}

func (m *Mailer) compose(rep *models.ReportData, delivery models.DeliveryConfig) *email.Email {
	subject := delivery.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s (%s)", rep.Title, rep.GeneratedAt.Format("2006-01-02"))
	}

	msg := &email.Email{
		From:    m.fromHeader(),
		To:      delivery.Recipients,
		Cc:      delivery.CC,
		Bcc:     delivery.BCC,
		Subject: subject,
	}

	if delivery.IncludeText || !delivery.IncludeHTML {
		text := report.ToText(rep)
		if delivery.Message != "" {
			text = delivery.Message + "\n\n" + text
		}
		msg.Text = []byte(text)
	}
	if delivery.IncludeHTML {
		msg.HTML = []byte(report.ToHTML(rep))
	}
	return msg
}

func (m *Mailer) failure(recipients []string, err error) models.DeliveryResult {
	if recipients == nil {
		recipients = []string{}
	}
	return models.DeliveryResult{
		Success:    false,
		Recipients: recipients,
		Error:      err.Error(),
		Timestamp:  time.Now(),
	}
}

func (m *Mailer) from() string {
	if m.cfg.Service == "gmail" && m.cfg.From == "" {
		return m.cfg.Gmail.Username
	}
	return m.cfg.From
}

func (m *Mailer) fromHeader() string {
	from := m.from()
	if m.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", m.cfg.FromName, from)
	}
	return from
}
