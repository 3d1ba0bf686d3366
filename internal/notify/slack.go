package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/reportmill/internal/models"
)

// SlackNotifier posts a message to a Slack channel when a scheduled report
// run fails. Construction with an empty token yields nil; the scheduler
// treats a nil notifier as "no notification channel".
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) NotifyRunFailure(reportName string, run *models.ReportRunResult) error {
	attachment := slack.Attachment{
		Color: "#ff0000",
		Title: fmt.Sprintf("Scheduled report failed: %s", reportName),
		Text:  run.Delivery.Error,
		Fields: []slack.AttachmentField{
			{
				Title: "Recipients",
				Value: strings.Join(run.Delivery.Recipients, ", "),
				Short: true,
			},
			{
				Title: "Run Time",
				Value: run.Timestamp.Format(time.RFC3339),
				Short: true,
			},
		},
		Footer: "ReportMill Scheduler",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionAttachments(attachment),
	)
	return err
}
