package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

const slackFooter = "branch-eval"

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// webhookPayload is the body of an incoming-webhook request
type webhookPayload struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Color    string  `json:"color"`
	Fallback string  `json:"fallback"`
	Text     string  `json:"text,omitempty"`
	Fields   []field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
	Ts       int64   `json:"ts,omitempty"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a Slack notifier. An empty URL disables it.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts the notification. Notifications about a run carry its counts
// as attachment fields.
func (s *SlackNotifier) Send(n Notification) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildPayload(n))
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

func buildPayload(n Notification) webhookPayload {
	att := attachment{
		Color:    typeColor(n.Type),
		Fallback: n.Title + ": " + n.Message,
		Text:     n.Message,
		Footer:   slackFooter,
	}

	if run := n.Run; run != nil {
		att.Color = runColor(run)
		att.Footer = slackFooter + " run " + run.ID
		if !run.FinishedAt.IsZero() {
			att.Ts = run.FinishedAt.Unix()
		}
		att.Fields = runFields(run)
	}

	return webhookPayload{Text: n.Title, Attachments: []attachment{att}}
}

func runFields(run *domain.Run) []field {
	elapsed := field{Title: "Duration", Value: run.Duration().Round(time.Second).String(), Short: true}
	if run.Mode == domain.ModeCleanup {
		return []field{
			{Title: "Branches deleted", Value: strconv.Itoa(run.Candidates), Short: true},
			elapsed,
		}
	}
	return []field{
		{Title: "Test", Value: run.TestTarget, Short: true},
		{Title: "Artifacts", Value: run.ArtifactSubdir, Short: true},
		{Title: "Candidates", Value: strconv.Itoa(run.Candidates), Short: true},
		{Title: "Compiled", Value: strconv.Itoa(run.Compiled), Short: true},
		{Title: "Passed", Value: strconv.Itoa(run.Passed), Short: true},
		elapsed,
	}
}

// runColor is green when every candidate passed, red when none did and
// amber in between
func runColor(run *domain.Run) string {
	switch {
	case run.Mode == domain.ModeCleanup || run.Candidates == 0:
		return typeColor(NotifyInfo)
	case run.Passed == run.Candidates:
		return typeColor(NotifySuccess)
	case run.Passed == 0:
		return typeColor(NotifyError)
	default:
		return typeColor(NotifyWarning)
	}
}

func typeColor(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "good"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "danger"
	default:
		return "#439FE0"
	}
}
