// Package notify tells the operator that a run has finished.
package notify

import (
	"fmt"
	"time"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Run     *domain.Run // Optional, set for run summaries
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// FromSettings builds the notifier for the configured channels. With no
// channel enabled it returns a NoopNotifier.
func FromSettings(desktop bool, slackWebhook string) Notifier {
	var notifiers []Notifier
	if desktop {
		notifiers = append(notifiers, NewDesktopNotifier(true))
	}
	if slackWebhook != "" {
		notifiers = append(notifiers, NewSlackNotifier(slackWebhook))
	}
	switch len(notifiers) {
	case 0:
		return NoopNotifier{}
	case 1:
		return notifiers[0]
	}
	return NewMultiNotifier(notifiers...)
}

// RunNotification summarizes a finished run. Evaluate runs where nothing
// passed are reported as warnings.
func RunNotification(run *domain.Run) Notification {
	n := Notification{Run: run, Type: NotifySuccess}
	elapsed := run.Duration().Round(time.Second)

	if run.Mode == domain.ModeCleanup {
		n.Title = "branch-eval cleanup finished"
		n.Message = fmt.Sprintf("removed %d local branches in %s", run.Candidates, elapsed)
		n.Type = NotifyInfo
		return n
	}

	n.Title = fmt.Sprintf("branch-eval finished: %s", run.TestTarget)
	n.Message = fmt.Sprintf("%d candidates, %d compiled, %d passed in %s",
		run.Candidates, run.Compiled, run.Passed, elapsed)
	if run.Candidates > 0 && run.Passed == 0 {
		n.Type = NotifyWarning
	}
	return n
}
