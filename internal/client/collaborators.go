package client

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Doer issues HTTP requests. *http.Client satisfies it; tests substitute
// a recording fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PasswordPrompter presents a masked password prompt to the user.
// ok is false when the user cancelled the prompt.
type PasswordPrompter interface {
	Prompt(ctx context.Context) (password string, ok bool, err error)
}

// Notifier surfaces user-facing notices. The concrete UI (alerts, toasts,
// loaders) lives outside this module; the default implementation logs.
type Notifier interface {
	// Alert shows a blocking error-style notice.
	Alert(message string)

	// Toast shows a transient notice.
	Toast(message string)

	// StartLoader shows a progress indicator and returns the function
	// that dismisses it.
	StartLoader(display string) (stop func())
}

// OnlineFunc reports current connectivity. The default assumes online;
// embedders plug in their platform's network status probe.
type OnlineFunc func() bool

// logNotifier is the default Notifier, routing notices to the log.
type logNotifier struct{}

func (logNotifier) Alert(message string) {
	logrus.WithField("notice", "alert").Warn(message)
}

func (logNotifier) Toast(message string) {
	logrus.WithField("notice", "toast").Info(message)
}

func (logNotifier) StartLoader(display string) func() {
	if display != "" {
		logrus.WithField("notice", "loader").Debug(display)
	}
	return func() {}
}

// noPrompter is the default PasswordPrompter: it cancels every prompt, so
// gated operations fail softly until an embedder wires a real prompt UI.
type noPrompter struct{}

func (noPrompter) Prompt(context.Context) (string, bool, error) {
	logrus.Warn("Password required but no prompter is configured")
	return "", false, nil
}
