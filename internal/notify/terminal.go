package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"peakline/internal/models"
)

// TerminalNotifier prints notifications as single lines, optionally ringing
// the terminal bell for signal changes.
type TerminalNotifier struct {
	mu           sync.Mutex
	w            io.Writer
	bellEnabled  bool
	colorEnabled bool
}

// NewTerminalNotifier creates a TerminalNotifier writing to w.
func NewTerminalNotifier(w io.Writer, bell, colorEnabled bool) *TerminalNotifier {
	return &TerminalNotifier{w: w, bellEnabled: bell, colorEnabled: colorEnabled}
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	return tn.w != nil
}

// Send writes the notification.
func (tn *TerminalNotifier) Send(ctx context.Context, n Notification) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if tn.bellEnabled && n.Type == NotificationSignal {
		if _, err := io.WriteString(tn.w, "\a"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(tn.w, FormatNotification(n, tn.colorEnabled))
	return err
}

// FormatNotification formats a notification for terminal display.
func FormatNotification(n Notification, colorEnabled bool) string {
	var c *color.Color
	var indicator string
	switch n.Type {
	case NotificationSignal:
		indicator = "SIGNAL"
		c = actionColor(n.Data["action"])
	case NotificationError:
		indicator = "ERROR"
		c = color.New(color.FgRed)
	default:
		indicator = "INFO"
		c = color.New(color.FgCyan)
	}
	if colorEnabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	var sb strings.Builder
	sb.WriteString(c.Sprintf("[%s] %s", n.Timestamp.Format("15:04:05"), indicator))
	if n.Title != "" {
		sb.WriteString(" | " + n.Title)
	}
	if n.Message != "" {
		sb.WriteString(" | " + n.Message)
	}
	return sb.String()
}

func actionColor(action interface{}) *color.Color {
	switch action {
	case models.ActionBuy:
		return color.New(color.FgGreen, color.Bold)
	case models.ActionSell:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}
