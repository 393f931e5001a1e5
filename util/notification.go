package util

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Notification constructs the title and message for the desktop notification
type Notification struct {
	Title   string
	Message string
	// Immediate notifications are sent with critical urgency
	Immediate bool
	// Delay is how long the notification stays on screen
	Delay time.Duration
}

// SendDesktopNotification will notify the user through the freedesktop notification daemon
func SendDesktopNotification(appName string, n Notification) error {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return errors.Wrap(err, "notify-send is not available")
	}
	title := n.Title
	if title == "" {
		title = appName
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	expire := n.Delay
	if expire <= 0 {
		expire = time.Millisecond * 2500
	}
	args := []string{"--app-name", appName, "--expire-time", strconv.FormatInt(expire.Milliseconds(), 10)}
	if n.Immediate {
		args = append(args, "--urgency", "critical")
	}
	args = append(args, title, n.Message)

	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "notify-send: %s", out)
	}
	return nil
}
