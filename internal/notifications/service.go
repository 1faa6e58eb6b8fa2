package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vigil/internal/config"
)

const userAgent = "vigil/" + config.Version

// maxValueChars bounds how much of a task value lands in a notification.
const maxValueChars = 200

// Notifier defines the notification surface exposed to the daemon.
type Notifier interface {
	DaemonStarted(ctx context.Context, taskCount int) error
	DaemonStopped(ctx context.Context) error
	ChangeDetected(ctx context.Context, taskID, value string) error
	TaskFailing(ctx context.Context, taskID string, failure error) error
	TestNotification(ctx context.Context) error
}

// NewNotifier builds a notifier backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewNotifier(cfg *config.Config) Notifier {
	if cfg == nil {
		return noopNotifier{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopNotifier{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	burst := cfg.Notifications.FailureBurst
	if burst <= 0 {
		burst = 3
	}
	perHour := cfg.Notifications.FailurePerHour
	if perHour <= 0 {
		perHour = 12
	}

	return &ntfyNotifier{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onChange:  cfg.Notifications.OnChange,
		onFailure: cfg.Notifications.OnFailure,
		failures:  rate.NewLimiter(rate.Limit(float64(perHour)/3600), burst),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyNotifier struct {
	endpoint  string
	client    *http.Client
	onChange  bool
	onFailure bool
	failures  *rate.Limiter
}

func (n *ntfyNotifier) DaemonStarted(ctx context.Context, taskCount int) error {
	data := payload{
		title:   "Vigil - Started",
		message: fmt.Sprintf("Watching %d tasks", taskCount),
		tags:    []string{"vigil", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) DaemonStopped(ctx context.Context) error {
	data := payload{
		title:   "Vigil - Stopped",
		message: "Daemon shut down",
		tags:    []string{"vigil", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) ChangeDetected(ctx context.Context, taskID, value string) error {
	if !n.onChange {
		return nil
	}
	data := payload{
		title:    "Vigil - Change Detected",
		message:  fmt.Sprintf("%s\nNew value: %s", taskID, truncate(value, maxValueChars)),
		tags:     []string{"vigil", "change"},
		priority: "high",
	}
	return n.send(ctx, data)
}

// TaskFailing reports a failed run. Sends are rate limited; a throttled
// notification is silently dropped because the failure is already in the
// log and the history journal.
func (n *ntfyNotifier) TaskFailing(ctx context.Context, taskID string, failure error) error {
	if !n.onFailure {
		return nil
	}
	if !n.failures.Allow() {
		return nil
	}

	message := taskID
	if failure != nil {
		message = fmt.Sprintf("%s\n%s", taskID, strings.TrimSpace(failure.Error()))
	}
	data := payload{
		title:    "Vigil - Task Failing",
		message:  message,
		tags:     []string{"vigil", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vigil - Test",
		message:  "Notification system test",
		tags:     []string{"vigil", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

type noopNotifier struct{}

func (noopNotifier) DaemonStarted(context.Context, int) error             { return nil }
func (noopNotifier) DaemonStopped(context.Context) error                  { return nil }
func (noopNotifier) ChangeDetected(context.Context, string, string) error { return nil }
func (noopNotifier) TaskFailing(context.Context, string, error) error     { return nil }
func (noopNotifier) TestNotification(context.Context) error               { return nil }
