package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mkvtag/internal/config"
)

const userAgent = "mkvtag/0.1.0"

// Service defines the notification surface exposed to the supervisor.
type Service interface {
	NotifyFileTagged(ctx context.Context, filename string) error
	NotifyGiveUp(ctx context.Context, filename string, failures int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		completions: cfg.Notifications.Completions,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	completions bool
	errors      bool
}

func (n *ntfyService) NotifyFileTagged(ctx context.Context, filename string) error {
	if !n.completions {
		return nil
	}
	data := payload{
		title:   "mkvtag - Tagged",
		message: fmt.Sprintf("Tagged: %s", strings.TrimSpace(filename)),
		tags:    []string{"mkvtag", "tagged"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyGiveUp(ctx context.Context, filename string, failures int) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:    "mkvtag - Giving Up",
		message:  fmt.Sprintf("Gave up on %s after %d failed attempts", strings.TrimSpace(filename), failures),
		tags:     []string{"mkvtag", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "mkvtag - Error",
		message:  builder.String(),
		tags:     []string{"mkvtag", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "mkvtag - Test",
		message:  "Notification system test",
		tags:     []string{"mkvtag", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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

// NewNop returns a service that drops every notification.
func NewNop() Service { return noopService{} }

type noopService struct{}

func (noopService) NotifyFileTagged(context.Context, string) error   { return nil }
func (noopService) NotifyGiveUp(context.Context, string, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
