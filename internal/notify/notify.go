// Package notify sends push notifications about pipeline events over ntfy.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"beacon/internal/config"
)

const userAgent = "Beacon/0.1.0"

// Service defines the notification surface exposed to the pipeline loops.
type Service interface {
	NotifyGenerated(ctx context.Context, title string) error
	NotifyPublished(ctx context.Context, title, postID string) error
	NotifyPublishFailed(ctx context.Context, title string, err error) error
	NotifyStoreDegraded(ctx context.Context, err error) error
	NotifyStoreRecovered(ctx context.Context, replayed int) error
	NotifyRepliesPosted(ctx context.Context, postID string, count int) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyGenerated(ctx context.Context, title string) error {
	data := payload{
		title:   "Beacon - Draft Ready",
		message: fmt.Sprintf("New draft generated: %s", strings.TrimSpace(title)),
		tags:    []string{"beacon", "generate", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublished(ctx context.Context, title, postID string) error {
	data := payload{
		title:    "Beacon - Published",
		message:  fmt.Sprintf("Published: %s (post %s)", strings.TrimSpace(title), postID),
		tags:     []string{"beacon", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishFailed(ctx context.Context, title string, err error) error {
	message := fmt.Sprintf("Publish failed: %s", strings.TrimSpace(title))
	if err != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Beacon - Publish Failed",
		message:  message,
		tags:     []string{"beacon", "publish", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStoreDegraded(ctx context.Context, err error) error {
	message := "Primary record store unreachable, running on local fallback"
	if err != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Beacon - Store Degraded",
		message:  message,
		tags:     []string{"beacon", "store", "degraded"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStoreRecovered(ctx context.Context, replayed int) error {
	data := payload{
		title:   "Beacon - Store Recovered",
		message: fmt.Sprintf("Primary record store recovered, %d records replayed", replayed),
		tags:    []string{"beacon", "store", "recovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRepliesPosted(ctx context.Context, postID string, count int) error {
	data := payload{
		title:   "Beacon - Replies Posted",
		message: fmt.Sprintf("Answered %d comments on post %s", count, postID),
		tags:    []string{"beacon", "monitor", "replied"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Beacon - Error",
		message:  builder.String(),
		tags:     []string{"beacon", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Beacon - Test",
		message:  "Notification system test",
		tags:     []string{"beacon", "test"},
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

type noopService struct{}

func (noopService) NotifyGenerated(context.Context, string) error             { return nil }
func (noopService) NotifyPublished(context.Context, string, string) error    { return nil }
func (noopService) NotifyPublishFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyStoreDegraded(context.Context, error) error         { return nil }
func (noopService) NotifyStoreRecovered(context.Context, int) error          { return nil }
func (noopService) NotifyRepliesPosted(context.Context, string, int) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
