package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orgsync/internal/config"
	"orgsync/internal/queue"
)

const userAgent = "orgsync/0.1.0"

// Service defines the notification surface exposed to the worker and daemon.
type Service interface {
	NotifyConflictDetected(ctx context.Context, kind queue.EntityKind, code string, fields []string) error
	NotifyItemFailed(ctx context.Context, kind queue.EntityKind, code, reason string) error
	NotifyBatchCompleted(ctx context.Context, processed, failed, conflicts int, duration time.Duration) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyDaemonStopped(ctx context.Context) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
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

func (n *ntfyService) NotifyConflictDetected(ctx context.Context, kind queue.EntityKind, code string, fields []string) error {
	fieldList := "unspecified fields"
	if len(fields) > 0 {
		fieldList = strings.Join(fields, ", ")
	}
	data := payload{
		title:    "Orgsync - Conflict",
		message:  fmt.Sprintf("Conflict on %s %s: %s\nManual resolution required", kind, code, fieldList),
		tags:     []string{"orgsync", "conflict", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, kind queue.EntityKind, code, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Orgsync - Sync Failed",
		message:  fmt.Sprintf("Gave up on %s %s: %s", kind, code, reason),
		tags:     []string{"orgsync", "failed", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, processed, failed, conflicts int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 && conflicts == 0 {
		title = "Orgsync - Batch Complete"
		message = fmt.Sprintf("Batch complete: %d items synced in %s", processed, durationText)
	} else {
		title = "Orgsync - Batch Complete (attention needed)"
		message = fmt.Sprintf("Batch complete: %d synced, %d failed, %d conflicts in %s",
			processed, failed, conflicts, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"orgsync", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context) error {
	data := payload{
		title:   "Orgsync - Started",
		message: "Sync daemon started",
		tags:    []string{"orgsync", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	data := payload{
		title:   "Orgsync - Stopped",
		message: "Sync daemon stopped",
		tags:    []string{"orgsync", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Orgsync - Test",
		message:  "Notification system test",
		tags:     []string{"orgsync", "test"},
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

func (noopService) NotifyConflictDetected(context.Context, queue.EntityKind, string, []string) error {
	return nil
}
func (noopService) NotifyItemFailed(context.Context, queue.EntityKind, string, string) error {
	return nil
}
func (noopService) NotifyBatchCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyDaemonStarted(context.Context) error { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error { return nil }
func (noopService) TestNotification(context.Context) error    { return nil }
