package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dashcam/internal/config"
)

const userAgent = "Dashcam-Go/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyArmed(ctx context.Context, baseFilename string, streams int) error
	NotifyDisarmed(ctx context.Context, baseFilename string) error
	NotifyRecordingFailed(ctx context.Context, stream, reason string) error
	NotifyAdmissionDenied(ctx context.Context, stream string, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
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
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		notifyArm:    cfg.Notifications.Arm,
		notifyDisarm: cfg.Notifications.Disarm,
		notifyErrors: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	notifyArm    bool
	notifyDisarm bool
	notifyErrors bool
}

func (n *ntfyService) NotifyArmed(ctx context.Context, baseFilename string, streams int) error {
	if !n.notifyArm {
		return nil
	}
	data := payload{
		title:   "Dashcam - Recording Started",
		message: fmt.Sprintf("Vehicle armed, recording %d stream(s) as %s", streams, baseFilename),
		tags:    []string{"dashcam", "armed", "recording"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDisarmed(ctx context.Context, baseFilename string) error {
	if !n.notifyDisarm {
		return nil
	}
	data := payload{
		title:   "Dashcam - Recording Stopped",
		message: fmt.Sprintf("Vehicle disarmed, session %s saved", baseFilename),
		tags:    []string{"dashcam", "disarmed", "saved"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingFailed(ctx context.Context, stream, reason string) error {
	if !n.notifyErrors {
		return nil
	}
	data := payload{
		title:    "Dashcam - Recording Failed",
		message:  fmt.Sprintf("Stream %s stopped recording: %s", stream, reason),
		tags:     []string{"dashcam", "recording", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAdmissionDenied(ctx context.Context, stream string, reason string) error {
	if !n.notifyErrors {
		return nil
	}
	data := payload{
		title:    "Dashcam - Out of Disk Space",
		message:  fmt.Sprintf("Not recording %s: %s", stream, reason),
		tags:     []string{"dashcam", "diskspace", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErrors {
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
		title:    "Dashcam - Error",
		message:  builder.String(),
		tags:     []string{"dashcam", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Dashcam - Test",
		message:  "Notification system test",
		tags:     []string{"dashcam", "test"},
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

func (noopService) NotifyArmed(context.Context, string, int) error              { return nil }
func (noopService) NotifyDisarmed(context.Context, string) error                { return nil }
func (noopService) NotifyRecordingFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyAdmissionDenied(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
