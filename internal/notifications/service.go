package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"epublift/internal/transport"
)

// Event identifies a terminal workflow outcome worth pushing.
type Event string

const (
	EventConversionCompleted Event = "conversion_completed"
	EventConversionFailed    Event = "conversion_failed"
)

// Service publishes terminal workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, message string) error
}

// NewService builds an ntfy-backed notifier when a topic is configured,
// otherwise a noop implementation.
func NewService(topic string, timeout time.Duration) Service {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return noopService{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, message string) error {
	var title, tags, priority string
	switch event {
	case EventConversionCompleted:
		title = "epublift - Conversion Complete"
		tags = "epublift,convert,completed"
	case EventConversionFailed:
		title = "epublift - Conversion Failed"
		tags = "epublift,convert,error"
		priority = "high"
	default:
		return fmt.Errorf("unknown notification event %q", event)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", transport.UserAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)
	if priority != "" {
		req.Header.Set("Priority", priority)
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

func (noopService) Publish(context.Context, Event, string) error { return nil }
