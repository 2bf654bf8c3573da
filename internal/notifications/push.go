package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medfeed/internal/config"
	"medfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// PushMessage is one provider call: the same title/body to a set of device tokens.
type PushMessage struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tokens []string `json:"tokens"`
}

// PushSender delivers a message to a push provider and reports how many
// tokens the provider accepted.
type PushSender interface {
	Name() string
	Send(ctx context.Context, msg PushMessage) (int, error)
}

// LogSender writes pushes to the log. Used in development and tests.
type LogSender struct{}

func (LogSender) Name() string { return "log" }

func (LogSender) Send(ctx context.Context, msg PushMessage) (int, error) {
	observability.GlobalLogger.InfoContext(ctx, "push notification",
		slog.String("push_id", msg.ID),
		slog.String("title", msg.Title),
		slog.Int("tokens", len(msg.Tokens)),
	)
	return len(msg.Tokens), nil
}

// WebhookSender posts pushes as JSON to a relay that owns the provider credentials.
type WebhookSender struct {
	URL     string
	Timeout time.Duration
}

func (s *WebhookSender) Name() string { return "webhook" }

type webhookResponse struct {
	Accepted int `json:"accepted"`
}

func (s *WebhookSender) Send(_ context.Context, msg PushMessage) (int, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	agent := fiber.Post(s.URL).JSON(msg).Timeout(timeout)
	var resp webhookResponse
	code, body, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return 0, fmt.Errorf("push webhook: %w", errs[0])
	}
	if code < 200 || code >= 300 {
		return 0, fmt.Errorf("push webhook: status %d: %s", code, truncate(string(body), 200))
	}
	return resp.Accepted, nil
}

// NewPushSender picks the provider named by PUSH_PROVIDER.
func NewPushSender(cfg *config.Config) PushSender {
	if cfg.PushProvider == "webhook" {
		return &WebhookSender{URL: cfg.PushWebhookURL}
	}
	return LogSender{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
