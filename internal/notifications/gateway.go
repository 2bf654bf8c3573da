package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"medfeed/internal/featureflags"
	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
)

// Gateway persists in-app notices, relays them to connected doctors and
// queues push delivery.
type Gateway struct {
	repo       repository.NotificationRepository
	notifier   *Notifier
	dispatcher *Dispatcher
	flags      *featureflags.Manager
}

// NewGateway wires the gateway. notifier and dispatcher may be nil.
func NewGateway(
	repo repository.NotificationRepository,
	notifier *Notifier,
	dispatcher *Dispatcher,
	flags *featureflags.Manager,
) *Gateway {
	return &Gateway{repo: repo, notifier: notifier, dispatcher: dispatcher, flags: flags}
}

type realtimeEnvelope struct {
	Type    string                  `json:"type"`
	Payload *models.AppNotification `json:"payload"`
}

// PersistInApp batch-inserts records and returns how many were written.
func (g *Gateway) PersistInApp(ctx context.Context, records []models.AppNotification) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	n, err := g.repo.CreateBatch(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("persist notifications: %w", err)
	}
	for i := range records {
		observability.NotificationsPersisted.WithLabelValues(string(records[i].Type)).Inc()
	}
	g.relay(ctx, records)
	return n, nil
}

func (g *Gateway) relay(ctx context.Context, records []models.AppNotification) {
	if g.notifier == nil {
		return
	}
	for i := range records {
		rec := &records[i]
		if !g.flags.Enabled(featureflags.RealtimeInbox, rec.RecipientID) {
			continue
		}
		payload, err := json.Marshal(realtimeEnvelope{Type: "notification", Payload: rec})
		if err != nil {
			continue
		}
		if err := g.notifier.PublishUser(ctx, rec.RecipientID, string(payload)); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "realtime relay failed",
				slog.Uint64("recipient_id", uint64(rec.RecipientID)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// SendPush queues one push to every token. Delivered reports that the
// dispatcher accepted the job, not that devices received it.
func (g *Gateway) SendPush(ctx context.Context, title, body string, tokens []string) (models.PushResult, error) {
	if len(tokens) == 0 || g.dispatcher == nil {
		return models.PushResult{}, nil
	}
	if !g.flags.Enabled(featureflags.PushNotifications, 0) {
		return models.PushResult{}, nil
	}
	if _, err := g.dispatcher.Enqueue(ctx, title, body, tokens); err != nil {
		return models.PushResult{}, fmt.Errorf("queue push: %w", err)
	}
	return models.PushResult{Delivered: true, Count: len(tokens)}, nil
}
