package service

import (
	"context"
	"fmt"
	"log/slog"

	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
)

// fanout turns engine events into in-app records and push dispatches. Every
// failure is logged and swallowed; the triggering mutation has already committed.
type fanout struct {
	gateway NotificationGateway
	doctors repository.DoctorRepository
}

func newFanout(gateway NotificationGateway, doctors repository.DoctorRepository) *fanout {
	return &fanout{gateway: gateway, doctors: doctors}
}

// actorName resolves a display name for notification copy.
func (f *fanout) actorName(ctx context.Context, doctorID uint) string {
	if f.doctors == nil {
		return "A colleague"
	}
	d, err := f.doctors.FindByID(ctx, doctorID)
	if err != nil || d.Name == "" {
		return "A colleague"
	}
	return d.Name
}

// notifyOne persists a single record and pushes the same text to the recipient's devices.
func (f *fanout) notifyOne(ctx context.Context, rec models.AppNotification, title string) {
	if f.gateway == nil || rec.RecipientID == 0 || rec.RecipientID == rec.ActorID {
		return
	}
	f.persist(ctx, []models.AppNotification{rec})
	f.push(ctx, []uint{rec.RecipientID}, title, rec.Content)
}

// notifyMany persists one record per recipient and sends one push with the
// union of their tokens.
func (f *fanout) notifyMany(ctx context.Context, recipients []uint, template models.AppNotification, title string) {
	if f.gateway == nil || len(recipients) == 0 {
		return
	}
	records := make([]models.AppNotification, 0, len(recipients))
	for _, id := range recipients {
		if id == template.ActorID {
			continue
		}
		rec := template
		rec.RecipientID = id
		records = append(records, rec)
	}
	f.persist(ctx, records)
	f.push(ctx, recipients, title, template.Content)
}

func (f *fanout) persist(ctx context.Context, records []models.AppNotification) {
	if len(records) == 0 {
		return
	}
	if _, err := f.gateway.PersistInApp(ctx, records); err != nil {
		f.logFailure(ctx, "persist in-app notifications", err,
			slog.String("type", string(records[0].Type)),
			slog.Int("records", len(records)),
		)
	}
}

func (f *fanout) push(ctx context.Context, recipients []uint, title, body string) {
	if f.doctors == nil {
		return
	}
	tokens, err := f.doctors.PushTokens(ctx, recipients)
	if err != nil {
		f.logFailure(ctx, "load push tokens", err, slog.Int("recipients", len(recipients)))
		return
	}
	if len(tokens) == 0 {
		return
	}
	res, err := f.gateway.SendPush(ctx, title, body, tokens)
	if err != nil {
		f.logFailure(ctx, "dispatch push", err, slog.Int("tokens", len(tokens)))
		return
	}
	if !res.Delivered {
		observability.PushDispatch.WithLabelValues("gateway", "skipped").Inc()
	}
}

func (f *fanout) logFailure(ctx context.Context, what string, err error, attrs ...any) {
	dep := models.NewDependencyError("notification gateway", fmt.Errorf("%s: %w", what, err))
	attrs = append(attrs, slog.String("code", dep.Code), slog.String("error", dep.Error()))
	observability.GlobalLogger.WarnContext(ctx, "notification side effect failed", attrs...)
}
