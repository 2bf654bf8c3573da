// Package service implements the feed engagement engine: post lifecycle,
// hashtag ledger, polls, comment trees, engagement toggles and feed reads.
package service

import (
	"context"
	"errors"

	"medfeed/internal/models"
	"medfeed/internal/repository"

	"gorm.io/gorm"
)

// NotificationGateway delivers notifications. Callers treat both operations as
// best-effort side effects.
type NotificationGateway interface {
	SendPush(ctx context.Context, title, body string, tokens []string) (models.PushResult, error)
	PersistInApp(ctx context.Context, records []models.AppNotification) (int, error)
}

// GroupDirectory answers group membership questions.
type GroupDirectory interface {
	Privacy(ctx context.Context, groupID uint) (models.GroupPrivacy, error)
	IsMember(ctx context.Context, groupID, doctorID uint) (bool, error)
}

// notFound turns gorm.ErrRecordNotFound into a NOT_FOUND AppError.
func notFound(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}

// parentGone turns an insert whose parent row was deleted concurrently into NOT_FOUND.
func parentGone(err error, resource string, id interface{}) error {
	if errors.Is(err, repository.ErrMissingReference) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
