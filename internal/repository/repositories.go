// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Posts         PostRepository
	Hashtags      HashtagRepository
	Polls         PollRepository
	Comments      CommentRepository
	Engagement    EngagementRepository
	Notifications NotificationRepository
	Doctors       DoctorRepository
	Groups        GroupRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Posts:         NewPostRepository(db),
		Hashtags:      NewHashtagRepository(db),
		Polls:         NewPollRepository(db),
		Comments:      NewCommentRepository(db),
		Engagement:    NewEngagementRepository(db),
		Notifications: NewNotificationRepository(db),
		Doctors:       NewDoctorRepository(db),
		Groups:        NewGroupRepository(db),
	}
}

// UnitOfWork runs a function against repositories sharing one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos *Repositories) error) error
}

type unitOfWork struct {
	db          *gorm.DB
	maxAttempts int
}

// NewUnitOfWork returns a UnitOfWork that commits when fn returns nil and rolls back otherwise.
// Transactions aborted by serialization conflicts or deadlocks are retried from the start.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db, maxAttempts: 3}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(repos *Repositories) error) error {
	var err error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(NewRepositories(tx))
		})
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// ErrConcurrentUpdate signals that a row vanished or changed underneath a transaction;
// the whole unit of work should be retried.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// IsRetryable reports whether err aborted a transaction that is safe to re-run from scratch.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrConcurrentUpdate) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a unique-constraint violation on either supported dialect.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ErrMissingReference reports an insert whose parent row (post, comment, poll
// option) was deleted before it committed.
var ErrMissingReference = errors.New("referenced row no longer exists")

// IsForeignKeyViolation reports whether err is a foreign-key violation on either supported dialect.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// missingReference maps a foreign-key violation to ErrMissingReference.
func missingReference(err error) error {
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %v", ErrMissingReference, err)
	}
	return err
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
