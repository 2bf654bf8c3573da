package repository

import (
	"context"

	"medfeed/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository stores append-only in-app notifications.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, records []models.AppNotification) (int, error)
	// PurgeForPost removes every post-related notification whose subject is the post.
	PurgeForPost(ctx context.Context, postID uint) (int64, error)
	PurgeForComments(ctx context.Context, commentIDs []uint) (int64, error)
	ListForRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.AppNotification, error)
	CountForSubject(ctx context.Context, subjectID uint) (int64, error)
}

const notificationBatchSize = 500

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, records []models.AppNotification) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).CreateInBatches(&records, notificationBatchSize)
	return int(res.RowsAffected), res.Error
}

func (r *notificationRepository) PurgeForPost(ctx context.Context, postID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("subject_id = ? AND type IN ?", postID, models.PostNotificationTypes).
		Delete(&models.AppNotification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) PurgeForComments(ctx context.Context, commentIDs []uint) (int64, error) {
	if len(commentIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Delete(&models.AppNotification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]models.AppNotification, error) {
	var out []models.AppNotification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) CountForSubject(ctx context.Context, subjectID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.AppNotification{}).
		Where("subject_id = ?", subjectID).
		Count(&n).Error
	return n, err
}
