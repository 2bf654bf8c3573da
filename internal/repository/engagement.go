package repository

import (
	"context"

	"medfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository stores existence-as-state toggle rows. Each set/clear reports whether
// it changed anything, decided by the affected row count rather than a prior read.
// A set whose post or comment is gone fails with ErrMissingReference.
type EngagementRepository interface {
	LikePost(ctx context.Context, postID, doctorID uint) (bool, error)
	UnlikePost(ctx context.Context, postID, doctorID uint) (bool, error)
	SavePost(ctx context.Context, postID, doctorID uint) (bool, error)
	UnsavePost(ctx context.Context, postID, doctorID uint) (bool, error)
	LikeComment(ctx context.Context, commentID, doctorID uint) (bool, error)
	UnlikeComment(ctx context.Context, commentID, doctorID uint) (bool, error)
	DeleteForPost(ctx context.Context, postID uint) error
	DeleteCommentLikes(ctx context.Context, commentIDs []uint) error
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new EngagementRepository
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) insertIgnore(ctx context.Context, row interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, missingReference(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *engagementRepository) deleteWhere(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Where(query, args...).Delete(model)
	return res.RowsAffected > 0, res.Error
}

func (r *engagementRepository) LikePost(ctx context.Context, postID, doctorID uint) (bool, error) {
	return r.insertIgnore(ctx, &models.Like{PostID: postID, DoctorID: doctorID})
}

func (r *engagementRepository) UnlikePost(ctx context.Context, postID, doctorID uint) (bool, error) {
	return r.deleteWhere(ctx, &models.Like{}, "post_id = ? AND doctor_id = ?", postID, doctorID)
}

func (r *engagementRepository) SavePost(ctx context.Context, postID, doctorID uint) (bool, error) {
	return r.insertIgnore(ctx, &models.Save{PostID: postID, DoctorID: doctorID})
}

func (r *engagementRepository) UnsavePost(ctx context.Context, postID, doctorID uint) (bool, error) {
	return r.deleteWhere(ctx, &models.Save{}, "post_id = ? AND doctor_id = ?", postID, doctorID)
}

func (r *engagementRepository) LikeComment(ctx context.Context, commentID, doctorID uint) (bool, error) {
	return r.insertIgnore(ctx, &models.CommentLike{CommentID: commentID, DoctorID: doctorID})
}

func (r *engagementRepository) UnlikeComment(ctx context.Context, commentID, doctorID uint) (bool, error) {
	return r.deleteWhere(ctx, &models.CommentLike{}, "comment_id = ? AND doctor_id = ?", commentID, doctorID)
}

// DeleteForPost removes every like and save on a post.
func (r *engagementRepository) DeleteForPost(ctx context.Context, postID uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	return db.Where("post_id = ?", postID).Delete(&models.Save{}).Error
}

func (r *engagementRepository) DeleteCommentLikes(ctx context.Context, commentIDs []uint) error {
	if len(commentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("comment_id IN ?", commentIDs).Delete(&models.CommentLike{}).Error
}
