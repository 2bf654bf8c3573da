package repository

import (
	"context"

	"medfeed/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListTopLevel returns a post's root comments oldest first.
	ListTopLevel(ctx context.Context, postID uint) ([]*models.Comment, error)
	// ListByParentIDs returns direct replies of the given comments oldest first.
	ListByParentIDs(ctx context.Context, parentIDs []uint) ([]*models.Comment, error)
	ChildIDs(ctx context.Context, parentIDs []uint) ([]uint, error)
	IDsByPost(ctx context.Context, postID uint) ([]uint, error)
	LikeCounts(ctx context.Context, commentIDs []uint) (map[uint]int, error)
	ReplyCounts(ctx context.Context, commentIDs []uint) (map[uint]int, error)
	LikedIDs(ctx context.Context, doctorID uint, commentIDs []uint) (map[uint]bool, error)
	DeleteByIDs(ctx context.Context, ids []uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create fails with ErrMissingReference when the post or parent comment is gone.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return missingReference(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *commentRepository) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListTopLevel(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ListByParentIDs(ctx context.Context, parentIDs []uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	if len(parentIDs) == 0 {
		return comments, nil
	}
	err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) ChildIDs(ctx context.Context, parentIDs []uint) ([]uint, error) {
	var ids []uint
	if len(parentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("parent_id IN ?", parentIDs).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *commentRepository) IDsByPost(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Pluck("id", &ids).Error
	return ids, err
}

type idCount struct {
	ID    uint
	Total int
}

func (r *commentRepository) LikeCounts(ctx context.Context, commentIDs []uint) (map[uint]int, error) {
	return r.countBy(ctx, &models.CommentLike{}, "comment_id", commentIDs)
}

func (r *commentRepository) ReplyCounts(ctx context.Context, commentIDs []uint) (map[uint]int, error) {
	return r.countBy(ctx, &models.Comment{}, "parent_id", commentIDs)
}

func (r *commentRepository) countBy(ctx context.Context, model interface{}, column string, ids []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []idCount
	err := r.db.WithContext(ctx).
		Model(model).
		Select(column+" AS id, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ID] = row.Total
	}
	return counts, nil
}

func (r *commentRepository) LikedIDs(ctx context.Context, doctorID uint, commentIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if doctorID == 0 || len(commentIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("doctor_id = ? AND comment_id IN ?", doctorID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *commentRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{}).Error
}
