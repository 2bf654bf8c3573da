package repository

import (
	"context"
	"fmt"

	"medfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HashtagRepository stores the reference-counted hashtag ledger.
type HashtagRepository interface {
	// Ensure returns the hashtag row for tag, inserting it with a zero count if absent.
	Ensure(ctx context.Context, tag string) (*models.Hashtag, error)
	// Link attaches a hashtag to a post; false means the pair already existed.
	Link(ctx context.Context, postID, hashtagID uint) (bool, error)
	// Unlink removes one attachment; false means it was already gone.
	Unlink(ctx context.Context, postID, hashtagID uint) (bool, error)
	Increment(ctx context.Context, hashtagID uint) error
	Decrement(ctx context.Context, hashtagID uint) error
	// PruneUnused deletes the given hashtags whose usage count fell to zero.
	PruneUnused(ctx context.Context, hashtagIDs []uint) (int64, error)
	AttachedIDs(ctx context.Context, postID uint) ([]uint, error)
	TagsForPosts(ctx context.Context, postIDs []uint) (map[uint][]string, error)
	FindByTag(ctx context.Context, tag string) (*models.Hashtag, error)
	Trending(ctx context.Context, limit int) ([]models.Hashtag, error)
}

type hashtagRepository struct {
	db *gorm.DB
}

// NewHashtagRepository creates a new HashtagRepository
func NewHashtagRepository(db *gorm.DB) HashtagRepository {
	return &hashtagRepository{db: db}
}

func (r *hashtagRepository) Ensure(ctx context.Context, tag string) (*models.Hashtag, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tag"}},
		DoNothing: true,
	}).Create(&models.Hashtag{Tag: tag}).Error
	if err != nil {
		return nil, err
	}

	var h models.Hashtag
	if err := db.Where("tag = ?", tag).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *hashtagRepository) Link(ctx context.Context, postID, hashtagID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostHashtag{PostID: postID, HashtagID: hashtagID})
	return res.RowsAffected == 1, res.Error
}

func (r *hashtagRepository) Unlink(ctx context.Context, postID, hashtagID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND hashtag_id = ?", postID, hashtagID).
		Delete(&models.PostHashtag{})
	return res.RowsAffected == 1, res.Error
}

func (r *hashtagRepository) Increment(ctx context.Context, hashtagID uint) error {
	return r.adjust(ctx, hashtagID, "usage_count + 1")
}

func (r *hashtagRepository) Decrement(ctx context.Context, hashtagID uint) error {
	return r.adjust(ctx, hashtagID, "usage_count - 1")
}

func (r *hashtagRepository) adjust(ctx context.Context, hashtagID uint, expr string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Hashtag{}).
		Where("id = ?", hashtagID).
		UpdateColumn("usage_count", gorm.Expr(expr))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("hashtag %d: %w", hashtagID, ErrConcurrentUpdate)
	}
	return nil
}

func (r *hashtagRepository) PruneUnused(ctx context.Context, hashtagIDs []uint) (int64, error) {
	if len(hashtagIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ? AND usage_count <= 0", hashtagIDs).
		Delete(&models.Hashtag{})
	return res.RowsAffected, res.Error
}

func (r *hashtagRepository) AttachedIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.PostHashtag{}).
		Where("post_id = ?", postID).
		Order("hashtag_id ASC").
		Pluck("hashtag_id", &ids).Error
	return ids, err
}

func (r *hashtagRepository) TagsForPosts(ctx context.Context, postIDs []uint) (map[uint][]string, error) {
	out := make(map[uint][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PostID uint
		Tag    string
	}
	err := r.db.WithContext(ctx).
		Table("post_hashtags").
		Select("post_hashtags.post_id, hashtags.tag").
		Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id").
		Where("post_hashtags.post_id IN ?", postIDs).
		Order("hashtags.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row.Tag)
	}
	return out, nil
}

func (r *hashtagRepository) FindByTag(ctx context.Context, tag string) (*models.Hashtag, error) {
	var h models.Hashtag
	if err := r.db.WithContext(ctx).Where("tag = ?", tag).First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *hashtagRepository) Trending(ctx context.Context, limit int) ([]models.Hashtag, error) {
	var tags []models.Hashtag
	err := r.db.WithContext(ctx).
		Where("usage_count > 0").
		Order("usage_count DESC, tag ASC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}
