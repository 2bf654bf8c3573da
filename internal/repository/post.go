package repository

import (
	"context"

	"medfeed/internal/models"
	"medfeed/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListSaved(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Post, error)
	// ViewerFlags reports which of the posts the viewer has liked and saved.
	ViewerFlags(ctx context.Context, viewerID uint, postIDs []uint) (liked, saved map[uint]bool, err error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create", "posts")()
	return r.db.WithContext(ctx).Create(post).Error
}

// FindByID loads the bare row without engagement annotations.
func (r *postRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer r.metrics.TrackQuery("get", "posts")()
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("list_feed", "posts")()
	var posts []*models.Post
	err := r.visibleTo(r.applyPostDetails(r.db.WithContext(ctx), viewerID), viewerID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListSaved(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("list_saved", "posts")()
	var posts []*models.Post
	err := r.visibleTo(r.applyPostDetails(r.db.WithContext(ctx), viewerID), viewerID).
		Joins("JOIN saves ON saves.post_id = posts.id AND saves.doctor_id = ?", viewerID).
		Order("saves.created_at DESC, saves.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("list_by_hashtag", "posts")()
	var posts []*models.Post
	err := r.visibleTo(r.applyPostDetails(r.db.WithContext(ctx), viewerID), viewerID).
		Joins("JOIN post_hashtags ON post_hashtags.post_id = posts.id").
		Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id AND hashtags.tag = ?", tag).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ViewerFlags(ctx context.Context, viewerID uint, postIDs []uint) (map[uint]bool, map[uint]bool, error) {
	liked := make(map[uint]bool)
	saved := make(map[uint]bool)
	if viewerID == 0 || len(postIDs) == 0 {
		return liked, saved, nil
	}
	db := r.db.WithContext(ctx)

	var ids []uint
	if err := db.Model(&models.Like{}).
		Where("doctor_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}

	ids = ids[:0]
	if err := db.Model(&models.Save{}).
		Where("doctor_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		saved[id] = true
	}
	return liked, saved, nil
}

// Update persists the mutable columns. Computed read-only fields are never written.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(post).
		Select("content", "media_refs", "media_kind", "visibility", "updated_at").
		Updates(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Post{}, id).Error
}

// applyPostDetails adds subqueries to fetch counts and viewer flags in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.Post{}).Select(
		"posts.*, "+
			"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, "+
			"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, "+
			"EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.doctor_id = ?) AS is_liked, "+
			"EXISTS(SELECT 1 FROM saves WHERE saves.post_id = posts.id AND saves.doctor_id = ?) AS is_saved",
		viewerID, viewerID,
	)
}

// visibleTo restricts rows to public posts and the viewer's own, excluding posts in
// private groups the viewer does not belong to. It is the SQL form of the
// service layer's post access rule.
func (r *postRepository) visibleTo(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.
		Where("(posts.visibility = ? OR posts.author_id = ?)", models.VisibilityPublic, viewerID).
		Where("(posts.group_id IS NULL OR posts.author_id = ? OR "+
			"NOT EXISTS(SELECT 1 FROM \"groups\" g WHERE g.id = posts.group_id AND g.privacy = ?) OR "+
			"EXISTS(SELECT 1 FROM group_members WHERE group_members.group_id = posts.group_id AND group_members.doctor_id = ?))",
			viewerID, models.GroupPrivacyPrivate, viewerID)
}
