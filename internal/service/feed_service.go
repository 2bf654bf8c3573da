package service

import (
	"context"
	"fmt"
	"strings"

	"medfeed/internal/cache"
	"medfeed/internal/models"
	"medfeed/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// FeedService assembles posts for a viewer: counts, viewer flags, hashtags
// and ranked polls.
type FeedService struct {
	repos  *repository.Repositories
	polls  *PollEngine
	groups GroupDirectory
}

func NewFeedService(repos *repository.Repositories, polls *PollEngine, groups GroupDirectory) *FeedService {
	return &FeedService{repos: repos, polls: polls, groups: groups}
}

// ClampPage applies the default and maximum page limit and floors the offset at 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListFeed returns public posts and the viewer's own, newest first.
func (s *FeedService) ListFeed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = ClampPage(limit, offset)
	posts, err := s.repos.Posts.ListFeed(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return s.enrich(ctx, posts, viewerID)
}

// ListSaved returns the viewer's bookmarks, most recently saved first.
func (s *FeedService) ListSaved(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = ClampPage(limit, offset)
	posts, err := s.repos.Posts.ListSaved(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list saved posts: %w", err)
	}
	return s.enrich(ctx, posts, viewerID)
}

// ListByHashtag returns visible posts carrying tag. A leading '#' is ignored.
func (s *FeedService) ListByHashtag(ctx context.Context, tag string, viewerID uint, limit, offset int) ([]*models.Post, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, models.NewValidationError("tag is required")
	}
	limit, offset = ClampPage(limit, offset)
	posts, err := s.repos.Posts.ListByHashtag(ctx, tag, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts by hashtag: %w", err)
	}
	return s.enrich(ctx, posts, viewerID)
}

// GetPost returns one post as the viewer sees it. The viewer-independent part
// is served from the cache.
func (s *FeedService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(postID), &post, cache.PostTTL, func() error {
		p, err := s.repos.Posts.GetByID(ctx, postID, 0)
		if err != nil {
			return err
		}
		post = *p
		return nil
	})
	if err != nil {
		return nil, notFound(err, "Post", postID)
	}

	if err := requireAccess(ctx, s.groups, &post, viewerID); err != nil {
		return nil, err
	}

	liked, saved, err := s.repos.Posts.ViewerFlags(ctx, viewerID, []uint{postID})
	if err != nil {
		return nil, fmt.Errorf("load viewer flags: %w", err)
	}
	post.IsLiked, post.IsSaved = liked[postID], saved[postID]

	posts, err := s.enrich(ctx, []*models.Post{&post}, viewerID)
	if err != nil {
		return nil, err
	}
	return posts[0], nil
}

// load returns the fully annotated post without a visibility check.
func (s *FeedService) load(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.repos.Posts.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, notFound(err, "Post", postID)
	}
	posts, err := s.enrich(ctx, []*models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return posts[0], nil
}

func (s *FeedService) enrich(ctx context.Context, posts []*models.Post, viewerID uint) ([]*models.Post, error) {
	if len(posts) == 0 {
		return []*models.Post{}, nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	tags, err := s.repos.Hashtags.TagsForPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load hashtags: %w", err)
	}
	polls, err := s.polls.TallyForPosts(ctx, ids, viewerID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.Hashtags = tags[p.ID]
		p.Poll = polls[p.ID]
	}
	return posts, nil
}

// TrendingHashtags returns the most used tags. Results are cached briefly.
func (s *FeedService) TrendingHashtags(ctx context.Context, limit int) ([]models.Hashtag, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > cache.TrendingLimitMax {
		limit = cache.TrendingLimitMax
	}
	var tags []models.Hashtag
	err := cache.Aside(ctx, cache.TrendingKey(limit), &tags, cache.TrendingTTL, func() error {
		var fetchErr error
		tags, fetchErr = s.repos.Hashtags.Trending(ctx, limit)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("load trending hashtags: %w", err)
	}
	if tags == nil {
		tags = []models.Hashtag{}
	}
	return tags, nil
}

// ListNotifications returns the recipient's in-app inbox, newest first.
func (s *FeedService) ListNotifications(ctx context.Context, recipientID uint, limit, offset int) ([]models.AppNotification, error) {
	limit, offset = ClampPage(limit, offset)
	items, err := s.repos.Notifications.ListForRecipient(ctx, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []models.AppNotification{}
	}
	return items, nil
}
