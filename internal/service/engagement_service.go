package service

import (
	"context"
	"fmt"

	"medfeed/internal/cache"
	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
)

// EngagementService toggles post likes and saves. Row existence is the state;
// the insert or delete itself decides the outcome, so concurrent toggles of
// the same pair cannot both succeed. A post deleted between the lookup and the
// insert fails the insert on its foreign key.
type EngagementService struct {
	posts      repository.PostRepository
	groups     GroupDirectory
	engagement repository.EngagementRepository
	notifier   *fanout
}

func NewEngagementService(repos *repository.Repositories, gateway NotificationGateway) *EngagementService {
	return &EngagementService{
		posts:      repos.Posts,
		groups:     repos.Groups,
		engagement: repos.Engagement,
		notifier:   newFanout(gateway, repos.Doctors),
	}
}

func (s *EngagementService) accessiblePost(ctx context.Context, postID uint, actor models.Actor) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "Post", postID)
	}
	if err := requireAccess(ctx, s.groups, post, actor.ID); err != nil {
		return nil, err
	}
	return post, nil
}

// TogglePostLike likes (IntentOn) or unlikes (IntentOff) a post. A new like on
// someone else's post notifies the owner in-app and by push.
func (s *EngagementService) TogglePostLike(ctx context.Context, postID uint, actor models.Actor, intent models.ToggleIntent) error {
	post, err := s.accessiblePost(ctx, postID, actor)
	if err != nil {
		return err
	}

	switch intent {
	case models.IntentOn:
		created, err := s.engagement.LikePost(ctx, postID, actor.ID)
		if err != nil {
			return parentGone(fmt.Errorf("like post: %w", err), "Post", postID)
		}
		if !created {
			observability.RecordEngagement("post_like", "already")
			return models.NewStateError(models.CodeAlreadyLiked, "Post already liked")
		}
		observability.RecordEngagement("post_like", "on")
		cache.InvalidatePost(ctx, postID)

		if post.AuthorID != actor.ID {
			s.notifier.notifyOne(ctx, models.AppNotification{
				RecipientID: post.AuthorID,
				Type:        models.NotificationPostLike,
				SubjectID:   post.ID,
				ActorID:     actor.ID,
				Content:     s.notifier.actorName(ctx, actor.ID) + " liked your post",
			}, "New like")
		}
		return nil

	case models.IntentOff:
		removed, err := s.engagement.UnlikePost(ctx, postID, actor.ID)
		if err != nil {
			return fmt.Errorf("unlike post: %w", err)
		}
		if !removed {
			observability.RecordEngagement("post_like", "not_liked")
			return models.NewStateError(models.CodeNotLiked, "Post is not liked")
		}
		observability.RecordEngagement("post_like", "off")
		cache.InvalidatePost(ctx, postID)
		return nil
	}
	return models.NewValidationError("intent must be on or off")
}

// TogglePostSave bookmarks or un-bookmarks a post. Saves are private and
// produce no notification.
func (s *EngagementService) TogglePostSave(ctx context.Context, postID uint, actor models.Actor, intent models.ToggleIntent) error {
	if _, err := s.accessiblePost(ctx, postID, actor); err != nil {
		return err
	}

	switch intent {
	case models.IntentOn:
		created, err := s.engagement.SavePost(ctx, postID, actor.ID)
		if err != nil {
			return parentGone(fmt.Errorf("save post: %w", err), "Post", postID)
		}
		if !created {
			observability.RecordEngagement("post_save", "already")
			return models.NewStateError(models.CodeAlreadySaved, "Post already saved")
		}
		observability.RecordEngagement("post_save", "on")
		return nil

	case models.IntentOff:
		removed, err := s.engagement.UnsavePost(ctx, postID, actor.ID)
		if err != nil {
			return fmt.Errorf("unsave post: %w", err)
		}
		if !removed {
			observability.RecordEngagement("post_save", "not_saved")
			return models.NewStateError(models.CodeNotSaved, "Post is not saved")
		}
		observability.RecordEngagement("post_save", "off")
		return nil
	}
	return models.NewValidationError("intent must be on or off")
}
