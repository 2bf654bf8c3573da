package service

import (
	"context"
	"fmt"

	"medfeed/internal/cache"
	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
	"medfeed/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// PostService runs the post lifecycle. Every mutation, including its hashtag
// and poll changes, commits or rolls back as one transaction.
type PostService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	groups   GroupDirectory
	hashtags *HashtagLedger
	polls    *PollEngine
	feed     *FeedService
	notifier *fanout
}

type CreatePostInput struct {
	Content    string            `json:"content"`
	MediaRefs  []string          `json:"media_refs"`
	MediaKind  models.MediaKind  `json:"media_kind"`
	Visibility models.Visibility `json:"visibility"`
	GroupID    *uint             `json:"group_id"`
	Poll       *PollSpec         `json:"poll"`
}

// UpdatePostInput carries a partial edit; nil fields are left untouched.
type UpdatePostInput struct {
	Content    *string            `json:"content"`
	MediaRefs  []string           `json:"media_refs"`
	MediaKind  *models.MediaKind  `json:"media_kind"`
	Visibility *models.Visibility `json:"visibility"`
	Poll       *PollSpec          `json:"poll"`
}

func NewPostService(
	uow repository.UnitOfWork,
	repos *repository.Repositories,
	groups GroupDirectory,
	hashtags *HashtagLedger,
	polls *PollEngine,
	feed *FeedService,
	gateway NotificationGateway,
) *PostService {
	return &PostService{
		uow:      uow,
		repos:    repos,
		groups:   groups,
		hashtags: hashtags,
		polls:    polls,
		feed:     feed,
		notifier: newFanout(gateway, repos.Doctors),
	}
}

// Create publishes a post with its hashtags and optional poll, then tells
// every other verified doctor about it.
func (s *PostService) Create(ctx context.Context, actor models.Actor, in CreatePostInput) (*models.Post, error) {
	if in.MediaKind == "" {
		in.MediaKind = models.MediaKindNone
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	if in.MediaRefs == nil {
		in.MediaRefs = []string{}
	}
	if err := validation.ValidateVisibility(in.Visibility); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMedia(in.MediaKind, in.MediaRefs); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePostContent(in.Content, len(in.MediaRefs) > 0 || in.Poll != nil); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Poll != nil {
		if _, err := normalizeSpec(in.Poll); err != nil {
			return nil, err
		}
	}
	if in.GroupID != nil {
		if err := s.checkGroupAccess(ctx, *in.GroupID, actor.ID); err != nil {
			return nil, err
		}
	}

	span, ctx := observability.NewSpan(ctx, "post.create", attribute.Int64("doctor.id", int64(actor.ID)))
	defer span.End()

	post := &models.Post{
		AuthorID:   actor.ID,
		Content:    in.Content,
		MediaRefs:  datatypes.JSONSlice[string](in.MediaRefs),
		MediaKind:  in.MediaKind,
		Visibility: in.Visibility,
		GroupID:    in.GroupID,
	}
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post.ID = 0
		if err := tx.Posts.Create(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		if err := s.hashtags.Attach(ctx, tx, post.ID, post.Content); err != nil {
			return err
		}
		if in.Poll != nil {
			if _, err := s.polls.Create(ctx, tx, post.ID, *in.Poll); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int64("post.id", int64(post.ID)))
	cache.InvalidateTrending(ctx)

	s.announce(ctx, post)
	return s.feed.load(ctx, post.ID, actor.ID)
}

func (s *PostService) checkGroupAccess(ctx context.Context, groupID, doctorID uint) error {
	if s.groups == nil {
		return models.NewNotFoundError("Group", groupID)
	}
	privacy, err := s.groups.Privacy(ctx, groupID)
	if err != nil {
		return notFound(err, "Group", groupID)
	}
	if privacy != models.GroupPrivacyPrivate {
		return nil
	}
	member, err := s.groups.IsMember(ctx, groupID, doctorID)
	if err != nil {
		return fmt.Errorf("check group membership: %w", err)
	}
	if !member {
		return models.NewForbiddenError("Only members can post in this private group")
	}
	return nil
}

// announce fans a new_post notice out to every verified doctor except the author.
// Posts only their author can see are not announced; posts in a private group
// are announced to its verified members.
func (s *PostService) announce(ctx context.Context, post *models.Post) {
	if post.Visibility == models.VisibilityOwnerOnly {
		return
	}
	recipients, err := s.announceRecipients(ctx, post)
	if err != nil {
		s.notifier.logFailure(ctx, "load new post recipients", err)
		return
	}
	s.notifier.notifyMany(ctx, recipients, models.AppNotification{
		Type:      models.NotificationNewPost,
		SubjectID: post.ID,
		ActorID:   post.AuthorID,
		Content:   s.notifier.actorName(ctx, post.AuthorID) + " shared a new post",
	}, "New post")
}

func (s *PostService) announceRecipients(ctx context.Context, post *models.Post) ([]uint, error) {
	if post.GroupID != nil && s.groups != nil {
		privacy, err := s.groups.Privacy(ctx, *post.GroupID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if privacy == models.GroupPrivacyPrivate {
			return s.repos.Doctors.VerifiedMemberIDsExcept(ctx, *post.GroupID, post.AuthorID)
		}
	}
	return s.repos.Doctors.VerifiedIDsExcept(ctx, post.AuthorID)
}

// Update edits a post. Hashtags are recomputed only when the content changed;
// the poll is touched only when poll data is supplied.
func (s *PostService) Update(ctx context.Context, actor models.Actor, postID uint, in UpdatePostInput) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "post.update", attribute.Int64("post.id", int64(postID)))
	defer span.End()

	contentChanged := false
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.FindByID(ctx, postID)
		if err != nil {
			return notFound(err, "Post", postID)
		}
		if !actor.CanModify(post.AuthorID) {
			return models.NewUnauthorizedError("You can only update your own posts")
		}

		contentChanged = in.Content != nil && *in.Content != post.Content
		if in.Content != nil {
			post.Content = *in.Content
		}
		if in.MediaRefs != nil {
			post.MediaRefs = datatypes.JSONSlice[string](in.MediaRefs)
		}
		if in.MediaKind != nil {
			post.MediaKind = *in.MediaKind
		}
		// Switching to none clears the old references; new ones are validated below.
		if in.MediaKind != nil && *in.MediaKind == models.MediaKindNone && in.MediaRefs == nil {
			post.MediaRefs = datatypes.JSONSlice[string]{}
		}
		if in.Visibility != nil {
			post.Visibility = *in.Visibility
		}

		if err := validation.ValidateVisibility(post.Visibility); err != nil {
			return models.NewValidationError(err.Error())
		}
		if err := validation.ValidateMedia(post.MediaKind, post.MediaRefs); err != nil {
			return models.NewValidationError(err.Error())
		}
		hasPoll := in.Poll != nil
		if !hasPoll {
			_, err := tx.Polls.FindByPostID(ctx, postID)
			if err != nil && !isNotFound(err) {
				return fmt.Errorf("load poll: %w", err)
			}
			hasPoll = err == nil
		}
		if err := validation.ValidatePostContent(post.Content, len(post.MediaRefs) > 0 || hasPoll); err != nil {
			return models.NewValidationError(err.Error())
		}

		if err := tx.Posts.Update(ctx, post); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if contentChanged {
			if err := s.hashtags.Detach(ctx, tx, postID); err != nil {
				return err
			}
			if err := s.hashtags.Attach(ctx, tx, postID, post.Content); err != nil {
				return err
			}
		}
		if in.Poll != nil {
			if _, err := s.polls.Update(ctx, tx, postID, *in.Poll); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	cache.InvalidatePost(ctx, postID)
	if contentChanged {
		cache.InvalidateTrending(ctx)
	}
	return s.feed.load(ctx, postID, actor.ID)
}

// Delete removes the post and everything it owns: hashtag attachments, poll,
// comments with their likes, likes, saves and the notifications about it.
func (s *PostService) Delete(ctx context.Context, actor models.Actor, postID uint) error {
	span, ctx := observability.NewSpan(ctx, "post.delete", attribute.Int64("post.id", int64(postID)))
	defer span.End()

	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		post, err := tx.Posts.FindByID(ctx, postID)
		if err != nil {
			return notFound(err, "Post", postID)
		}
		if !actor.CanModify(post.AuthorID) {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}

		if err := s.hashtags.Detach(ctx, tx, postID); err != nil {
			return err
		}
		if err := s.polls.Delete(ctx, tx, postID); err != nil {
			return err
		}
		commentIDs, err := tx.Comments.IDsByPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("load comments: %w", err)
		}
		if err := tx.Engagement.DeleteCommentLikes(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if err := tx.Comments.DeleteByIDs(ctx, commentIDs); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Engagement.DeleteForPost(ctx, postID); err != nil {
			return fmt.Errorf("delete likes and saves: %w", err)
		}
		if _, err := tx.Notifications.PurgeForPost(ctx, postID); err != nil {
			return fmt.Errorf("purge notifications: %w", err)
		}
		if err := tx.Posts.Delete(ctx, postID); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		span.AddAttributes(attribute.Int("post.comments_deleted", len(commentIDs)))
		return nil
	})
	if err != nil {
		span.SetError(err)
		return err
	}

	cache.InvalidatePost(ctx, postID)
	cache.InvalidateTrending(ctx)
	return nil
}
