package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medfeed/internal/cache"
	"medfeed/internal/models"
	"medfeed/internal/observability"
	"medfeed/internal/repository"
	"medfeed/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	uow      repository.UnitOfWork
	repos    *repository.Repositories
	notifier *fanout
}

type AddCommentInput struct {
	PostID   uint   `json:"-"`
	ParentID *uint  `json:"parent_id"`
	Body     string `json:"body"`
}

// CommentPage is one page of a post's ranked top-level comments.
type CommentPage struct {
	Comments []*models.Comment `json:"comments"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
	HasMore  bool              `json:"has_more"`
}

func NewCommentService(uow repository.UnitOfWork, repos *repository.Repositories, gateway NotificationGateway) *CommentService {
	return &CommentService{
		uow:      uow,
		repos:    repos,
		notifier: newFanout(gateway, repos.Doctors),
	}
}

// AddComment creates a top-level comment or a reply. The post author hears
// about every comment by someone else; a parent's author hears about replies
// unless they wrote the reply or own the post.
func (s *CommentService) AddComment(ctx context.Context, actor models.Actor, in AddCommentInput) (*models.Comment, error) {
	if err := validation.ValidateCommentBody(in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.repos.Posts.FindByID(ctx, in.PostID)
	if err != nil {
		return nil, notFound(err, "Post", in.PostID)
	}
	if err := requireAccess(ctx, s.repos.Groups, post, actor.ID); err != nil {
		return nil, err
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.repos.Comments.FindByID(ctx, *in.ParentID)
		if isNotFound(err) || (err == nil && parent.PostID != post.ID) {
			return nil, models.NewParentNotFoundError(*in.ParentID)
		}
		if err != nil {
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: actor.ID,
		Body:     strings.TrimSpace(in.Body),
		ParentID: in.ParentID,
	}
	if err := s.repos.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, s.vanished(ctx, post.ID, in.ParentID)
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	cache.InvalidatePost(ctx, post.ID)

	name := s.notifier.actorName(ctx, actor.ID)
	commentID := comment.ID
	if actor.ID != post.AuthorID {
		s.notifier.notifyOne(ctx, models.AppNotification{
			RecipientID: post.AuthorID,
			Type:        models.NotificationPostComment,
			SubjectID:   post.ID,
			CommentID:   &commentID,
			ActorID:     actor.ID,
			Content:     name + " commented on your post",
		}, "New comment")
	}
	if parent != nil && parent.AuthorID != actor.ID && parent.AuthorID != post.AuthorID {
		s.notifier.notifyOne(ctx, models.AppNotification{
			RecipientID: parent.AuthorID,
			Type:        models.NotificationCommentReply,
			SubjectID:   post.ID,
			CommentID:   &commentID,
			ActorID:     actor.ID,
			Content:     name + " replied to your comment",
		}, "New reply")
	}

	return comment, nil
}

// vanished names what disappeared under a comment insert: the post, or else the parent.
func (s *CommentService) vanished(ctx context.Context, postID uint, parentID *uint) error {
	if _, err := s.repos.Posts.FindByID(ctx, postID); isNotFound(err) || parentID == nil {
		return models.NewNotFoundError("Post", postID)
	}
	return models.NewParentNotFoundError(*parentID)
}

// ListTopLevel returns one page of the post's top-level comments ranked by
// RankComments. Each comment carries its replies and each reply its own
// replies; deeper levels are only counted.
func (s *CommentService) ListTopLevel(ctx context.Context, postID, viewerID uint, page int) (*CommentPage, error) {
	post, err := s.repos.Posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "Post", postID)
	}
	if err := requireAccess(ctx, s.repos.Groups, post, viewerID); err != nil {
		return nil, err
	}

	top, err := s.repos.Comments.ListTopLevel(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	ranked := RankComments(top, post.AuthorID, viewerID)

	if page < 1 {
		page = 1
	}
	start, end := pageBounds(len(ranked), page, CommentPageSize)
	result := &CommentPage{
		Comments: ranked[start:end],
		Page:     page,
		PageSize: CommentPageSize,
		Total:    len(ranked),
		HasMore:  end < len(ranked),
	}
	if len(result.Comments) == 0 {
		result.Comments = []*models.Comment{}
		return result, nil
	}

	loader := newReplyLoader(s.repos.Comments)
	replies, err := loadReplies(ctx, loader, result.Comments)
	if err != nil {
		return nil, err
	}
	nested, err := loadReplies(ctx, loader, replies)
	if err != nil {
		return nil, err
	}

	all := make([]*models.Comment, 0, len(result.Comments)+len(replies)+len(nested))
	all = append(all, result.Comments...)
	all = append(all, replies...)
	all = append(all, nested...)
	if err := s.annotate(ctx, all, viewerID); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CommentService) annotate(ctx context.Context, comments []*models.Comment, viewerID uint) error {
	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	likes, err := s.repos.Comments.LikeCounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("count comment likes: %w", err)
	}
	replies, err := s.repos.Comments.ReplyCounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("count replies: %w", err)
	}
	liked, err := s.repos.Comments.LikedIDs(ctx, viewerID, ids)
	if err != nil {
		return fmt.Errorf("load liked comments: %w", err)
	}
	for _, c := range comments {
		c.LikeCount = likes[c.ID]
		c.ReplyCount = replies[c.ID]
		c.IsLiked = liked[c.ID]
	}
	return nil
}

// DeleteComment removes a comment with its whole reply subtree, their likes
// and the notifications that point at them.
func (s *CommentService) DeleteComment(ctx context.Context, commentID uint, actor models.Actor) error {
	span, ctx := observability.NewSpan(ctx, "comment.delete", attribute.Int64("comment.id", int64(commentID)))
	defer span.End()

	var postID uint
	err := s.uow.Do(ctx, func(tx *repository.Repositories) error {
		comment, err := tx.Comments.FindByID(ctx, commentID)
		if err != nil {
			return notFound(err, "Comment", commentID)
		}
		if !actor.CanModify(comment.AuthorID) {
			return models.NewUnauthorizedError("You can only delete your own comments")
		}
		postID = comment.PostID

		ids, err := subtreeIDs(ctx, tx.Comments, []uint{comment.ID})
		if err != nil {
			return err
		}
		if err := tx.Engagement.DeleteCommentLikes(ctx, ids); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		if _, err := tx.Notifications.PurgeForComments(ctx, ids); err != nil {
			return fmt.Errorf("purge comment notifications: %w", err)
		}
		if err := tx.Comments.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		span.AddAttributes(attribute.Int("comment.subtree_size", len(ids)))
		return nil
	})
	if err != nil {
		span.SetError(err)
		return err
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}

// subtreeIDs walks the reply tree breadth-first from roots.
func subtreeIDs(ctx context.Context, comments repository.CommentRepository, roots []uint) ([]uint, error) {
	all := append([]uint(nil), roots...)
	seen := make(map[uint]struct{}, len(roots))
	for _, id := range roots {
		seen[id] = struct{}{}
	}
	frontier := roots
	for len(frontier) > 0 {
		children, err := comments.ChildIDs(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("load replies: %w", err)
		}
		next := make([]uint, 0, len(children))
		for _, id := range children {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

// ToggleCommentLike sets or clears actor's like on a comment. A new like by
// someone other than the author notifies the author.
func (s *CommentService) ToggleCommentLike(ctx context.Context, commentID uint, actor models.Actor, intent models.ToggleIntent) error {
	comment, err := s.repos.Comments.FindByID(ctx, commentID)
	if err != nil {
		return notFound(err, "Comment", commentID)
	}
	post, err := s.repos.Posts.FindByID(ctx, comment.PostID)
	if err != nil {
		return notFound(err, "Post", comment.PostID)
	}
	if err := requireAccess(ctx, s.repos.Groups, post, actor.ID); err != nil {
		return err
	}

	switch intent {
	case models.IntentOn:
		created, err := s.repos.Engagement.LikeComment(ctx, commentID, actor.ID)
		if err != nil {
			return parentGone(fmt.Errorf("like comment: %w", err), "Comment", commentID)
		}
		if !created {
			observability.RecordEngagement("comment_like", "already")
			return models.NewStateError(models.CodeAlreadyLiked, "Comment already liked")
		}
		observability.RecordEngagement("comment_like", "on")
		if comment.AuthorID != actor.ID {
			id := comment.ID
			s.notifier.notifyOne(ctx, models.AppNotification{
				RecipientID: comment.AuthorID,
				Type:        models.NotificationCommentLike,
				SubjectID:   comment.PostID,
				CommentID:   &id,
				ActorID:     actor.ID,
				Content:     s.notifier.actorName(ctx, actor.ID) + " liked your comment",
			}, "New like")
		}
		return nil

	case models.IntentOff:
		removed, err := s.repos.Engagement.UnlikeComment(ctx, commentID, actor.ID)
		if err != nil {
			return fmt.Errorf("unlike comment: %w", err)
		}
		if !removed {
			observability.RecordEngagement("comment_like", "not_liked")
			return models.NewStateError(models.CodeNotLiked, "Comment is not liked")
		}
		observability.RecordEngagement("comment_like", "off")
		return nil
	}
	return models.NewValidationError("intent must be on or off")
}
