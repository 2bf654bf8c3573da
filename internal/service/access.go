package service

import (
	"context"
	"fmt"

	"medfeed/internal/models"
)

// canAccessPost applies the one visibility rule every read and write path
// shares: the author always sees the post, others only when it is public and,
// for a private group, when they belong to it. A group that no longer exists
// does not hide the post.
func canAccessPost(ctx context.Context, groups GroupDirectory, post *models.Post, doctorID uint) (bool, error) {
	if post.AuthorID == doctorID {
		return true, nil
	}
	if !post.AccessibleTo(doctorID) {
		return false, nil
	}
	if post.GroupID == nil || groups == nil {
		return true, nil
	}
	privacy, err := groups.Privacy(ctx, *post.GroupID)
	if isNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load group privacy: %w", err)
	}
	if privacy != models.GroupPrivacyPrivate {
		return true, nil
	}
	member, err := groups.IsMember(ctx, *post.GroupID, doctorID)
	if err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return member, nil
}

// requireAccess is canAccessPost as an error: NOT_ACCESSIBLE when denied.
func requireAccess(ctx context.Context, groups GroupDirectory, post *models.Post, doctorID uint) error {
	ok, err := canAccessPost(ctx, groups, post, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotAccessibleError(post.ID)
	}
	return nil
}
