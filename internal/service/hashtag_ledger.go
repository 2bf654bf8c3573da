package service

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"medfeed/internal/observability"
	"medfeed/internal/repository"
)

// maxTagLen matches the hashtags.tag column.
const maxTagLen = 100

// A tag starts at the beginning of the text or after a character that cannot
// belong to a word, a URL path or an HTML entity.
var hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{M}0-9_&/#])#([\p{L}\p{M}0-9_]+)`)

// HashtagLedger keeps hashtag usage counts equal to the number of posts that
// reference each tag. Attach and Detach run on the caller's transaction.
type HashtagLedger struct{}

func NewHashtagLedger() *HashtagLedger {
	return &HashtagLedger{}
}

// Extract returns the #word tags of text without the leading '#', in first
// occurrence order. Exact duplicates collapse; case is preserved.
func (l *HashtagLedger) Extract(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := m[1]
		if utf8.RuneCountInString(tag) > maxTagLen {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Attach links every tag in text to the post. Only a newly created link bumps
// the usage count, so re-attaching is a no-op.
func (l *HashtagLedger) Attach(ctx context.Context, tx *repository.Repositories, postID uint, text string) error {
	for _, tag := range l.Extract(text) {
		h, err := tx.Hashtags.Ensure(ctx, tag)
		if err != nil {
			return fmt.Errorf("ensure hashtag %q: %w", tag, err)
		}
		linked, err := tx.Hashtags.Link(ctx, postID, h.ID)
		if err != nil {
			return fmt.Errorf("link hashtag %q: %w", tag, err)
		}
		if !linked {
			continue
		}
		if err := tx.Hashtags.Increment(ctx, h.ID); err != nil {
			return fmt.Errorf("increment hashtag %q: %w", tag, err)
		}
		observability.HashtagMutations.WithLabelValues("attach").Inc()
	}
	return nil
}

// Detach unlinks every hashtag of the post, decrements their counts and
// deletes the ones nobody references any more.
func (l *HashtagLedger) Detach(ctx context.Context, tx *repository.Repositories, postID uint) error {
	ids, err := tx.Hashtags.AttachedIDs(ctx, postID)
	if err != nil {
		return fmt.Errorf("load attached hashtags: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		unlinked, err := tx.Hashtags.Unlink(ctx, postID, id)
		if err != nil {
			return fmt.Errorf("unlink hashtag %d: %w", id, err)
		}
		if !unlinked {
			continue
		}
		if err := tx.Hashtags.Decrement(ctx, id); err != nil {
			return fmt.Errorf("decrement hashtag %d: %w", id, err)
		}
		observability.HashtagMutations.WithLabelValues("detach").Inc()
	}
	pruned, err := tx.Hashtags.PruneUnused(ctx, ids)
	if err != nil {
		return fmt.Errorf("prune hashtags: %w", err)
	}
	if pruned > 0 {
		observability.HashtagMutations.WithLabelValues("prune").Add(float64(pruned))
	}
	return nil
}
