// Package validation holds input rules shared by the services and HTTP handlers.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"medfeed/internal/models"
)

const (
	MaxContentLen    = 50000
	MaxCommentLen    = 10000
	MaxMediaRefs     = 10
	MaxMediaRefLen   = 2048
	MaxPollQuestion  = 500
	MaxPollOptionLen = 280
	MaxPollOptions   = 20
	MinPollOptions   = 2
)

// ValidatePostContent checks a post body. Empty content is allowed when the
// post carries media or a poll.
func ValidatePostContent(content string, hasAttachment bool) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" && !hasAttachment {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLen {
		return fmt.Errorf("content too long (max %d characters)", MaxContentLen)
	}
	return nil
}

// ValidateMedia checks the kind/reference combination. Kind none must come
// without references; image and video need at least one, video at most one.
func ValidateMedia(kind models.MediaKind, refs []string) error {
	if !kind.Valid() {
		return fmt.Errorf("media_kind must be one of none, image, video")
	}
	if len(refs) > MaxMediaRefs {
		return fmt.Errorf("too many media references (max %d)", MaxMediaRefs)
	}
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("media references cannot be blank")
		}
		if len(ref) > MaxMediaRefLen {
			return fmt.Errorf("media reference too long (max %d bytes)", MaxMediaRefLen)
		}
	}

	switch kind {
	case models.MediaKindNone:
		if len(refs) > 0 {
			return fmt.Errorf("media references require media_kind image or video")
		}
	case models.MediaKindImage:
		if len(refs) == 0 {
			return fmt.Errorf("image posts need at least one media reference")
		}
	case models.MediaKindVideo:
		if len(refs) != 1 {
			return fmt.Errorf("video posts take exactly one media reference")
		}
	}
	return nil
}

// ValidateVisibility rejects unknown visibility values.
func ValidateVisibility(v models.Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("visibility must be one of public, friends, owner_only")
	}
	return nil
}

// ValidateCommentBody checks a comment or reply body.
func ValidateCommentBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body is required")
	}
	if utf8.RuneCountInString(body) > MaxCommentLen {
		return fmt.Errorf("comment too long (max %d characters)", MaxCommentLen)
	}
	return nil
}
