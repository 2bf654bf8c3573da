package models

import (
	"time"

	"gorm.io/datatypes"
)

// MediaKind describes what the post's media references point at.
type MediaKind string

const (
	MediaKindNone  MediaKind = "none"
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindNone, MediaKindImage, MediaKindVideo:
		return true
	}
	return false
}

// Visibility controls who can see and engage with a post.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFriends   Visibility = "friends"
	VisibilityOwnerOnly Visibility = "owner_only"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityOwnerOnly:
		return true
	}
	return false
}

// Post is a feed entry authored by a doctor.
type Post struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	AuthorID   uint                        `gorm:"not null;index" json:"author_id"`
	Content    string                      `gorm:"type:text;not null" json:"content"`
	MediaRefs  datatypes.JSONSlice[string] `json:"media_refs"`
	MediaKind  MediaKind                   `gorm:"type:varchar(10);not null;default:'none'" json:"media_kind"`
	Visibility Visibility                  `gorm:"type:varchar(16);not null;default:'public';index" json:"visibility"`
	GroupID    *uint                       `gorm:"index" json:"group_id,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// IsLiked and IsSaved are relative to the requesting doctor (computed)
	IsLiked   bool      `gorm:"->;-:migration" json:"is_liked"`
	IsSaved   bool      `gorm:"->;-:migration" json:"is_saved"`
	Poll      *Poll     `gorm:"-" json:"poll,omitempty"`
	Hashtags  []string  `gorm:"-" json:"hashtags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessibleTo reports whether the post's visibility admits doctorID. Group
// membership is checked separately.
func (p *Post) AccessibleTo(doctorID uint) bool {
	return p.Visibility == VisibilityPublic || p.AuthorID == doctorID
}
