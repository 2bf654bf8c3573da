package models

import "time"

// Comment is a node of a post's comment tree. ParentID is nil for top-level comments.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Body     string `gorm:"type:text;not null" json:"body"`
	ParentID *uint  `gorm:"index" json:"parent_id,omitempty"`
	// Post and Parent only carry the cascading foreign keys
	Post   *Post    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Parent *Comment `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	// LikeCount, ReplyCount and IsLiked are computed per request
	LikeCount  int        `gorm:"-" json:"like_count"`
	ReplyCount int        `gorm:"-" json:"reply_count"`
	IsLiked    bool       `gorm:"-" json:"is_liked"`
	Replies    []*Comment `gorm:"-" json:"replies,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
