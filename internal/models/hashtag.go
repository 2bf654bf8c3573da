package models

import "time"

// Hashtag is a shared, reference-counted tag. UsageCount equals the number of
// posts currently linked through PostHashtag.
type Hashtag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Tag        string    `gorm:"size:100;not null;uniqueIndex" json:"tag"`
	UsageCount int64     `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostHashtag links a post to a hashtag at most once.
type PostHashtag struct {
	PostID    uint     `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	HashtagID uint     `gorm:"primaryKey;autoIncrement:false;index" json:"hashtag_id"`
	Post      *Post    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Hashtag   *Hashtag `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
