package models

import "time"

// Like represents a doctor's like on a post.
// The row's existence is the state; the pair is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_doctor" json:"post_id"`
	DoctorID  uint      `gorm:"not null;uniqueIndex:idx_like_post_doctor;index" json:"doctor_id"`
	Post      *Post     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Save represents a doctor bookmarking a post.
type Save struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_save_post_doctor" json:"post_id"`
	DoctorID  uint      `gorm:"not null;uniqueIndex:idx_save_post_doctor;index" json:"doctor_id"`
	Post      *Post     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike represents a doctor's like on a comment or reply.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_doctor" json:"comment_id"`
	DoctorID  uint      `gorm:"not null;uniqueIndex:idx_comment_like_doctor;index" json:"doctor_id"`
	Comment   *Comment  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ToggleIntent is the requested end state of a like or save toggle.
type ToggleIntent string

const (
	IntentOn  ToggleIntent = "on"
	IntentOff ToggleIntent = "off"
)
