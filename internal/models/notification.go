package models

import "time"

// NotificationType names the event an in-app notification describes.
type NotificationType string

const (
	NotificationNewPost      NotificationType = "new_post"
	NotificationPostLike     NotificationType = "post_like"
	NotificationPostComment  NotificationType = "post_comment"
	NotificationCommentLike  NotificationType = "comment_like"
	NotificationCommentReply NotificationType = "comment_reply"
)

// PostNotificationTypes lists every type whose SubjectID is a post ID.
var PostNotificationTypes = []NotificationType{
	NotificationNewPost,
	NotificationPostLike,
	NotificationPostComment,
	NotificationCommentLike,
	NotificationCommentReply,
}

// AppNotification is an append-only in-app notice. SubjectID is the post the
// event concerns; CommentID is set for comment-scoped events.
type AppNotification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	Type        NotificationType `gorm:"type:varchar(32);not null;index:idx_notification_subject" json:"type"`
	SubjectID   uint             `gorm:"not null;index:idx_notification_subject" json:"subject_id"`
	CommentID   *uint            `gorm:"index" json:"comment_id,omitempty"`
	Content     string           `gorm:"type:text" json:"content"`
	ActorID     uint             `gorm:"not null" json:"actor_id"`
	Subject     *Post            `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
	Comment     *Comment         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// PushResult reports what a push provider accepted for one dispatch.
type PushResult struct {
	Delivered bool `json:"delivered"`
	Count     int  `json:"count"`
}
