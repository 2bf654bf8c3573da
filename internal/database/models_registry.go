package database

import "medfeed/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Doctor{},
		&models.PushToken{},
		&models.Group{},
		&models.GroupMember{},
		&models.Post{},
		&models.Hashtag{},
		&models.PostHashtag{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.Comment{},
		&models.Like{},
		&models.Save{},
		&models.CommentLike{},
		&models.AppNotification{},
	}
}
