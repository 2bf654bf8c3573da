package repository

import (
	"context"

	"medfeed/internal/models"

	"gorm.io/gorm"
)

// GroupRepository answers group privacy and membership questions.
type GroupRepository interface {
	Privacy(ctx context.Context, groupID uint) (models.GroupPrivacy, error)
	IsMember(ctx context.Context, groupID, doctorID uint) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Privacy returns gorm.ErrRecordNotFound when the group does not exist.
func (r *groupRepository) Privacy(ctx context.Context, groupID uint) (models.GroupPrivacy, error) {
	var g models.Group
	if err := r.db.WithContext(ctx).Select("id", "privacy").First(&g, groupID).Error; err != nil {
		return "", err
	}
	return g.Privacy, nil
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, doctorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND doctor_id = ?", groupID, doctorID).
		Count(&n).Error
	return n > 0, err
}
