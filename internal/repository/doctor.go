package repository

import (
	"context"

	"medfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DoctorRepository reads practitioner identities and their push tokens.
type DoctorRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Doctor, error)
	VerifiedIDsExcept(ctx context.Context, excludeID uint) ([]uint, error)
	VerifiedMemberIDsExcept(ctx context.Context, groupID, excludeID uint) ([]uint, error)
	PushTokens(ctx context.Context, doctorIDs []uint) ([]string, error)
	RegisterPushToken(ctx context.Context, token *models.PushToken) error
}

type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository creates a new DoctorRepository
func NewDoctorRepository(db *gorm.DB) DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) FindByID(ctx context.Context, id uint) (*models.Doctor, error) {
	var d models.Doctor
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepository) VerifiedIDsExcept(ctx context.Context, excludeID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Doctor{}).
		Where("is_verified = ? AND id <> ?", true, excludeID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// VerifiedMemberIDsExcept narrows VerifiedIDsExcept to members of one group.
func (r *doctorRepository) VerifiedMemberIDsExcept(ctx context.Context, groupID, excludeID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Doctor{}).
		Joins("JOIN group_members ON group_members.doctor_id = doctors.id AND group_members.group_id = ?", groupID).
		Where("doctors.is_verified = ? AND doctors.id <> ?", true, excludeID).
		Order("doctors.id ASC").
		Pluck("doctors.id", &ids).Error
	return ids, err
}

func (r *doctorRepository) PushTokens(ctx context.Context, doctorIDs []uint) ([]string, error) {
	var tokens []string
	if len(doctorIDs) == 0 {
		return tokens, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.PushToken{}).
		Where("doctor_id IN ?", doctorIDs).
		Order("id ASC").
		Pluck("token", &tokens).Error
	return tokens, err
}

// RegisterPushToken stores a device token; a token re-registered by another doctor moves to them.
func (r *doctorRepository) RegisterPushToken(ctx context.Context, token *models.PushToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"doctor_id", "platform"}),
	}).Create(token).Error
}
