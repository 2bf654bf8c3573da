package models

import "time"

// GroupPrivacy controls who may post into a group.
type GroupPrivacy string

const (
	GroupPrivacyPublic  GroupPrivacy = "public"
	GroupPrivacyPrivate GroupPrivacy = "private"
)

// Group is a community of doctors that posts can be scoped to.
type Group struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"size:120;not null" json:"name"`
	Privacy   GroupPrivacy `gorm:"type:varchar(16);not null;default:'public'" json:"privacy"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// GroupMember maps doctors to groups.
type GroupMember struct {
	GroupID   uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	DoctorID  uint      `gorm:"primaryKey;autoIncrement:false" json:"doctor_id"`
	CreatedAt time.Time `json:"created_at"`
}
