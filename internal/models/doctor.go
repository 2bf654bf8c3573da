// Package models contains data structures for the application's domain models.
package models

import "time"

// Doctor is a platform member. Credentials live with the identity provider.
type Doctor struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:160;not null" json:"name"`
	Specialty  string    `gorm:"size:120" json:"specialty"`
	IsVerified bool      `gorm:"not null;default:false;index" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PushToken is a device token registered by a doctor for push delivery.
type PushToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DoctorID  uint      `gorm:"not null;index" json:"doctor_id"`
	Token     string    `gorm:"size:512;not null;uniqueIndex" json:"token"`
	Platform  string    `gorm:"size:16" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}
