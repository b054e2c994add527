package models

import "time"

// OneTimeCode is the single active verification code for a phone number.
// Only a bcrypt hash of the code is persisted.
type OneTimeCode struct {
	PhoneNumber string    `gorm:"primaryKey;type:varchar(20)"`
	CodeHash    string    `gorm:"type:varchar(100);not null"`
	IssuedAt    time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
