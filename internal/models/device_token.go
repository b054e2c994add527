package models

import "time"

// DevicePlatform identifies the push platform a device token belongs to.
type DevicePlatform string

const (
	DevicePlatformAndroid DevicePlatform = "android"
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformWeb     DevicePlatform = "web"
)

// DeviceToken is a registered push channel. A user may own many; a token belongs to one user.
type DeviceToken struct {
	BaseModel

	UserID     string         `gorm:"type:varchar(64);not null;index" json:"userId"`
	Token      string         `gorm:"type:varchar(512);not null;uniqueIndex" json:"-"`
	Platform   DevicePlatform `gorm:"type:varchar(16);not null" json:"platform"`
	LastUsedAt time.Time      `json:"lastUsedAt"`
}

// Valid reports whether p is a supported platform.
func (p DevicePlatform) Valid() bool {
	switch p {
	case DevicePlatformAndroid, DevicePlatformIOS, DevicePlatformWeb:
		return true
	default:
		return false
	}
}
