package models

import (
	"time"

	"gorm.io/datatypes"
)

// Field bounds enforced on create.
const (
	NotificationTitleMaxLength   = 100
	NotificationMessageMaxLength = 500
)

// NotificationType classifies a notification for client rendering.
type NotificationType string

const (
	NotificationTypeInfo      NotificationType = "info"
	NotificationTypeWarning   NotificationType = "warning"
	NotificationTypeSuccess   NotificationType = "success"
	NotificationTypeError     NotificationType = "error"
	NotificationTypePromotion NotificationType = "promotion"
	NotificationTypeSystem    NotificationType = "system"
)

// NotificationStatus is the read state of a notification. It only moves unread -> read.
type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// NotificationPriority orders notifications by urgency.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeInfo, NotificationTypeWarning, NotificationTypeSuccess,
		NotificationTypeError, NotificationTypePromotion, NotificationTypeSystem:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s NotificationStatus) Valid() bool {
	return s == NotificationStatusUnread || s == NotificationStatusRead
}

// Valid reports whether p is a known priority.
func (p NotificationPriority) Valid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh, NotificationPriorityUrgent:
		return true
	}
	return false
}

// Notification is an in-app notification owned by a single recipient.
// ReadAt is nil exactly while Status is unread.
type Notification struct {
	BaseModel

	RecipientID string               `gorm:"type:varchar(64);not null;index:idx_notifications_recipient_status,priority:1" json:"recipientId"`
	Title       string               `gorm:"type:varchar(100);not null" json:"title"`
	Message     string               `gorm:"type:varchar(500);not null" json:"message"`
	Type        NotificationType     `gorm:"type:varchar(16);not null;default:'info'" json:"type"`
	Status      NotificationStatus   `gorm:"type:varchar(16);not null;default:'unread';index:idx_notifications_recipient_status,priority:2" json:"status"`
	Priority    NotificationPriority `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`
	Data        datatypes.JSON       `json:"data"`
	ActionURL   string               `gorm:"type:text" json:"actionUrl"`
	ImageURL    string               `gorm:"type:text" json:"imageUrl"`

	ExpiresAt *time.Time `gorm:"index" json:"expiresAt"`
	ReadAt    *time.Time `json:"readAt"`
}

// IsExpired reports whether the notification's expiry has elapsed at now.
func (n Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}
