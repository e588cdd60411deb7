package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the severity of a system-wide notification.
type NotificationType string

const (
	NotifyInfo     NotificationType = "INFO"
	NotifyWarning  NotificationType = "WARNING"
	NotifyError    NotificationType = "ERROR"
	NotifySuccess  NotificationType = "SUCCESS"
	NotifyCritical NotificationType = "CRITICAL"
)

// Notification is a system-wide alert shown to permission-gated viewers.
type Notification struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
	Time    time.Time        `json:"time"`
}

// NewNotification stamps a notification with an id and the current time.
func NewNotification(typ NotificationType, message string) Notification {
	return Notification{
		ID:      uuid.New().String(),
		Message: message,
		Type:    typ,
		Time:    time.Now(),
	}
}
