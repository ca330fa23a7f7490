package enums

import "fmt"

// NotificationType maps to notifications.type.
type NotificationType string

const (
	NotificationTypeVerificationPending NotificationType = "verification_pending"
	NotificationTypeVerificationUpdate  NotificationType = "verification_update"
	NotificationTypeCheckReminder       NotificationType = "check_reminder"
	NotificationTypeAlert               NotificationType = "alert"
	NotificationTypeSystem              NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeVerificationPending,
	NotificationTypeVerificationUpdate,
	NotificationTypeCheckReminder,
	NotificationTypeAlert,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationPriority maps to notifications.priority.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

func (p NotificationPriority) IsValid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh:
		return true
	}
	return false
}
