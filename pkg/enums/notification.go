package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderUpdate   NotificationType = "order_update"
	NotificationTypeRiderAssigned NotificationType = "rider_assigned"
	NotificationTypeBidAwarded    NotificationType = "bid_awarded"
	NotificationTypeInvoice       NotificationType = "invoice"
	NotificationTypeFeedback      NotificationType = "feedback"
	NotificationTypeTask          NotificationType = "task"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeRiderAssigned,
	NotificationTypeBidAwarded,
	NotificationTypeInvoice,
	NotificationTypeFeedback,
	NotificationTypeTask,
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
