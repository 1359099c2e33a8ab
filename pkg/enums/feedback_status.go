package enums

import "fmt"

// FeedbackStatus tracks a customer feedback conversation.
type FeedbackStatus string

const (
	FeedbackStatusOpen    FeedbackStatus = "open"
	FeedbackStatusReplied FeedbackStatus = "replied"
	FeedbackStatusClosed  FeedbackStatus = "closed"
)

var validFeedbackStatuses = []FeedbackStatus{
	FeedbackStatusOpen,
	FeedbackStatusReplied,
	FeedbackStatusClosed,
}

func (s FeedbackStatus) String() string {
	return string(s)
}

func (s FeedbackStatus) IsValid() bool {
	for _, candidate := range validFeedbackStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFeedbackStatus converts raw input into a FeedbackStatus.
func ParseFeedbackStatus(value string) (FeedbackStatus, error) {
	for _, candidate := range validFeedbackStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feedback status %q", value)
}
