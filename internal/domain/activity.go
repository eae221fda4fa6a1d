package domain

import (
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityDeployment ActivityType = "deployment"
	ActivityCode       ActivityType = "code"
	ActivityIncident   ActivityType = "incident"
	ActivityTest       ActivityType = "test"
	ActivityMeeting    ActivityType = "meeting"
)

// Activity запись журнала событий. Журнал только дополняется.
type Activity struct {
	ID          int64        `json:"id"`
	Type        ActivityType `json:"type"`
	Project     string       `json:"project"`
	Description string       `json:"description"`
	Actor       string       `json:"user"`
	Timestamp   time.Time    `json:"timestamp"`
	Status      string       `json:"status"`
}

// Validate проверяет событие, пришедшее извне (например, из Kafka).
func (a Activity) Validate() error {
	switch a.Type {
	case ActivityDeployment, ActivityCode, ActivityIncident, ActivityTest, ActivityMeeting:
	default:
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, a.Type)
	}
	if a.Description == "" {
		return fmt.Errorf("%w: activity without description", ErrInvalidInput)
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("%w: activity without timestamp", ErrInvalidInput)
	}
	return nil
}
