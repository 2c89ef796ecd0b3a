package models

import "time"

// ActivityType represents the type of activity recorded in the journal.
type ActivityType string

const (
	ActivityTypeAlertCreated  ActivityType = "alert_created"
	ActivityTypeAlertResolved ActivityType = "alert_resolved"
	ActivityTypeZoneCreated   ActivityType = "zone_created"
	ActivityTypeZoneUpdated   ActivityType = "zone_updated"
	ActivityTypeZoneDeleted   ActivityType = "zone_deleted"
)

// ActivityTypeFor maps a broadcast event type to its journal activity type.
func ActivityTypeFor(t EventType) (ActivityType, bool) {
	switch t {
	case EventNewAlert:
		return ActivityTypeAlertCreated, true
	case EventAlertResolved:
		return ActivityTypeAlertResolved, true
	case EventZoneCreated:
		return ActivityTypeZoneCreated, true
	case EventZoneUpdated:
		return ActivityTypeZoneUpdated, true
	case EventZoneDeleted:
		return ActivityTypeZoneDeleted, true
	default:
		return "", false
	}
}

// ActivityLog represents a journaled state change.
type ActivityLog struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	ActivityType ActivityType           `json:"activity_type"`
	ZoneID       *int64                 `json:"zone_id,omitempty"`
	AlertID      *int64                 `json:"alert_id,omitempty"`
	Message      string                 `json:"message"`
	Details      map[string]interface{} `json:"details,omitempty"`
}
