package models

// EventType names a state change delivered to subscribers.
type EventType string

const (
	EventNewAlert      EventType = "NEW_ALERT"
	EventZoneCreated   EventType = "ZONE_CREATED"
	EventZoneUpdated   EventType = "ZONE_UPDATED"
	EventZoneDeleted   EventType = "ZONE_DELETED"
	EventAlertResolved EventType = "ALERT_RESOLVED"
)

// Event is a single broadcast message. Data carries the full updated entity,
// or a ZoneDeleted for deletions.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// AlertNotification is the NEW_ALERT payload: the stored alert together with
// its owning zone and the analysis that produced it.
type AlertNotification struct {
	Alert
	Zone     Zone     `json:"zone"`
	Analysis Analysis `json:"analysis"`
}

// ZoneDeleted is the ZONE_DELETED payload.
type ZoneDeleted struct {
	ID int64 `json:"id"`
}

// NewAlertEvent builds a NEW_ALERT event.
func NewAlertEvent(alert Alert, zone Zone, analysis Analysis) Event {
	return Event{Type: EventNewAlert, Data: AlertNotification{Alert: alert, Zone: zone, Analysis: analysis}}
}

// ZoneCreatedEvent builds a ZONE_CREATED event.
func ZoneCreatedEvent(zone Zone) Event {
	return Event{Type: EventZoneCreated, Data: zone}
}

// ZoneUpdatedEvent builds a ZONE_UPDATED event.
func ZoneUpdatedEvent(zone Zone) Event {
	return Event{Type: EventZoneUpdated, Data: zone}
}

// ZoneDeletedEvent builds a ZONE_DELETED event.
func ZoneDeletedEvent(id int64) Event {
	return Event{Type: EventZoneDeleted, Data: ZoneDeleted{ID: id}}
}

// AlertResolvedEvent builds an ALERT_RESOLVED event.
func AlertResolvedEvent(alert Alert) Event {
	return Event{Type: EventAlertResolved, Data: alert}
}
