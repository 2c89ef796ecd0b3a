package models

import "time"

// AlertKind is the severity classification of an alert.
type AlertKind string

const (
	AlertKindCritical AlertKind = "critical"
	AlertKindWarning  AlertKind = "warning"
	AlertKindInfo     AlertKind = "info"
)

// Valid reports whether k is one of the known alert kinds.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindCritical, AlertKindWarning, AlertKindInfo:
		return true
	default:
		return false
	}
}

// Alert is a classified event, usually attributed to a zone. ZoneID keeps the
// last-known zone id even after that zone is deleted.
type Alert struct {
	ID          int64     `json:"id"`
	ZoneID      *int64    `json:"zoneId"`
	Kind        AlertKind `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Analysis    *string   `json:"aiAnalysis"`
	Confidence  *float64  `json:"confidence"`
	ThreatLevel *int      `json:"threatLevel"` // 0-100
	IsResolved  bool      `json:"isResolved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewAlert is the insertion payload for an alert. The store assigns the id and
// creation timestamp.
type NewAlert struct {
	ZoneID      *int64
	Kind        AlertKind
	Title       string
	Description string
	Analysis    *string
	Confidence  *float64
	ThreatLevel *int
}

// Analysis is the verdict produced by a severity classifier.
type Analysis struct {
	Kind            AlertKind `json:"type"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Recommendations []string  `json:"recommendations"`
	ThreatLevel     int       `json:"threatLevel"` // 0-100
	Confidence      float64   `json:"confidence"`  // 0-1
}
