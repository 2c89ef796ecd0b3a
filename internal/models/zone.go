package models

import "time"

// Threshold is the alert sensitivity of a zone. Higher thresholds make the
// simulator more likely to raise an alert for the zone on each tick.
type Threshold string

const (
	ThresholdLow    Threshold = "low"
	ThresholdMedium Threshold = "medium"
	ThresholdHigh   Threshold = "high"
)

// Valid reports whether t is one of the known thresholds.
func (t Threshold) Valid() bool {
	switch t {
	case ThresholdLow, ThresholdMedium, ThresholdHigh:
		return true
	default:
		return false
	}
}

// Zone is a monitored geographic area.
type Zone struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Radius         int       `json:"radius"` // meters
	AlertThreshold Threshold `json:"alertThreshold"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ZoneInput is the payload used to create a zone. IsActive defaults to true.
type ZoneInput struct {
	Name           string    `json:"name"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Radius         int       `json:"radius"`
	AlertThreshold Threshold `json:"alertThreshold"`
	IsActive       *bool     `json:"isActive,omitempty"`
}

// ZonePatch is a partial zone update. Nil fields are left untouched.
type ZonePatch struct {
	Name           *string    `json:"name,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Radius         *int       `json:"radius,omitempty"`
	AlertThreshold *Threshold `json:"alertThreshold,omitempty"`
	IsActive       *bool      `json:"isActive,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ZonePatch) IsEmpty() bool {
	return p.Name == nil && p.Latitude == nil && p.Longitude == nil &&
		p.Radius == nil && p.AlertThreshold == nil && p.IsActive == nil
}

// Apply merges the non-nil patch fields into z. ID and CreatedAt are never touched.
func (p ZonePatch) Apply(z *Zone) {
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.Latitude != nil {
		z.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		z.Longitude = *p.Longitude
	}
	if p.Radius != nil {
		z.Radius = *p.Radius
	}
	if p.AlertThreshold != nil {
		z.AlertThreshold = *p.AlertThreshold
	}
	if p.IsActive != nil {
		z.IsActive = *p.IsActive
	}
}
