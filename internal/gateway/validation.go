package gateway

import (
	"fmt"
	"math"
	"strings"

	"github.com/STRATINT/zonewatch/internal/models"
)

const maxZoneNameLen = 100

// ValidationError represents a malformed request payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateZoneInput validates a zone creation payload.
func ValidateZoneInput(in models.ZoneInput) error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateLatitude(in.Latitude); err != nil {
		return err
	}
	if err := validateLongitude(in.Longitude); err != nil {
		return err
	}
	if err := validateRadius(in.Radius); err != nil {
		return err
	}
	return validateThreshold(in.AlertThreshold)
}

// ValidateZonePatch validates the fields present in a partial update. A patch
// that changes nothing is rejected.
func ValidateZonePatch(p models.ZonePatch) error {
	if p.IsEmpty() {
		return ValidationError{Field: "body", Message: "At least one zone field is required"}
	}
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Latitude != nil {
		if err := validateLatitude(*p.Latitude); err != nil {
			return err
		}
	}
	if p.Longitude != nil {
		if err := validateLongitude(*p.Longitude); err != nil {
			return err
		}
	}
	if p.Radius != nil {
		if err := validateRadius(*p.Radius); err != nil {
			return err
		}
	}
	if p.AlertThreshold != nil {
		return validateThreshold(*p.AlertThreshold)
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "Name is required"}
	}
	if len([]rune(name)) > maxZoneNameLen {
		return ValidationError{Field: "name", Message: fmt.Sprintf("Name must be at most %d characters", maxZoneNameLen)}
	}
	return nil
}

func validateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ValidationError{Field: "latitude", Message: "Latitude must be between -90 and 90"}
	}
	return nil
}

func validateLongitude(lon float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return ValidationError{Field: "longitude", Message: "Longitude must be between -180 and 180"}
	}
	return nil
}

func validateRadius(radius int) error {
	if radius <= 0 {
		return ValidationError{Field: "radius", Message: "Radius must be a positive number of meters"}
	}
	return nil
}

func validateThreshold(t models.Threshold) error {
	if !t.Valid() {
		return ValidationError{Field: "alertThreshold", Message: "Alert threshold must be one of low, medium, high"}
	}
	return nil
}
