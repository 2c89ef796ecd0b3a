package store

import "github.com/STRATINT/zonewatch/internal/models"

// DefaultZones is the fixed zone set a fresh process starts with.
var DefaultZones = []models.ZoneInput{
	{Name: "Zone Alpha", Latitude: 48.8566, Longitude: 2.3522, Radius: 500, AlertThreshold: models.ThresholdHigh},
	{Name: "Zone Beta", Latitude: 48.8606, Longitude: 2.3376, Radius: 300, AlertThreshold: models.ThresholdMedium},
	{Name: "Zone Gamma", Latitude: 48.8534, Longitude: 2.3488, Radius: 400, AlertThreshold: models.ThresholdLow},
	{Name: "Zone Delta", Latitude: 48.8584, Longitude: 2.3558, Radius: 350, AlertThreshold: models.ThresholdMedium},
}

const initialUptime = 99.9

// Bootstrap returns a store seeded with DefaultZones and an initial metrics
// snapshot reflecting them with zero alerts.
func Bootstrap(opts ...Option) *Store {
	s := New(opts...)
	for _, z := range DefaultZones {
		s.CreateZone(z)
	}
	s.ReplaceMetrics(models.MetricsValues{
		ActiveZones:  s.ActiveZoneCount(),
		SystemUptime: initialUptime,
	})
	return s
}
