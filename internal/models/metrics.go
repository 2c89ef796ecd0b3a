package models

import "time"

// Metrics is the current aggregate snapshot. It is replaced in place on every
// recomputation and never historized.
type Metrics struct {
	ActiveZones  int       `json:"activeZones"`
	Alerts24h    int       `json:"alerts24h"`
	AIDetections int       `json:"aiDetections"`
	SystemUptime float64   `json:"systemUptime"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// MetricsValues holds the caller-supplied part of a metrics snapshot.
type MetricsValues struct {
	ActiveZones  int
	Alerts24h    int
	AIDetections int
	SystemUptime float64
}

// ThreatLevel is the derived rolling threat estimate for one zone.
type ThreatLevel struct {
	ZoneID      int64  `json:"zoneId"`
	ZoneName    string `json:"zoneName"`
	ThreatLevel int    `json:"threatLevel"`
}

// Status is the liveness report served to the dashboard.
type Status struct {
	Status    string            `json:"status"`
	APIs      map[string]string `json:"apis"`
	Uptime    float64           `json:"uptime"` // seconds
	Timestamp time.Time         `json:"timestamp"`
}
