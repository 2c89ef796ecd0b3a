package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
)

// ErrNotFound is returned when a referenced zone or alert does not exist.
var ErrNotFound = errors.New("not found")

// Store is the in-memory source of truth for zones, alerts and the metrics
// snapshot. Every method is a single critical section and returns copies.
type Store struct {
	mu sync.RWMutex

	zones  map[int64]models.Zone
	alerts []models.Alert // insertion order, which is also id order
	byID   map[int64]int  // alert id -> index into alerts

	metrics models.Metrics

	nextZoneID  int64
	nextAlertID int64

	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for createdAt and lastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns an empty store. Use Bootstrap for the default zone set.
func New(opts ...Option) *Store {
	s := &Store{
		zones:       make(map[int64]models.Zone),
		byID:        make(map[int64]int),
		nextZoneID:  1,
		nextAlertID: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.LastUpdated = s.now()
	return s
}

// ListZones returns all zones ordered by id.
func (s *Store) ListZones() []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zones := make([]models.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		zones = append(zones, z)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })
	return zones
}

// GetZone returns the zone with the given id.
func (s *Store) GetZone(id int64) (models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zones[id]
	if !ok {
		return models.Zone{}, fmt.Errorf("zone %d: %w", id, ErrNotFound)
	}
	return z, nil
}

// ActiveZoneCount returns the number of zones with IsActive set.
func (s *Store) ActiveZoneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, z := range s.zones {
		if z.IsActive {
			count++
		}
	}
	return count
}

// CreateZone assigns the next zone id and stores the zone.
func (s *Store) CreateZone(in models.ZoneInput) models.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	z := models.Zone{
		ID:             s.nextZoneID,
		Name:           in.Name,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Radius:         in.Radius,
		AlertThreshold: in.AlertThreshold,
		IsActive:       active,
		CreatedAt:      s.now(),
	}
	s.nextZoneID++
	s.zones[z.ID] = z
	return z
}

// UpdateZone merges patch into the zone. ID and CreatedAt never change.
func (s *Store) UpdateZone(id int64, patch models.ZonePatch) (models.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zones[id]
	if !ok {
		return models.Zone{}, fmt.Errorf("zone %d: %w", id, ErrNotFound)
	}
	patch.Apply(&z)
	s.zones[id] = z
	return z, nil
}

// DeleteZone removes the zone and reports whether it existed. Alerts that
// reference the zone are left untouched.
func (s *Store) DeleteZone(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.zones[id]; !ok {
		return false
	}
	delete(s.zones, id)
	return true
}

// CreateAlert assigns the next alert id and the creation timestamp.
func (s *Store) CreateAlert(in models.NewAlert) models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := models.Alert{
		ID:          s.nextAlertID,
		ZoneID:      clonePtr(in.ZoneID),
		Kind:        in.Kind,
		Title:       in.Title,
		Description: in.Description,
		Analysis:    clonePtr(in.Analysis),
		Confidence:  clonePtr(in.Confidence),
		ThreatLevel: clonePtr(in.ThreatLevel),
		CreatedAt:   s.now(),
	}
	s.nextAlertID++
	s.byID[a.ID] = len(s.alerts)
	s.alerts = append(s.alerts, a)
	return cloneAlert(a)
}

// GetAlert returns the alert with the given id.
func (s *Store) GetAlert(id int64) (models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return cloneAlert(s.alerts[idx]), nil
}

// ResolveAlert marks the alert resolved. Resolving twice is a no-op success.
func (s *Store) ResolveAlert(id int64) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return models.Alert{}, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	s.alerts[idx].IsResolved = true
	return cloneAlert(s.alerts[idx]), nil
}

// ListAlerts returns alerts most recent first. Ties on createdAt are broken by
// id, higher first. A limit <= 0 returns every alert.
func (s *Store) ListAlerts(limit int) []models.Alert {
	s.mu.RLock()
	out := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		out[len(s.alerts)-1-i] = cloneAlert(a)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// AlertsForZone returns every alert attributed to zoneID, whether or not the
// zone still exists. Order is unspecified.
func (s *Store) AlertsForZone(zoneID int64) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Alert
	for _, a := range s.alerts {
		if a.ZoneID != nil && *a.ZoneID == zoneID {
			out = append(out, cloneAlert(a))
		}
	}
	return out
}

// Alerts returns a copy of every alert in insertion order.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, len(s.alerts))
	for i, a := range s.alerts {
		out[i] = cloneAlert(a)
	}
	return out
}

// Metrics returns the current metrics snapshot.
func (s *Store) Metrics() models.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// ReplaceMetrics overwrites the snapshot and stamps LastUpdated.
func (s *Store) ReplaceMetrics(v models.MetricsValues) models.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = models.Metrics{
		ActiveZones:  v.ActiveZones,
		Alerts24h:    v.Alerts24h,
		AIDetections: v.AIDetections,
		SystemUptime: v.SystemUptime,
		LastUpdated:  s.now(),
	}
	return s.metrics
}

// cloneAlert detaches a's optional fields from the stored alert.
func cloneAlert(a models.Alert) models.Alert {
	a.ZoneID = clonePtr(a.ZoneID)
	a.Analysis = clonePtr(a.Analysis)
	a.Confidence = clonePtr(a.Confidence)
	a.ThreatLevel = clonePtr(a.ThreatLevel)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
