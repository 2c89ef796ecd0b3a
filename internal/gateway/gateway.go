// Package gateway is the synchronous query and mutation surface over the state
// store. Every successful mutation is published to the broadcast hub after it
// has been committed.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/STRATINT/zonewatch/internal/store"
	"github.com/STRATINT/zonewatch/internal/threat"
)

// ErrNotFound is returned when a referenced zone or alert does not exist.
var ErrNotFound = store.ErrNotFound

// Publisher receives committed state changes.
type Publisher interface {
	Publish(evt models.Event)
}

// Probe reports the connectivity of an external dependency for the status
// endpoint, e.g. "connected" or "disconnected".
type Probe func(ctx context.Context) string

// Service implements the request gateway.
type Service struct {
	store     *store.Store
	publisher Publisher
	threats   *threat.Aggregator
	probes    map[string]Probe
	logger    *slog.Logger
	started   time.Time
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithProbe registers a named dependency reported by Status.
func WithProbe(name string, p Probe) Option {
	return func(s *Service) {
		s.probes[name] = p
	}
}

// WithClock overrides the clock used for status timestamps and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a gateway over st that publishes to pub.
func NewService(st *store.Store, pub Publisher, threats *threat.Aggregator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		publisher: pub,
		threats:   threats,
		probes:    make(map[string]Probe),
		logger:    logger.With("component", "gateway"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	return s
}

// ListZones returns all zones ordered by id.
func (s *Service) ListZones() []models.Zone {
	return s.store.ListZones()
}

// GetZone returns one zone.
func (s *Service) GetZone(id int64) (models.Zone, error) {
	return s.store.GetZone(id)
}

// CreateZone validates and stores a new zone, then publishes ZONE_CREATED.
func (s *Service) CreateZone(in models.ZoneInput) (models.Zone, error) {
	if err := ValidateZoneInput(in); err != nil {
		return models.Zone{}, err
	}
	in.Name = strings.TrimSpace(in.Name)

	zone := s.store.CreateZone(in)
	s.publisher.Publish(models.ZoneCreatedEvent(zone))

	s.logger.Info("Zone created", "zone_id", zone.ID, "name", zone.Name, "threshold", zone.AlertThreshold)
	return zone, nil
}

// UpdateZone applies a partial update, then publishes ZONE_UPDATED.
func (s *Service) UpdateZone(id int64, patch models.ZonePatch) (models.Zone, error) {
	if err := ValidateZonePatch(patch); err != nil {
		return models.Zone{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	zone, err := s.store.UpdateZone(id, patch)
	if err != nil {
		return models.Zone{}, err
	}
	s.publisher.Publish(models.ZoneUpdatedEvent(zone))

	s.logger.Info("Zone updated", "zone_id", zone.ID)
	return zone, nil
}

// DeleteZone removes a zone, then publishes ZONE_DELETED. Its alerts remain.
func (s *Service) DeleteZone(id int64) error {
	if !s.store.DeleteZone(id) {
		return fmt.Errorf("zone %d: %w", id, ErrNotFound)
	}
	s.publisher.Publish(models.ZoneDeletedEvent(id))

	s.logger.Info("Zone deleted", "zone_id", id)
	return nil
}

// ListAlerts returns the most recent alerts first. limit <= 0 returns all.
func (s *Service) ListAlerts(limit int) []models.Alert {
	return s.store.ListAlerts(limit)
}

// ResolveAlert marks an alert resolved and publishes ALERT_RESOLVED. Resolving
// an already resolved alert succeeds and publishes again.
func (s *Service) ResolveAlert(id int64) (models.Alert, error) {
	alert, err := s.store.ResolveAlert(id)
	if err != nil {
		return models.Alert{}, err
	}
	s.publisher.Publish(models.AlertResolvedEvent(alert))

	s.logger.Info("Alert resolved", "alert_id", id)
	return alert, nil
}

// Metrics returns the current metrics snapshot.
func (s *Service) Metrics() models.Metrics {
	return s.store.Metrics()
}

// ThreatLevels returns the rolling threat level of every zone.
func (s *Service) ThreatLevels() []models.ThreatLevel {
	return s.threats.Levels()
}

// Status reports liveness, dependency connectivity and process uptime.
func (s *Service) Status(ctx context.Context) models.Status {
	apis := make(map[string]string, len(s.probes))
	for name, probe := range s.probes {
		apis[name] = probe(ctx)
	}

	now := s.now()
	return models.Status{
		Status:    "operational",
		APIs:      apis,
		Uptime:    now.Sub(s.started).Seconds(),
		Timestamp: now,
	}
}
