package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/STRATINT/zonewatch/internal/hub"
	"github.com/STRATINT/zonewatch/internal/logging"
	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/STRATINT/zonewatch/internal/store"
	"github.com/STRATINT/zonewatch/internal/threat"
)

// committedCheck asserts, at publish time, that the event's entity is already
// visible in the store.
type committedCheck struct {
	t      *testing.T
	store  *store.Store
	events []models.Event
}

func (c *committedCheck) Publish(evt models.Event) {
	c.t.Helper()
	c.events = append(c.events, evt)

	switch data := evt.Data.(type) {
	case models.Zone:
		got, err := c.store.GetZone(data.ID)
		if err != nil {
			c.t.Errorf("%s published before zone %d was stored: %v", evt.Type, data.ID, err)
		} else if got != data {
			c.t.Errorf("%s published %+v but store holds %+v", evt.Type, data, got)
		}
	case models.ZoneDeleted:
		if _, err := c.store.GetZone(data.ID); !errors.Is(err, store.ErrNotFound) {
			c.t.Errorf("ZONE_DELETED published while zone %d still stored", data.ID)
		}
	case models.Alert:
		got, err := c.store.GetAlert(data.ID)
		if err != nil || !got.IsResolved {
			c.t.Errorf("ALERT_RESOLVED published before alert %d was resolved", data.ID)
		}
	}
}

func newTestService(t *testing.T) (*Service, *store.Store, *committedCheck) {
	t.Helper()
	st := store.New()
	pub := &committedCheck{t: t, store: st}
	svc := NewService(st, pub, threat.NewAggregator(st), logging.Discard())
	return svc, st, pub
}

func validZone() models.ZoneInput {
	return models.ZoneInput{
		Name:           "Zone Test",
		Latitude:       48.0,
		Longitude:      2.0,
		Radius:         200,
		AlertThreshold: models.ThresholdHigh,
	}
}

func TestCreateZoneEndToEnd(t *testing.T) {
	st := store.New()
	h := hub.New(logging.Discard())
	svc := NewService(st, h, threat.NewAggregator(st), logging.Discard())

	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	zone, err := svc.CreateZone(validZone())
	if err != nil {
		t.Fatalf("CreateZone returned error: %v", err)
	}
	if zone.ID == 0 || !zone.IsActive {
		t.Fatalf("expected fresh active zone, got %+v", zone)
	}

	select {
	case evt := <-sub.Events():
		if evt.Type != models.EventZoneCreated {
			t.Fatalf("first event = %s, want ZONE_CREATED", evt.Type)
		}
		got, ok := evt.Data.(models.Zone)
		if !ok || got.ID != zone.ID {
			t.Fatalf("event carries %+v, want zone %d", evt.Data, zone.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestCreateZoneValidation(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*models.ZoneInput)
		field string
	}{
		{"blank name", func(in *models.ZoneInput) { in.Name = "   " }, "name"},
		{"latitude too high", func(in *models.ZoneInput) { in.Latitude = 90.5 }, "latitude"},
		{"longitude too low", func(in *models.ZoneInput) { in.Longitude = -181 }, "longitude"},
		{"zero radius", func(in *models.ZoneInput) { in.Radius = 0 }, "radius"},
		{"unknown threshold", func(in *models.ZoneInput) { in.AlertThreshold = "extreme" }, "alertThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, pub := newTestService(t)
			in := validZone()
			tt.mod(&in)

			_, err := svc.CreateZone(in)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if len(st.ListZones()) != 0 {
				t.Error("invalid zone reached the store")
			}
			if len(pub.events) != 0 {
				t.Error("invalid create published an event")
			}
		})
	}
}

func TestUpdateZone(t *testing.T) {
	svc, _, pub := newTestService(t)
	zone, _ := svc.CreateZone(validZone())

	name := "  Renamed  "
	radius := 900
	updated, err := svc.UpdateZone(zone.ID, models.ZonePatch{Name: &name, Radius: &radius})
	if err != nil {
		t.Fatalf("UpdateZone returned error: %v", err)
	}
	if updated.Name != "Renamed" || updated.Radius != 900 || updated.Latitude != zone.Latitude {
		t.Errorf("unexpected merge result %+v", updated)
	}
	if updated.ID != zone.ID || !updated.CreatedAt.Equal(zone.CreatedAt) {
		t.Error("update changed identity fields")
	}
	if last := pub.events[len(pub.events)-1]; last.Type != models.EventZoneUpdated {
		t.Errorf("last event = %s, want ZONE_UPDATED", last.Type)
	}

	bad := 120.0
	if _, err := svc.UpdateZone(zone.ID, models.ZonePatch{Latitude: &bad}); !errors.As(err, new(ValidationError)) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	before := len(pub.events)
	if _, err := svc.UpdateZone(999, models.ZonePatch{Radius: &radius}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != before {
		t.Error("failed update published an event")
	}
}

func TestUpdateZoneRejectsEmptyPatch(t *testing.T) {
	svc, _, pub := newTestService(t)
	zone, _ := svc.CreateZone(validZone())
	before := len(pub.events)

	var verr ValidationError
	if _, err := svc.UpdateZone(zone.ID, models.ZonePatch{}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "body" {
		t.Errorf("field = %q, want body", verr.Field)
	}
	if len(pub.events) != before {
		t.Error("empty patch published ZONE_UPDATED")
	}
}

func TestDeleteZoneKeepsAlerts(t *testing.T) {
	svc, st, pub := newTestService(t)
	zone, _ := svc.CreateZone(validZone())
	st.CreateAlert(models.NewAlert{ZoneID: &zone.ID, Kind: models.AlertKindWarning, Title: "t"})

	if err := svc.DeleteZone(zone.ID); err != nil {
		t.Fatalf("DeleteZone returned error: %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != models.EventZoneDeleted || last.Data.(models.ZoneDeleted).ID != zone.ID {
		t.Errorf("unexpected delete event %+v", last)
	}
	if len(st.AlertsForZone(zone.ID)) != 1 {
		t.Error("delete removed historical alerts")
	}

	if err := svc.DeleteZone(zone.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResolveAlert(t *testing.T) {
	svc, st, pub := newTestService(t)
	alert := st.CreateAlert(models.NewAlert{Kind: models.AlertKindCritical, Title: "Breach"})

	for i := 0; i < 2; i++ {
		got, err := svc.ResolveAlert(alert.ID)
		if err != nil {
			t.Fatalf("ResolveAlert #%d returned error: %v", i+1, err)
		}
		if !got.IsResolved {
			t.Fatalf("ResolveAlert #%d returned unresolved alert", i+1)
		}
	}
	if len(pub.events) != 2 || pub.events[0].Type != models.EventAlertResolved {
		t.Errorf("expected two ALERT_RESOLVED events, got %+v", pub.events)
	}

	if _, err := svc.ResolveAlert(404); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadsNeverPublish(t *testing.T) {
	svc, st, pub := newTestService(t)
	st.CreateZone(validZone())

	svc.ListZones()
	svc.ListAlerts(10)
	svc.Metrics()
	svc.ThreatLevels()
	svc.Status(context.Background())
	_, _ = svc.GetZone(1)

	if len(pub.events) != 0 {
		t.Fatalf("reads published %d events", len(pub.events))
	}
}

func TestStatusReportsProbesAndUptime(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	st := store.New()
	svc := NewService(st, &committedCheck{t: t, store: st}, threat.NewAggregator(st), logging.Discard(),
		WithClock(func() time.Time { return clock }),
		WithProbe("openai", func(context.Context) string { return "disconnected" }),
		WithProbe("database", func(context.Context) string { return "connected" }),
	)

	clock = clock.Add(90 * time.Second)
	status := svc.Status(context.Background())

	if status.Status != "operational" {
		t.Errorf("status = %q", status.Status)
	}
	if status.Uptime != 90 {
		t.Errorf("uptime = %v, want 90", status.Uptime)
	}
	if status.APIs["openai"] != "disconnected" || status.APIs["database"] != "connected" {
		t.Errorf("unexpected apis %+v", status.APIs)
	}
	if !status.Timestamp.Equal(clock) {
		t.Errorf("timestamp = %v, want %v", status.Timestamp, clock)
	}
}
