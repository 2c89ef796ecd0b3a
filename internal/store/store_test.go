package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testZone(name string) models.ZoneInput {
	return models.ZoneInput{
		Name:           name,
		Latitude:       48.0,
		Longitude:      2.0,
		Radius:         200,
		AlertThreshold: models.ThresholdHigh,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestCreateZone_IDsStrictlyIncreasingAcrossDeletes(t *testing.T) {
	s := New()

	first := s.CreateZone(testZone("one"))
	second := s.CreateZone(testZone("two"))
	if !s.DeleteZone(second.ID) {
		t.Fatal("expected delete of existing zone to succeed")
	}
	third := s.CreateZone(testZone("three"))

	if !(first.ID < second.ID && second.ID < third.ID) {
		t.Fatalf("expected strictly increasing ids, got %d, %d, %d", first.ID, second.ID, third.ID)
	}
	if third.ID == second.ID {
		t.Fatalf("deleted id %d was reused", second.ID)
	}
}

func TestCreateZone_DefaultsActive(t *testing.T) {
	s := New()

	z := s.CreateZone(testZone("Zone Test"))
	if !z.IsActive {
		t.Error("expected zone to default to active")
	}

	inactive := false
	in := testZone("dormant")
	in.IsActive = &inactive
	if s.CreateZone(in).IsActive {
		t.Error("expected explicit isActive=false to be honored")
	}
}

func TestUpdateZone(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	z := s.CreateZone(testZone("original"))

	clock.Set(clock.Now().Add(time.Hour))
	th := models.ThresholdLow
	updated, err := s.UpdateZone(z.ID, models.ZonePatch{AlertThreshold: &th})
	if err != nil {
		t.Fatalf("UpdateZone returned error: %v", err)
	}
	if updated.AlertThreshold != models.ThresholdLow {
		t.Errorf("expected threshold low, got %s", updated.AlertThreshold)
	}
	if updated.Name != "original" {
		t.Errorf("expected name to be preserved, got %q", updated.Name)
	}
	if updated.ID != z.ID || !updated.CreatedAt.Equal(z.CreatedAt) {
		t.Errorf("update changed identity: %+v vs %+v", updated, z)
	}

	got, err := s.GetZone(z.ID)
	if err != nil {
		t.Fatalf("GetZone returned error: %v", err)
	}
	if got != updated {
		t.Errorf("stored zone %+v does not match returned %+v", got, updated)
	}
}

func TestUpdateZone_NotFound(t *testing.T) {
	s := New()
	name := "ghost"
	_, err := s.UpdateZone(42, models.ZonePatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteZone_KeepsAlerts(t *testing.T) {
	s := New()
	z := s.CreateZone(testZone("doomed"))
	a := s.CreateAlert(models.NewAlert{ZoneID: int64Ptr(z.ID), Kind: models.AlertKindWarning, Title: "t"})

	if !s.DeleteZone(z.ID) {
		t.Fatal("expected delete to report existing zone")
	}
	if s.DeleteZone(z.ID) {
		t.Fatal("expected second delete to report missing zone")
	}
	if _, err := s.GetZone(z.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	history := s.AlertsForZone(z.ID)
	if len(history) != 1 || history[0].ID != a.ID {
		t.Fatalf("expected historical alert %d, got %+v", a.ID, history)
	}
	if history[0].ZoneID == nil || *history[0].ZoneID != z.ID {
		t.Fatalf("expected alert to retain zone id %d", z.ID)
	}
}

func TestCreateAlert_DetachedFromCallerAndReaders(t *testing.T) {
	s := New()

	zoneID := int64(1)
	confidence := 0.8
	threat := 40
	analysis := `{"recommendations":[]}`
	a := s.CreateAlert(models.NewAlert{
		ZoneID:      &zoneID,
		Kind:        models.AlertKindWarning,
		Title:       "x",
		Analysis:    &analysis,
		Confidence:  &confidence,
		ThreatLevel: &threat,
	})

	zoneID, confidence, threat, analysis = 99, 0.1, 100, "tampered"
	*a.ThreatLevel = 7

	listed := s.ListAlerts(0)
	*listed[0].Confidence = 0.2

	got, err := s.GetAlert(a.ID)
	if err != nil {
		t.Fatalf("GetAlert returned error: %v", err)
	}
	if *got.ZoneID != 1 || *got.Confidence != 0.8 || *got.ThreatLevel != 40 || *got.Analysis != `{"recommendations":[]}` {
		t.Errorf("stored alert changed through shared pointers: zone=%d conf=%v threat=%d analysis=%q",
			*got.ZoneID, *got.Confidence, *got.ThreatLevel, *got.Analysis)
	}
	if len(s.AlertsForZone(1)) != 1 {
		t.Error("alert no longer attributed to zone 1")
	}
}

func TestResolveAlert_Idempotent(t *testing.T) {
	s := New()
	a := s.CreateAlert(models.NewAlert{Kind: models.AlertKindInfo, Title: "x"})

	for i := 0; i < 2; i++ {
		resolved, err := s.ResolveAlert(a.ID)
		if err != nil {
			t.Fatalf("resolve attempt %d returned error: %v", i+1, err)
		}
		if !resolved.IsResolved {
			t.Fatalf("resolve attempt %d left alert unresolved", i+1)
		}
	}

	got, err := s.GetAlert(a.ID)
	if err != nil {
		t.Fatalf("GetAlert returned error: %v", err)
	}
	if !got.IsResolved {
		t.Error("expected stored alert to be resolved")
	}

	if _, err := s.ResolveAlert(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing alert, got %v", err)
	}
}

func TestListAlerts_OrderedByCreatedAtDescending(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))
	base := clock.Now()
	t1, t2, t3 := base, base.Add(time.Minute), base.Add(2*time.Minute)

	// Insert out of timestamp order.
	clock.Set(t2)
	s.CreateAlert(models.NewAlert{Title: "t2"})
	clock.Set(t3)
	s.CreateAlert(models.NewAlert{Title: "t3"})
	clock.Set(t1)
	s.CreateAlert(models.NewAlert{Title: "t1"})

	alerts := s.ListAlerts(0)
	got := []string{alerts[0].Title, alerts[1].Title, alerts[2].Title}
	want := []string{"t3", "t2", "t1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ListAlerts order = %v, want %v", got, want)
		}
	}
}

func TestListAlerts_TiesBrokenByInsertionOrder(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	first := s.CreateAlert(models.NewAlert{Title: "first"})
	second := s.CreateAlert(models.NewAlert{Title: "second"})
	third := s.CreateAlert(models.NewAlert{Title: "third"})

	alerts := s.ListAlerts(0)
	if alerts[0].ID != third.ID || alerts[1].ID != second.ID || alerts[2].ID != first.ID {
		t.Fatalf("expected ids [%d %d %d], got [%d %d %d]",
			third.ID, second.ID, first.ID, alerts[0].ID, alerts[1].ID, alerts[2].ID)
	}
}

func TestListAlerts_Limit(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.CreateAlert(models.NewAlert{Title: "a"})
	}

	if got := len(s.ListAlerts(3)); got != 3 {
		t.Errorf("expected 3 alerts, got %d", got)
	}
	if got := len(s.ListAlerts(10)); got != 5 {
		t.Errorf("expected all 5 alerts when limit exceeds count, got %d", got)
	}
	if got := len(s.ListAlerts(0)); got != 5 {
		t.Errorf("expected all 5 alerts for zero limit, got %d", got)
	}
}

func TestAlertIDsUniqueAcrossZones(t *testing.T) {
	s := New()
	a := s.CreateZone(testZone("a"))
	b := s.CreateZone(testZone("b"))

	seen := make(map[int64]bool)
	for i := 0; i < 10; i++ {
		zoneID := a.ID
		if i%2 == 1 {
			zoneID = b.ID
		}
		alert := s.CreateAlert(models.NewAlert{ZoneID: int64Ptr(zoneID)})
		if seen[alert.ID] {
			t.Fatalf("alert id %d assigned twice", alert.ID)
		}
		seen[alert.ID] = true
	}
}

func TestReplaceMetrics_StampsLastUpdated(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	later := clock.Now().Add(30 * time.Second)
	clock.Set(later)
	m := s.ReplaceMetrics(models.MetricsValues{ActiveZones: 3, Alerts24h: 2, AIDetections: 5, SystemUptime: 99.8})

	if !m.LastUpdated.Equal(later) {
		t.Errorf("expected lastUpdated %v, got %v", later, m.LastUpdated)
	}
	if s.Metrics() != m {
		t.Errorf("stored metrics %+v differ from returned %+v", s.Metrics(), m)
	}
}

func TestBootstrap(t *testing.T) {
	s := Bootstrap()

	zones := s.ListZones()
	if len(zones) != len(DefaultZones) {
		t.Fatalf("expected %d bootstrap zones, got %d", len(DefaultZones), len(zones))
	}
	for _, z := range zones {
		if z.Name == "" || !z.AlertThreshold.Valid() || z.Radius <= 0 || !z.IsActive {
			t.Errorf("invalid bootstrap zone: %+v", z)
		}
	}

	m := s.Metrics()
	if m.ActiveZones != len(DefaultZones) || m.Alerts24h != 0 || m.AIDetections != 0 {
		t.Errorf("unexpected bootstrap metrics: %+v", m)
	}
}

func TestConcurrentMutationsAndReads(t *testing.T) {
	s := Bootstrap()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				z := s.CreateZone(testZone("c"))
				name := "renamed"
				_, _ = s.UpdateZone(z.ID, models.ZonePatch{Name: &name})
				s.DeleteZone(z.ID)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a := s.CreateAlert(models.NewAlert{ZoneID: int64Ptr(1)})
				_, _ = s.ResolveAlert(a.ID)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.ListZones()
				_ = s.ListAlerts(10)
				_ = s.Metrics()
			}
		}()
	}
	wg.Wait()

	alerts := s.Alerts()
	if len(alerts) != 8*50 {
		t.Fatalf("expected %d alerts, got %d", 8*50, len(alerts))
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i].ID <= alerts[i-1].ID {
			t.Fatalf("alert ids not increasing at %d: %d after %d", i, alerts[i].ID, alerts[i-1].ID)
		}
	}
}
