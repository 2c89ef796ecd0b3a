package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/STRATINT/zonewatch/internal/classifier"
	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/STRATINT/zonewatch/internal/threat"
)

// State is the simulator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateTicking
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

const (
	DefaultInterval        = 30 * time.Second
	DefaultClassifyTimeout = 30 * time.Second

	alertWindow = 24 * time.Hour
)

var movementPatterns = []string{
	"coordinated movement",
	"random dispersal",
	"linear formation",
	"circular gathering",
	"rapid displacement",
	"stationary clustering",
	"directional flow",
	"convergence pattern",
}

var anomalyTags = []string{
	"unusual density spike",
	"coordinated timing",
	"pattern deviation",
	"velocity anomaly",
	"group formation",
	"communication patterns",
	"equipment signatures",
	"behavioral clustering",
}

// DetectionProbability is the per-tick chance that a zone with the given
// threshold produces an event.
func DetectionProbability(t models.Threshold) float64 {
	switch t {
	case models.ThresholdHigh:
		return 0.15
	case models.ThresholdMedium:
		return 0.08
	case models.ThresholdLow:
		return 0.03
	default:
		return 0.05
	}
}

// Store is the slice of the state store the simulator writes to.
type Store interface {
	ListZones() []models.Zone
	CreateAlert(in models.NewAlert) models.Alert
	Alerts() []models.Alert
	ReplaceMetrics(v models.MetricsValues) models.Metrics
}

// Publisher receives NEW_ALERT events.
type Publisher interface {
	Publish(evt models.Event)
}

// Observer is notified about tick outcomes.
type Observer interface {
	TickCompleted(report TickReport, elapsed time.Duration)
	ZoneThreatObserved(zone models.Zone, level int)
}

// TickReport summarizes one tick.
type TickReport struct {
	Scanned   int
	Selected  int
	Fallbacks int
	Alerts    []models.Alert
	Metrics   models.Metrics
	Skipped   bool
}

// Simulator periodically scans active zones, classifies synthetic signals,
// and records the resulting alerts.
type Simulator struct {
	store      Store
	publisher  Publisher
	classifier classifier.Classifier
	logger     *slog.Logger
	observer   Observer

	interval        time.Duration
	classifyTimeout time.Duration
	now             func() time.Time

	tickMu sync.Mutex // serializes ticks; guards rng
	rng    *rand.Rand

	state    atomic.Int32
	running  sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClassifyTimeout bounds each classifier call.
func WithClassifyTimeout(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.classifyTimeout = d
		}
	}
}

// WithRand injects the random source used for detection draws and signal
// synthesis.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) {
		s.rng = r
	}
}

// WithClock overrides the clock used for metrics windows.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

// WithObserver registers tick instrumentation.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observer = o
	}
}

// New creates a simulator in the idle state.
func New(store Store, publisher Publisher, c classifier.Classifier, logger *slog.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		store:           store,
		publisher:       publisher,
		classifier:      c,
		logger:          logger.With("component", "simulator"),
		interval:        DefaultInterval,
		classifyTimeout: DefaultClassifyTimeout,
		now:             time.Now,
		rng:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Simulator) State() State {
	return State(s.state.Load())
}

// Start runs the tick loop until Stop is called or ctx is cancelled. The
// first tick fires one interval after Start.
func (s *Simulator) Start(ctx context.Context) {
	s.running.Add(1)
	defer s.running.Done()

	select {
	case <-s.stopChan:
		return
	default:
	}

	s.logger.Info("Starting alert simulator", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// An in-flight tick finishes even if ctx is cancelled mid-scan.
	tickCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ticker.C:
			s.Tick(tickCtx)
		case <-s.stopChan:
			s.logger.Info("Alert simulator stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Alert simulator stopping due to context cancellation")
			return
		}
	}
}

// Stop halts the simulator. It waits for an in-flight tick to finish, after
// which no further ticks run. Stop is idempotent.
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.running.Wait()

	s.tickMu.Lock()
	s.state.Store(int32(StateTerminal))
	s.tickMu.Unlock()
}

// Tick runs one scan. Classifier failures yield fallback alerts; nothing in a
// tick stops future ticks.
func (s *Simulator) Tick(ctx context.Context) TickReport {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateTicking)) {
		return TickReport{Skipped: true}
	}
	defer s.state.CompareAndSwap(int32(StateTicking), int32(StateIdle))

	start := time.Now()
	var report TickReport

	for _, zone := range s.store.ListZones() {
		if !zone.IsActive {
			continue
		}
		report.Scanned++

		if s.rng.Float64() >= DetectionProbability(zone.AlertThreshold) {
			continue
		}
		report.Selected++

		alert, fallback := s.generateAlert(ctx, zone)
		report.Alerts = append(report.Alerts, alert)
		if fallback {
			report.Fallbacks++
		}
	}

	report.Metrics = s.updateMetrics()

	elapsed := time.Since(start)
	s.logger.Debug("Simulation tick complete",
		"scanned", report.Scanned,
		"selected", report.Selected,
		"fallbacks", report.Fallbacks,
		"duration_ms", elapsed.Milliseconds())
	if s.observer != nil {
		s.observer.TickCompleted(report, elapsed)
	}

	return report
}

func (s *Simulator) generateAlert(ctx context.Context, zone models.Zone) (models.Alert, bool) {
	sig := s.synthesize(zone)

	analysis, err := s.classify(ctx, sig)
	fallback := err != nil
	if fallback {
		s.logger.Warn("Classifier unavailable, recording fallback alert",
			"zone_id", zone.ID,
			"zone", zone.Name,
			"error", err)
		analysis = classifier.Fallback()
	}

	confidence := analysis.Confidence
	threatLevel := analysis.ThreatLevel
	zoneID := zone.ID

	alert := s.store.CreateAlert(models.NewAlert{
		ZoneID:      &zoneID,
		Kind:        analysis.Kind,
		Title:       analysis.Title,
		Description: analysis.Description,
		Analysis:    rationale(analysis, sig),
		Confidence:  &confidence,
		ThreatLevel: &threatLevel,
	})

	s.publisher.Publish(models.NewAlertEvent(alert, zone, analysis))

	s.logger.Info("Alert generated",
		"alert_id", alert.ID,
		"zone", zone.Name,
		"type", alert.Kind,
		"title", alert.Title,
		"threat_level", threatLevel)

	return alert, fallback
}

func (s *Simulator) classify(ctx context.Context, sig classifier.Signal) (models.Analysis, error) {
	if s.classifier == nil {
		return models.Analysis{}, classifier.ErrUnavailable
	}

	cctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	analysis, err := s.classifier.Classify(cctx, sig)
	if err != nil {
		if !errors.Is(err, classifier.ErrUnavailable) {
			err = errors.Join(classifier.ErrUnavailable, err)
		}
		return models.Analysis{}, err
	}
	return classifier.Normalize(analysis)
}

func (s *Simulator) synthesize(zone models.Zone) classifier.Signal {
	return classifier.Signal{
		ZoneName:         zone.Name,
		PopulationDelta:  s.rng.IntN(200) - 50,
		MovementPatterns: s.sample(movementPatterns, 1+s.rng.IntN(3)),
		Anomalies:        s.sample(anomalyTags, 1+s.rng.IntN(2)),
	}
}

func (s *Simulator) sample(vocab []string, n int) []string {
	out := make([]string, 0, n)
	for _, i := range s.rng.Perm(len(vocab))[:n] {
		out = append(out, vocab[i])
	}
	return out
}

// rationale is the serialized blob stored on the alert.
func rationale(a models.Analysis, sig classifier.Signal) *string {
	raw, err := json.Marshal(struct {
		Recommendations []string `json:"recommendations"`
		Patterns        []string `json:"patterns"`
		Anomalies       []string `json:"anomalies"`
	}{a.Recommendations, sig.MovementPatterns, sig.Anomalies})
	if err != nil {
		return nil
	}
	blob := string(raw)
	return &blob
}

func (s *Simulator) updateMetrics() models.Metrics {
	now := s.now()
	alerts := s.store.Alerts()
	zones := s.store.ListZones()

	cutoff := now.Add(-alertWindow)
	recent := 0
	for _, a := range alerts {
		if a.CreatedAt.After(cutoff) {
			recent++
		}
	}

	active := 0
	for _, z := range zones {
		if !z.IsActive {
			continue
		}
		active++

		level := threat.Level(alerts, z.ID, now, s.rng.Float64)
		s.logger.Debug("Zone threat level", "zone_id", z.ID, "zone", z.Name, "threat_level", level)
		if s.observer != nil {
			s.observer.ZoneThreatObserved(z, level)
		}
	}

	return s.store.ReplaceMetrics(models.MetricsValues{
		ActiveZones:  active,
		Alerts24h:    recent,
		AIDetections: len(alerts),
		SystemUptime: 99.9 - s.rng.Float64()*0.2,
	})
}
