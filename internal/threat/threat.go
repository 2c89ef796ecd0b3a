// Package threat derives rolling per-zone threat levels from alert history.
package threat

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
)

const (
	// Window is how far back alerts contribute to a zone's threat level.
	Window = 2 * time.Hour

	// baselineCeiling bounds the synthesized idle level: [0, baselineCeiling).
	baselineCeiling = 30
)

// Level returns the threat level of zoneID at now: the rounded mean threat
// score of the zone's alerts created within Window, resolved or not. Alerts
// without a score count as zero. With no recent alerts it returns a baseline
// in [0,30) drawn from random, which must return values in [0,1).
func Level(alerts []models.Alert, zoneID int64, now time.Time, random func() float64) int {
	cutoff := now.Add(-Window)

	var sum, n int
	for _, a := range alerts {
		if a.ZoneID == nil || *a.ZoneID != zoneID {
			continue
		}
		if !a.CreatedAt.After(cutoff) {
			continue
		}
		if a.ThreatLevel != nil {
			sum += *a.ThreatLevel
		}
		n++
	}

	if n == 0 {
		return int(math.Floor(random() * baselineCeiling))
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// Source is the read side of the state store used by the aggregator.
type Source interface {
	ListZones() []models.Zone
	AlertsForZone(zoneID int64) []models.Alert
}

// Aggregator computes threat levels for every zone on demand.
type Aggregator struct {
	source Source
	now    func() time.Time

	mu     sync.Mutex
	random func() float64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the reference clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithRandom overrides the baseline random source. It is called under a lock,
// so a non-concurrent generator such as (*rand.Rand).Float64 is fine.
func WithRandom(random func() float64) Option {
	return func(a *Aggregator) {
		a.random = random
	}
}

// NewAggregator creates an aggregator over source.
func NewAggregator(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		now:    time.Now,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Levels returns one entry per zone, in zone id order.
func (a *Aggregator) Levels() []models.ThreatLevel {
	zones := a.source.ListZones()
	now := a.now()

	levels := make([]models.ThreatLevel, 0, len(zones))
	for _, z := range zones {
		alerts := a.source.AlertsForZone(z.ID)
		levels = append(levels, models.ThreatLevel{
			ZoneID:      z.ID,
			ZoneName:    z.Name,
			ThreatLevel: a.level(alerts, z.ID, now),
		})
	}
	return levels
}

func (a *Aggregator) level(alerts []models.Alert, zoneID int64, now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Level(alerts, zoneID, now, a.random)
}
