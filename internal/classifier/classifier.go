// Package classifier turns a zone's synthetic signal snapshot into a severity
// verdict.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/STRATINT/zonewatch/internal/models"
)

// ErrUnavailable reports that a classifier call failed or returned a verdict
// that could not be used.
var ErrUnavailable = errors.New("classifier unavailable")

const (
	maxTitleLen       = 50
	maxDescriptionLen = 200

	defaultTitle       = "Surveillance Update"
	defaultDescription = "Automated surveillance analysis completed."
	defaultConfidence  = 0.5
)

// Signal is the observation snapshot handed to a classifier.
type Signal struct {
	ZoneName         string
	PopulationDelta  int // percent, signed
	MovementPatterns []string
	Anomalies        []string
}

// Classifier produces a verdict for a signal. Implementations return an error
// wrapping ErrUnavailable when no usable verdict could be produced.
type Classifier interface {
	Classify(ctx context.Context, sig Signal) (models.Analysis, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, sig Signal) (models.Analysis, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, sig Signal) (models.Analysis, error) {
	return f(ctx, sig)
}

// Fallback is the degraded verdict substituted when classification fails.
func Fallback() models.Analysis {
	return models.Analysis{
		Kind:            models.AlertKindInfo,
		Title:           "System Alert",
		Description:     "Automated analysis temporarily unavailable. Manual review recommended.",
		Recommendations: []string{"Review zone manually", "Check system status"},
		ThreatLevel:     25,
		Confidence:      0.1,
	}
}

// Normalize fills missing fields with defaults, clamps confidence to [0,1] and
// threat level to [0,100], and truncates title and description. A kind outside
// the known set is rejected.
func Normalize(a models.Analysis) (models.Analysis, error) {
	if a.Kind == "" {
		a.Kind = models.AlertKindInfo
	}
	a.Kind = models.AlertKind(strings.ToLower(string(a.Kind)))
	if !a.Kind.Valid() {
		return models.Analysis{}, fmt.Errorf("%w: unknown alert type %q", ErrUnavailable, a.Kind)
	}

	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = defaultTitle
	}
	a.Title = truncate(a.Title, maxTitleLen)

	a.Description = strings.TrimSpace(a.Description)
	if a.Description == "" {
		a.Description = defaultDescription
	}
	a.Description = truncate(a.Description, maxDescriptionLen)

	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}

	if a.Confidence == 0 {
		a.Confidence = defaultConfidence
	}
	a.Confidence = clampFloat(a.Confidence, 0, 1)
	a.ThreatLevel = clampInt(a.ThreatLevel, 0, 100)

	return a, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
