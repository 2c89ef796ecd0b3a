package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/STRATINT/zonewatch/internal/models"
)

// RuleClassifier produces deterministic verdicts from signal features. It is
// used when no model API key is configured.
type RuleClassifier struct{}

// NewRuleClassifier creates a rule-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify implements Classifier.
func (r *RuleClassifier) Classify(ctx context.Context, sig Signal) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	threat := ruleThreat(sig)

	kind := models.AlertKindInfo
	recs := []string{"Continue routine monitoring"}
	switch {
	case threat >= 70:
		kind = models.AlertKindCritical
		recs = []string{"Dispatch field assessment", "Escalate to duty officer", "Increase sensor coverage"}
	case threat >= 40:
		kind = models.AlertKindWarning
		recs = []string{"Increase monitoring frequency", "Review recent zone activity"}
	}

	lead := "Activity change"
	if len(sig.Anomalies) > 0 {
		lead = capitalize(sig.Anomalies[0])
	}

	confidence := 0.55 + 0.05*float64(len(sig.Anomalies)+len(sig.MovementPatterns))

	return Normalize(models.Analysis{
		Kind:  kind,
		Title: fmt.Sprintf("%s in %s", lead, sig.ZoneName),
		Description: fmt.Sprintf("Population density changed %+d%%. Movement: %s. Anomalies: %s.",
			sig.PopulationDelta,
			joinOrNone(sig.MovementPatterns),
			joinOrNone(sig.Anomalies)),
		Recommendations: recs,
		ThreatLevel:     threat,
		Confidence:      confidence,
	})
}

// ruleThreat scores density swings and anomaly counts.
func ruleThreat(sig Signal) int {
	delta := sig.PopulationDelta
	if delta < 0 {
		delta = -delta
	}
	score := delta/3 + 15*len(sig.Anomalies) + 5*len(sig.MovementPatterns)
	for _, p := range sig.MovementPatterns {
		if strings.Contains(p, "coordinated") || strings.Contains(p, "convergence") {
			score += 10
		}
	}
	return clampInt(score, 0, 100)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
