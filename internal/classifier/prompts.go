package classifier

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a military surveillance AI analyst. Provide precise, actionable intelligence assessments in JSON format."

// buildPrompt renders the user message for a signal.
func buildPrompt(sig Signal) string {
	var b strings.Builder
	b.WriteString("Analyze the following surveillance data for military intelligence purposes and generate a contextual alert:\n\n")
	fmt.Fprintf(&b, "Zone: %s\n", sig.ZoneName)
	fmt.Fprintf(&b, "Population Density Change: %d%%\n", sig.PopulationDelta)
	fmt.Fprintf(&b, "Movement Patterns: %s\n", strings.Join(sig.MovementPatterns, ", "))
	fmt.Fprintf(&b, "Detected Anomalies: %s\n\n", strings.Join(sig.Anomalies, ", "))
	b.WriteString(`Provide analysis in JSON format with:
- type: "critical", "warning", or "info"
- title: Brief alert title (max 50 chars)
- description: Detailed analysis (max 200 chars)
- recommendations: Array of actionable recommendations
- threatLevel: Number 0-100 (threat severity)
- confidence: Number 0-1 (analysis confidence)

Focus on patterns indicating coordinated activity, unusual density changes, or suspicious behaviors.
`)
	return b.String()
}
