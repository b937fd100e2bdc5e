// Package formatter renders assistant replies for display. Replies are either
// free text or a JSON medical-answer envelope; envelopes are rendered into a
// fixed section layout, anything else passes through untouched.
package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	MarkerConfidenceHigh   = "🟢"
	MarkerConfidenceMedium = "🟡"
	MarkerConfidenceLow    = "🔴"

	MarkerEmergency = "🚨"
	MarkerHigh      = "⚠️"
	MarkerMedium    = "⚡"
	MarkerInfo      = "ℹ️"

	bullet = "• "
)

// Format returns the display text for a raw assistant reply.
func Format(raw string) string {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	record, ok := v.(map[string]any)
	if !ok {
		return raw
	}
	answer, ok := Decode(record)
	if !ok {
		b, err := json.Marshal(record)
		if err != nil {
			return raw
		}
		return string(b)
	}
	return Render(answer)
}

// ConfidenceMarker tiers a 0-100 score: >=75 high, >=50 medium, else low.
func ConfidenceMarker(score int) string {
	switch {
	case score >= 75:
		return MarkerConfidenceHigh
	case score >= 50:
		return MarkerConfidenceMedium
	default:
		return MarkerConfidenceLow
	}
}

func UrgencyMarker(urgency string) string {
	switch strings.ToUpper(strings.TrimSpace(urgency)) {
	case "EMERGENCY":
		return MarkerEmergency
	case "HIGH":
		return MarkerHigh
	case "MEDIUM":
		return MarkerMedium
	default:
		return MarkerInfo
	}
}

// Render lays out the present sections of a in their fixed order, separated
// by blank lines. The disclaimer, when present, is always last.
func Render(a Answer) string {
	blocks := make([]string, 0, 11)

	if a.AnatomicalName != "" {
		blocks = append(blocks, "**"+a.AnatomicalName+"**")
	}

	assessment := make([]string, 0, 2)
	if a.Confidence != nil {
		assessment = append(assessment, fmt.Sprintf("%s Confidence: %d%%", ConfidenceMarker(*a.Confidence), *a.Confidence))
	}
	if a.Urgency != "" {
		assessment = append(assessment, fmt.Sprintf("%s Urgency: %s", UrgencyMarker(a.Urgency), a.Urgency))
	}
	if len(assessment) > 0 {
		blocks = append(blocks, strings.Join(assessment, "\n"))
	}

	blocks = appendList(blocks, "**Possible Causes:**", a.PossibleCauses)
	blocks = appendList(blocks, "🚩 **Red Flags (Seek immediate medical attention):**", a.RedFlags)
	blocks = appendList(blocks, "**Self-Care Suggestions:**", a.SelfCare)
	blocks = appendList(blocks, "🧘 **Yoga Suggestions:**", a.YogaSuggestions)
	blocks = appendList(blocks, "🥗 **Diet Suggestions:**", a.DietSuggestions)
	blocks = appendList(blocks, "🔬 **Recommended Tests:**", a.RecommendedTests)

	if len(a.Sources) > 0 {
		lines := make([]string, 0, len(a.Sources)+1)
		lines = append(lines, "📚 **Sources:**")
		for i, s := range a.Sources {
			line := strconv.Itoa(i+1) + ". " + s.Title
			if s.Excerpt != "" {
				line += ` - "` + s.Excerpt + `"`
			}
			lines = append(lines, line)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	if a.Disclaimer != "" {
		blocks = append(blocks, "⚕️ **"+a.Disclaimer+"**")
	}

	return strings.Join(blocks, "\n\n")
}

func appendList(blocks []string, heading string, items []string) []string {
	if len(items) == 0 {
		return blocks
	}
	var b strings.Builder
	b.WriteString(heading)
	for _, item := range items {
		b.WriteString("\n")
		b.WriteString(bullet)
		b.WriteString(item)
	}
	return append(blocks, b.String())
}
