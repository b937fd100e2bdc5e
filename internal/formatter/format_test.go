package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_PlainTextPassesThrough(t *testing.T) {
	assert.Equal(t, "hello", Format("hello"))
	assert.Equal(t, "", Format(""))
	assert.Equal(t, `{"urgency": "LOW"`, Format(`{"urgency": "LOW"`))
}

func TestFormat_NonObjectJSONPassesThrough(t *testing.T) {
	for _, raw := range []string{`42`, `"quoted"`, `["a","b"]`, `null`, `true`} {
		assert.Equal(t, raw, Format(raw), raw)
	}
}

func TestFormat_UnknownKeysOnlyFallsBackToRecordString(t *testing.T) {
	out := Format(`{"mood": "calm", "score": 3}`)
	assert.Equal(t, `{"mood":"calm","score":3}`, out)

	// present but unusable values count as absent
	out = Format(`{"possible_causes": [], "anatomical_name": 12}`)
	assert.Equal(t, `{"anatomical_name":12,"possible_causes":[]}`, out)
}

func TestFormat_ConfidenceBeforeUrgencyWithoutBullets(t *testing.T) {
	out := Format(`{"confidence_score": 80, "urgency": "EMERGENCY"}`)

	assert.Equal(t, "🟢 Confidence: 80%\n🚨 Urgency: EMERGENCY", out)
	assert.Less(t, strings.Index(out, MarkerConfidenceHigh), strings.Index(out, MarkerEmergency))
	assert.NotContains(t, out, bullet)
}

func TestConfidenceMarker_Thresholds(t *testing.T) {
	cases := map[int]string{
		0:   MarkerConfidenceLow,
		49:  MarkerConfidenceLow,
		50:  MarkerConfidenceMedium,
		74:  MarkerConfidenceMedium,
		75:  MarkerConfidenceHigh,
		100: MarkerConfidenceHigh,
	}
	for score, want := range cases {
		assert.Equal(t, want, ConfidenceMarker(score), "score %d", score)
	}
}

func TestUrgencyMarker_Tiers(t *testing.T) {
	assert.Equal(t, MarkerEmergency, UrgencyMarker("EMERGENCY"))
	assert.Equal(t, MarkerHigh, UrgencyMarker("HIGH"))
	assert.Equal(t, MarkerMedium, UrgencyMarker("medium"))
	assert.Equal(t, MarkerInfo, UrgencyMarker("LOW"))
	assert.Equal(t, MarkerInfo, UrgencyMarker("whatever"))
}

func TestFormat_FullEnvelopeSectionOrder(t *testing.T) {
	raw := `{
		"disclaimer": "This is not medical advice.",
		"sources": [{"title": "Mayo Clinic", "link": "https://mayo.example", "excerpt": "Rest helps"}, {"title": "WHO"}],
		"recommended_tests": ["X-ray"],
		"diet_suggestions": ["Omega-3"],
		"yoga_suggestions": ["Child's pose"],
		"self_care": ["rest", "ice"],
		"red_flags": ["Numbness"],
		"possible_causes": ["Strain", "Arthritis"],
		"urgency": "MEDIUM",
		"confidence_score": 62,
		"anatomical_name": "Genu (knee)",
		"unrelated": true
	}`

	want := strings.Join([]string{
		"**Genu (knee)**",
		"🟡 Confidence: 62%\n⚡ Urgency: MEDIUM",
		"**Possible Causes:**\n• Strain\n• Arthritis",
		"🚩 **Red Flags (Seek immediate medical attention):**\n• Numbness",
		"**Self-Care Suggestions:**\n• rest\n• ice",
		"🧘 **Yoga Suggestions:**\n• Child's pose",
		"🥗 **Diet Suggestions:**\n• Omega-3",
		"🔬 **Recommended Tests:**\n• X-ray",
		"📚 **Sources:**\n1. Mayo Clinic - \"Rest helps\"\n2. WHO",
		"⚕️ **This is not medical advice.**",
	}, "\n\n")

	assert.Equal(t, want, Format(raw))
}

func TestFormat_DisclaimerIsLast(t *testing.T) {
	out := Format(`{"disclaimer": "Consult a professional.", "self_care": ["sleep"]}`)
	require.True(t, strings.HasSuffix(out, "⚕️ **Consult a professional.**"))
	assert.True(t, strings.HasPrefix(out, "**Self-Care Suggestions:**"))
}

func TestDecode_IsTotal(t *testing.T) {
	a, ok := Decode(map[string]any{
		"confidence_score": "70%",
		"urgency":          "high",
		"self_care":        []any{"walk", 3.0, nil, map[string]any{}, "  "},
		"sources":          []any{"NIH", map[string]any{"link": "https://x.example"}, map[string]any{}},
		"red_flags":        "not a list",
	})
	require.True(t, ok)
	require.NotNil(t, a.Confidence)
	assert.Equal(t, 70, *a.Confidence)
	assert.Equal(t, "HIGH", a.Urgency)
	assert.Equal(t, []string{"walk", "3"}, a.SelfCare)
	assert.Equal(t, []Source{{Title: "NIH"}, {Title: "https://x.example", Link: "https://x.example"}}, a.Sources)
	assert.Nil(t, a.RedFlags)

	_, ok = Decode(map[string]any{})
	assert.False(t, ok)
}

func TestFormat_ZeroConfidenceIsPresent(t *testing.T) {
	assert.Equal(t, "🔴 Confidence: 0%", Format(`{"confidence_score": 0}`))
}
