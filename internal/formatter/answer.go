package formatter

import (
	"math"
	"strconv"
	"strings"
)

// Source is one cited reference of an Answer.
type Source struct {
	Title   string
	Link    string
	Excerpt string
}

// Answer is the structured medical-answer envelope. Every field is optional:
// zero values (nil Confidence, empty strings, empty slices) mean absent.
type Answer struct {
	AnatomicalName   string
	Confidence       *int
	Urgency          string
	PossibleCauses   []string
	RedFlags         []string
	SelfCare         []string
	YogaSuggestions  []string
	DietSuggestions  []string
	RecommendedTests []string
	Sources          []Source
	Disclaimer       string
}

// Decode maps a generic JSON record onto an Answer. Unknown keys and values of
// the wrong shape are ignored. The bool reports whether any recognized field
// carried a usable value.
func Decode(record map[string]any) (Answer, bool) {
	var a Answer
	a.AnatomicalName = stringField(record["anatomical_name"])
	a.Confidence = intField(record["confidence_score"])
	a.Urgency = strings.ToUpper(stringField(record["urgency"]))
	a.PossibleCauses = stringList(record["possible_causes"])
	a.RedFlags = stringList(record["red_flags"])
	a.SelfCare = stringList(record["self_care"])
	a.YogaSuggestions = stringList(record["yoga_suggestions"])
	a.DietSuggestions = stringList(record["diet_suggestions"])
	a.RecommendedTests = stringList(record["recommended_tests"])
	a.Sources = sourceList(record["sources"])
	a.Disclaimer = stringField(record["disclaimer"])
	return a, !a.empty()
}

func (a Answer) empty() bool {
	return a.AnatomicalName == "" &&
		a.Confidence == nil &&
		a.Urgency == "" &&
		len(a.PossibleCauses) == 0 &&
		len(a.RedFlags) == 0 &&
		len(a.SelfCare) == 0 &&
		len(a.YogaSuggestions) == 0 &&
		len(a.DietSuggestions) == 0 &&
		len(a.RecommendedTests) == 0 &&
		len(a.Sources) == 0 &&
		a.Disclaimer == ""
}

func stringField(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func intField(v any) *int {
	var n int
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int(math.Round(x))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%")))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sourceList(v any) []Source {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Source, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, Source{Title: s})
			}
		case map[string]any:
			src := Source{
				Title:   stringField(x["title"]),
				Link:    stringField(x["link"]),
				Excerpt: stringField(x["excerpt"]),
			}
			if src.Title == "" {
				src.Title = src.Link
			}
			if src.Title != "" {
				out = append(out, src)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
