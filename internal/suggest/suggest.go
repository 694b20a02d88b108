// Package suggest derives canned improvement suggestions from the negative
// factor list. The mapping is pure and table-driven; it never consults the
// generated text or any source outside topNegative.
package suggest

import "strings"

const (
	// maxFactorsInspected limits derivation to the most significant
	// negative factors.
	maxFactorsInspected = 3

	// maxSuggestions caps the returned list.
	maxSuggestions = 4
)

// suggestionRule maps factor-name keywords to one canned suggestion.
// Rules are checked in order; the first match wins for a factor.
type suggestionRule struct {
	keywords   []string
	suggestion string
}

var suggestionRules = []suggestionRule{
	{keywords: []string{"util"}, suggestion: "Try to keep credit utilization lower over time."},
	{keywords: []string{"dti", "debt"}, suggestion: "Reduce outstanding debt where possible."},
	{keywords: []string{"history", "credit"}, suggestion: "Build credit history with on-time payments."},
}

// Derive maps the first three negative factors, in their given order, to at
// most one suggestion each. Rules are not cumulative per factor. The result
// is capped at four entries and is never nil.
func Derive(topNegative []string) []string {
	suggestions := make([]string, 0, maxSuggestions)

	factors := topNegative
	if len(factors) > maxFactorsInspected {
		factors = factors[:maxFactorsInspected]
	}

	for _, factor := range factors {
		lowered := strings.ToLower(factor)
		for _, rule := range suggestionRules {
			if matchesAny(lowered, rule.keywords) {
				suggestions = append(suggestions, rule.suggestion)
				break
			}
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

func matchesAny(factor string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(factor, kw) {
			return true
		}
	}
	return false
}
