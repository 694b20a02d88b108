// Package policy implements the fail-closed forbidden-term filter applied to
// customer-facing generated text.
package policy

import "strings"

// forbiddenCustomerTerms is the fixed deny-list of internal terminology that
// must never reach a customer. Matching is case-insensitive substring
// containment. The trailing space in "ml " is deliberate: it matches the
// standalone token "ml" followed by a space without flagging words like
// "html".
var forbiddenCustomerTerms = []string{
	"shap",
	"xgboost",
	"model",
	"machine learning",
	"ml ",
	"algorithm",
	"feature attribution",
}

// Violates reports whether the generated text contains any forbidden term.
// A violation aborts the whole request; the text is never stripped, masked,
// or regenerated.
func Violates(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range forbiddenCustomerTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
