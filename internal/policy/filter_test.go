package policy

import "testing"

func TestViolates(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"CleanText", "Your application was declined because of high utilization.", false},
		{"SHAP", "The SHAP values indicate high risk.", true},
		{"XGBoostMixedCase", "Our XGBoost classifier flagged this.", true},
		{"Model", "The model scored you highly.", true},
		{"MachineLearning", "We used Machine Learning for this.", true},
		{"Algorithm", "Our algorithm decided.", true},
		{"FeatureAttribution", "Based on feature attribution analysis.", true},
		{"StandaloneMLToken", "ML techniques were involved.", true},
		{"HTMLWithoutTrailingSpace", "The report is rendered as html.", false},
		{"TrailingMLNotFlagged", "The file extension is .ml", false},
		{"Empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Violates(tc.text); got != tc.want {
				t.Errorf("Violates(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
