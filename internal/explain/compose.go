package explain

import "github.com/opensource-finance/capintel/internal/domain"

// Compose assembles the final structured response under the role's
// disclosure policy. It has no side effects and performs no validation of
// its own: the payload was validated at the boundary and the text already
// passed the policy filter where that applies.
func Compose(role domain.Role, payload *domain.FrozenDecisionPayload, text string, suggestions []string) *domain.ExplanationResponse {
	resp := &domain.ExplanationResponse{
		Role:                   role,
		Decision:               payload.Decision,
		Explanation:            text,
		KeyDrivers:             payload.KeyDrivers(),
		ImprovementSuggestions: []string{},
	}

	disclosure, _ := domain.PolicyFor(role)

	if disclosure.DiscloseScore {
		score := payload.RiskScore
		resp.RiskScore = &score
	}

	if disclosure.DeriveSuggestions && suggestions != nil {
		resp.ImprovementSuggestions = suggestions
	}

	return resp
}
