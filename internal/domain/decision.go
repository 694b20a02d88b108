// Package domain defines the core types and interfaces for CAPINTEL.
package domain

import "fmt"

// Decision is the finalized outcome computed by the upstream scoring layer.
// CAPINTEL never recomputes or reinterprets it.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// Valid reports whether the decision is one of the known outcomes.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Role is the audience tag selecting disclosure policy and tone.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleSupport    Role = "support"
	RoleCompliance Role = "compliance"
)

// ParseRole validates a raw role string against the closed enumeration.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, ok := rolePolicies[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRole, s)
	}
	return role, nil
}

// RolePolicy is the disclosure policy record for one audience.
// Keeping the three behaviors in one table makes them exhaustively
// enumerable and easy to audit.
type RolePolicy struct {
	// DiscloseScore controls whether the numeric risk score appears in
	// the structured response.
	DiscloseScore bool

	// FilterOutput enables the forbidden-term check on generated text.
	FilterOutput bool

	// DeriveSuggestions enables the structured improvement suggestions.
	DeriveSuggestions bool
}

var rolePolicies = map[Role]RolePolicy{
	RoleCustomer:   {DiscloseScore: false, FilterOutput: true, DeriveSuggestions: true},
	RoleSupport:    {DiscloseScore: true, FilterOutput: false, DeriveSuggestions: false},
	RoleCompliance: {DiscloseScore: true, FilterOutput: false, DeriveSuggestions: false},
}

// PolicyFor returns the disclosure policy for a role.
func PolicyFor(role Role) (RolePolicy, bool) {
	p, ok := rolePolicies[role]
	return p, ok
}

// Roles returns the closed set of known roles.
func Roles() []Role {
	return []Role{RoleCustomer, RoleSupport, RoleCompliance}
}
