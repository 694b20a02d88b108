package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// FrozenDecisionPayload is the closed contract between the upstream scoring
// layer and the explanation layer. It is the only fact-base the generator may
// use. Construct it with ParsePayload (or validate with Validate) and treat it
// as immutable afterward; it is owned by a single request.
type FrozenDecisionPayload struct {
	Decision     Decision `json:"decision"`
	RiskScore    float64  `json:"risk_score"`
	ThinFileFlag bool     `json:"thin_file_flag"`

	// TopNegative and TopPositive are ordered most-to-least significant.
	// Order is semantically meaningful; duplicates are permitted.
	TopNegative []string `json:"top_negative"`
	TopPositive []string `json:"top_positive"`
}

// ParsePayload decodes and validates a payload from JSON. Any field outside
// the closed schema is a contract violation, not silently ignored.
func ParsePayload(r io.Reader) (*FrozenDecisionPayload, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var p FrozenDecisionPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces the payload invariants. It runs once at construction;
// downstream components trust the result and never re-validate.
func (p *FrozenDecisionPayload) Validate() error {
	if !p.Decision.Valid() {
		return fmt.Errorf("%w: decision must be %q or %q, got %q",
			ErrSchemaViolation, DecisionApproved, DecisionRejected, p.Decision)
	}
	if p.RiskScore < 0.0 || p.RiskScore > 1.0 {
		return fmt.Errorf("%w: risk_score must be within [0.0, 1.0], got %g",
			ErrSchemaViolation, p.RiskScore)
	}
	return nil
}

// KeyDrivers returns topNegative concatenated with topPositive, preserving
// each sequence's internal order and any duplicates. Never nil.
func (p *FrozenDecisionPayload) KeyDrivers() []string {
	drivers := make([]string, 0, len(p.TopNegative)+len(p.TopPositive))
	drivers = append(drivers, p.TopNegative...)
	drivers = append(drivers, p.TopPositive...)
	return drivers
}
