package domain

import "time"

// ExplanationResponse is the structured result of one explanation request.
// It is built once by the composer, serialized, and discarded.
type ExplanationResponse struct {
	Role        Role     `json:"role"`
	Decision    Decision `json:"decision"`
	Explanation string   `json:"explanation"`

	// RiskScore is present only for support and compliance audiences.
	// For customers the field is omitted entirely.
	RiskScore *float64 `json:"risk_score,omitempty"`

	// KeyDrivers is topNegative ++ topPositive, always present.
	KeyDrivers []string `json:"key_drivers"`

	// ImprovementSuggestions is non-empty only for the customer role,
	// capped at four entries.
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

// Explanation record statuses for the audit trail.
const (
	RecordStatusCompleted = "completed"
	RecordStatusRejected  = "rejected"
)

// ExplanationRecord is the audit-trail row persisted for every explanation
// request that reached the text generation backend. Rejected requests are
// recorded without the generated text.
type ExplanationRecord struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Decision    Decision  `json:"decision"`
	RiskScore   float64   `json:"riskScore"`
	KeyDrivers  []string  `json:"keyDrivers"`
	Explanation string    `json:"explanation,omitempty"`
	Status      string    `json:"status"`
	TraceID     string    `json:"traceId,omitempty"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
