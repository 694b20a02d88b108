// Package explain orchestrates one explanation request: prompt construction,
// the single text generation call, the fail-closed policy check, suggestion
// derivation, and response composition.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/capintel/internal/domain"
	"github.com/opensource-finance/capintel/internal/policy"
	"github.com/opensource-finance/capintel/internal/prompt"
	"github.com/opensource-finance/capintel/internal/suggest"
)

var tracer = otel.Tracer("capintel-explain")

// TextGenerator is the single operation offered by the text generation
// backend.
type TextGenerator interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Service processes explanation requests. It holds no per-request state, so
// arbitrarily many requests may run through it concurrently.
type Service struct {
	gen  TextGenerator
	repo domain.Repository
	bus  domain.EventBus

	// asyncAudit defers audit persistence to the event bus worker instead
	// of writing on the request path.
	asyncAudit bool
}

// NewService creates an explanation service. repo and bus may be nil; audit
// persistence and event publication are then skipped.
func NewService(gen TextGenerator, repo domain.Repository, bus domain.EventBus, asyncAudit bool) *Service {
	return &Service{
		gen:        gen,
		repo:       repo,
		bus:        bus,
		asyncAudit: asyncAudit,
	}
}

// Explain runs the full pipeline for one request. The payload must already
// be validated; it is trusted here and never re-checked. Every failure is
// terminal: there are no retries and no partial responses.
func (s *Service) Explain(ctx context.Context, role domain.Role, payload *domain.FrozenDecisionPayload) (*domain.ExplanationResponse, error) {
	start := time.Now()

	disclosure, ok := domain.PolicyFor(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedRole, role)
	}

	pr, err := prompt.Build(role, payload)
	if err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, role, payload, pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalService, err)
	}

	if disclosure.FilterOutput && policy.Violates(text) {
		// Fail closed: record the rejection without the text and abort.
		s.audit(ctx, s.record(ctx, role, payload, "", domain.RecordStatusRejected, start), domain.TopicExplanationRejected)
		return nil, domain.ErrPolicyViolation
	}

	var suggestions []string
	if disclosure.DeriveSuggestions {
		suggestions = suggest.Derive(payload.TopNegative)
	}

	resp := Compose(role, payload, text, suggestions)

	s.audit(ctx, s.record(ctx, role, payload, text, domain.RecordStatusCompleted, start), domain.TopicExplanationGenerated)

	return resp, nil
}

// generate performs the single call into the text generation backend,
// wrapped in a span. Timeout handling belongs to the backend client.
func (s *Service) generate(ctx context.Context, role domain.Role, payload *domain.FrozenDecisionPayload, pr prompt.Prompt) (string, error) {
	ctx, span := tracer.Start(ctx, "explain.generate",
		trace.WithAttributes(
			attribute.String("explain.role", string(role)),
			attribute.String("explain.decision", string(payload.Decision)),
		),
	)
	defer span.End()

	return s.gen.Chat(ctx, pr.System, pr.User)
}

// record builds the audit-trail row for one request.
func (s *Service) record(ctx context.Context, role domain.Role, payload *domain.FrozenDecisionPayload, text, status string, start time.Time) *domain.ExplanationRecord {
	rec := &domain.ExplanationRecord{
		ID:          uuid.New().String(),
		Role:        role,
		Decision:    payload.Decision,
		RiskScore:   payload.RiskScore,
		KeyDrivers:  payload.KeyDrivers(),
		Explanation: text,
		Status:      status,
		DurationMs:  time.Since(start).Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	if sc := trace.SpanContextFromContext(ctx); sc.TraceID().IsValid() {
		rec.TraceID = sc.TraceID().String()
	}

	return rec
}

// audit persists and publishes the record. Audit failures are logged, never
// surfaced: the explanation itself already succeeded or failed on its own
// terms.
func (s *Service) audit(ctx context.Context, rec *domain.ExplanationRecord, topic string) {
	if !s.asyncAudit && s.repo != nil {
		if err := s.repo.SaveExplanation(ctx, rec); err != nil {
			slog.Error("failed to save explanation record", "id", rec.ID, "error", err)
		}
	}

	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		slog.Error("failed to encode audit event", "id", rec.ID, "error", err)
		return
	}
	if err := s.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish audit event", "id", rec.ID, "topic", topic, "error", err)
	}
}
