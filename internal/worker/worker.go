// Package worker provides asynchronous audit persistence. When enabled, the
// explanation service publishes records to the event bus instead of writing
// them on the request path, and this worker consumes them into the
// repository.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/capintel/internal/domain"
)

// AuditWorker persists explanation records published on the event bus.
type AuditWorker struct {
	bus  domain.EventBus
	repo domain.Repository

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewAuditWorker creates a new audit worker.
func NewAuditWorker(bus domain.EventBus, repo domain.Repository) *AuditWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &AuditWorker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the audit topics.
func (w *AuditWorker) Start() error {
	if w.bus == nil || w.repo == nil {
		return fmt.Errorf("audit worker requires an event bus and a repository")
	}

	topics := []string{
		domain.TopicExplanationGenerated,
		domain.TopicExplanationRejected,
	}

	for _, topic := range topics {
		sub, err := w.bus.Subscribe(w.ctx, topic, w.handleMessage)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		w.subscriptions = append(w.subscriptions, sub)
	}

	slog.Info("audit worker started", "topics", len(topics))
	return nil
}

// handleMessage decodes one audit event and persists the record.
func (w *AuditWorker) handleMessage(ctx context.Context, msg *domain.Message) error {
	var rec domain.ExplanationRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Error("failed to decode audit event",
			"topic", msg.Topic,
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if err := w.repo.SaveExplanation(ctx, &rec); err != nil {
		slog.Error("failed to persist explanation record",
			"id", rec.ID,
			"topic", msg.Topic,
			"error", err,
		)
		return err
	}

	return nil
}

// Stop unsubscribes and stops the worker.
func (w *AuditWorker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe", "topic", sub.Topic(), "error", err)
		}
	}
	w.subscriptions = nil

	slog.Info("audit worker stopped")
	return nil
}
