package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/queue"
)

// Orchestrator is the dispatch surface the worker drives. The production
// implementation is dispatch.Orchestrator.
type Orchestrator interface {
	EnrichMessage(ctx context.Context, id uuid.UUID) error
	Dispatch(ctx context.Context, id uuid.UUID) error
	SweepEnrich(ctx context.Context) error
	SweepSend(ctx context.Context) error
}

// Handler implements queue.TriggerHandler by routing triggers to the
// orchestrator.
type Handler struct {
	orchestrator Orchestrator
	log          zerolog.Logger
}

// NewHandler creates a Handler over the given orchestrator.
func NewHandler(orchestrator Orchestrator, log zerolog.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, log: log}
}

// HandleTrigger implements queue.TriggerHandler. An enrich trigger that
// leaves the message ready is chained straight into a dispatch so the
// common path does not wait for the next sweep.
func (h *Handler) HandleTrigger(ctx context.Context, t *queue.Trigger) error {
	switch t.Kind {
	case queue.TriggerEnrich:
		if err := h.orchestrator.EnrichMessage(ctx, t.MessageID); err != nil {
			return fmt.Errorf("enrich message: %w", err)
		}
		if err := h.orchestrator.Dispatch(ctx, t.MessageID); err != nil {
			return fmt.Errorf("dispatch message: %w", err)
		}
		return nil

	case queue.TriggerSend:
		if err := h.orchestrator.Dispatch(ctx, t.MessageID); err != nil {
			return fmt.Errorf("dispatch message: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}
