package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/queue"
)

type mockOrchestrator struct {
	enriched   []uuid.UUID
	dispatched []uuid.UUID
	enrichErr  error
	sweeps     int
}

func (m *mockOrchestrator) EnrichMessage(ctx context.Context, id uuid.UUID) error {
	m.enriched = append(m.enriched, id)
	return m.enrichErr
}

func (m *mockOrchestrator) Dispatch(ctx context.Context, id uuid.UUID) error {
	m.dispatched = append(m.dispatched, id)
	return nil
}

func (m *mockOrchestrator) SweepEnrich(ctx context.Context) error {
	m.sweeps++
	return nil
}

func (m *mockOrchestrator) SweepSend(ctx context.Context) error {
	m.sweeps++
	return nil
}

func TestHandleTrigger_EnrichChainsToDispatch(t *testing.T) {
	o := &mockOrchestrator{}
	h := NewHandler(o, zerolog.Nop())
	id := uuid.New()

	if err := h.HandleTrigger(context.Background(), queue.NewTrigger(id, queue.TriggerEnrich)); err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}

	if len(o.enriched) != 1 || o.enriched[0] != id {
		t.Errorf("enriched = %v", o.enriched)
	}
	if len(o.dispatched) != 1 || o.dispatched[0] != id {
		t.Errorf("dispatched = %v, expected chained dispatch", o.dispatched)
	}
}

func TestHandleTrigger_EnrichFailureStopsChain(t *testing.T) {
	o := &mockOrchestrator{enrichErr: errors.New("directory down")}
	h := NewHandler(o, zerolog.Nop())

	if err := h.HandleTrigger(context.Background(), queue.NewTrigger(uuid.New(), queue.TriggerEnrich)); err == nil {
		t.Fatal("expected error")
	}
	if len(o.dispatched) != 0 {
		t.Error("expected no dispatch after failed enrichment")
	}
}

func TestHandleTrigger_Send(t *testing.T) {
	o := &mockOrchestrator{}
	h := NewHandler(o, zerolog.Nop())
	id := uuid.New()

	if err := h.HandleTrigger(context.Background(), queue.NewTrigger(id, queue.TriggerSend)); err != nil {
		t.Fatalf("HandleTrigger: %v", err)
	}
	if len(o.enriched) != 0 || len(o.dispatched) != 1 {
		t.Errorf("enriched = %v, dispatched = %v", o.enriched, o.dispatched)
	}
}

func TestHandleTrigger_UnknownKind(t *testing.T) {
	h := NewHandler(&mockOrchestrator{}, zerolog.Nop())

	if err := h.HandleTrigger(context.Background(), &queue.Trigger{Kind: "bogus"}); err == nil {
		t.Fatal("expected error for unknown trigger kind")
	}
}
