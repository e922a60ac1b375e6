package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TriggerKind selects the orchestrator operation a trigger requests.
type TriggerKind string

const (
	TriggerEnrich TriggerKind = "enrich"
	TriggerSend   TriggerKind = "send"
)

// Trigger is an ID-only queue message: it references a stored message and
// names the operation to run on it. Triggers are best-effort; the periodic
// sweeps pick up anything a lost trigger left behind.
type Trigger struct {
	MessageID uuid.UUID   `json:"message_id"`
	Kind      TriggerKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewTrigger creates a trigger for the given message and operation.
func NewTrigger(messageID uuid.UUID, kind TriggerKind) *Trigger {
	return &Trigger{
		MessageID: messageID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

// Enqueuer publishes triggers to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, t *Trigger) (string, error)
}

// Dequeuer consumes triggers from the queue. Start begins consuming in
// background goroutines; Stop shuts them down gracefully.
type Dequeuer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TriggerHandler processes a single trigger. The worker process implements
// this by routing to the orchestrator.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, t *Trigger) error
}
