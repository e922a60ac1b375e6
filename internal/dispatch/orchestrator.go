package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/directory"
	"github.com/jkorhonen/carrier/internal/metrics"
	"github.com/jkorhonen/carrier/internal/storage"
	"github.com/jkorhonen/carrier/internal/transport"
)

// Directory resolves external recipient identifiers to contact records.
// The production implementation is directory.Client.
type Directory interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]directory.ContactInfo, error)
}

// Registry answers transport suitability queries in priority order. The
// production implementation is transport.Registry.
type Registry interface {
	Transports() []transport.Transport
	FirstSuitable(r *carrier.Recipient) (transport.Transport, bool)
}

// Orchestrator drives messages through enrichment and dispatch. It is safe
// for concurrent use; message-level races are resolved by the conditional
// status update in the store, not by in-process locking.
type Orchestrator struct {
	store     storage.Querier
	directory Directory
	registry  Registry
	log       zerolog.Logger

	now func() time.Time
}

// NewOrchestrator creates an orchestrator over the given store, directory
// and transport registry.
func NewOrchestrator(store storage.Querier, dir Directory, registry Registry, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		directory: dir,
		registry:  registry,
		log:       log,
		now:       time.Now,
	}
}

// EnrichMessage resolves recipient contact info for a pending message. All
// unresolved external identifiers are looked up in one batched directory
// call; resolved contacts are persisted and attached. The message becomes
// ready_to_send only when every recipient is either ready or ignored;
// otherwise it returns to pending_info so a later sweep can retry.
func (o *Orchestrator) EnrichMessage(ctx context.Context, id uuid.UUID) error {
	log := o.log.With().Stringer("message_id", id).Logger()

	msg, err := o.store.GetMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if msg.Status != carrier.MessageStatusPendingInfo {
		log.Debug().Str("status", string(msg.Status)).Msg("message not pending enrichment, skipping")
		metrics.EnrichmentTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if err := o.store.UpdateMessageStatus(ctx, id, carrier.MessageStatusFetchingInfo); err != nil {
		return fmt.Errorf("mark fetching: %w", err)
	}
	msg.Status = carrier.MessageStatusFetchingInfo

	ids := msg.UnresolvedExternalIDs()
	if len(ids) > 0 {
		start := o.now()
		records, err := o.directory.Lookup(ctx, ids)
		metrics.DirectoryLookupDuration.Observe(o.now().Sub(start).Seconds())
		if err != nil {
			metrics.DirectoryLookupsTotal.WithLabelValues("failure").Inc()
			// The lookup is retryable: put the message back where the
			// sweep will pick it up again.
			if revertErr := o.store.UpdateMessageStatus(ctx, id, carrier.MessageStatusPendingInfo); revertErr != nil {
				log.Error().Err(revertErr).Msg("failed to revert message to pending_info")
			}
			metrics.EnrichmentTotal.WithLabelValues("failed").Inc()
			return fmt.Errorf("directory lookup: %w", err)
		}
		metrics.DirectoryLookupsTotal.WithLabelValues("success").Inc()

		if err := o.attachContacts(ctx, msg, records, log); err != nil {
			return err
		}
	}

	allResolved := true
	for _, r := range msg.Recipients {
		if r.Status != carrier.RecipientStatusPendingInfo {
			continue
		}
		if !r.HasDeliverableInfo() {
			allResolved = false
			continue
		}
		r.Status = carrier.RecipientStatusReadyToSend
		if err := o.store.UpdateRecipient(ctx, r); err != nil {
			return fmt.Errorf("persist recipient %s: %w", r.ID, err)
		}
	}

	next := carrier.MessageStatusReadyToSend
	outcome := "ready"
	if !allResolved {
		next = carrier.MessageStatusPendingInfo
		outcome = "deferred"
	}
	if err := o.store.UpdateMessageStatus(ctx, id, next); err != nil {
		return fmt.Errorf("finish enrichment: %w", err)
	}
	metrics.EnrichmentTotal.WithLabelValues(outcome).Inc()

	log.Info().
		Str("status", string(next)).
		Int("recipients", len(msg.Recipients)).
		Msg("message enrichment finished")
	return nil
}

// attachContacts upserts and attaches the looked-up contacts. Records with
// no deliverable channel are not stored; their recipients stay unresolved.
func (o *Orchestrator) attachContacts(ctx context.Context, msg *carrier.Message, records map[uuid.UUID]directory.ContactInfo, log zerolog.Logger) error {
	for _, r := range msg.Recipients {
		if r.ExternalID == nil || r.Contact != nil {
			continue
		}
		info, ok := records[*r.ExternalID]
		if !ok {
			log.Debug().Stringer("external_id", *r.ExternalID).Msg("directory has no record for recipient yet")
			continue
		}

		contact := info.Contact(*r.ExternalID)
		if !contact.HasChannel() {
			log.Warn().Stringer("external_id", *r.ExternalID).Msg("directory record has no deliverable channel, not storing")
			continue
		}

		if err := o.store.UpsertContact(ctx, contact); err != nil {
			return fmt.Errorf("upsert contact %s: %w", contact.ID, err)
		}
		r.AttachContact(contact)
		if err := o.store.UpdateRecipient(ctx, r); err != nil {
			return fmt.Errorf("persist recipient %s: %w", r.ID, err)
		}
	}
	return nil
}

// Dispatch sends a ready message. The conditional ready_to_send to sending
// update fences out concurrent dispatchers; the loser backs off silently.
// Ready recipients are assigned the first suitable transport (unreachable
// ones are ignored), batched per transport and sent concurrently. The final
// message status aggregates the batch outcomes; sent_at is stamped once
// after all batches complete, whatever the outcome.
func (o *Orchestrator) Dispatch(ctx context.Context, id uuid.UUID) error {
	log := o.log.With().Stringer("message_id", id).Logger()
	start := o.now()

	msg, err := o.store.GetMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}

	if msg.SendAt != nil && o.now().Before(*msg.SendAt) {
		log.Debug().Time("send_at", *msg.SendAt).Msg("message scheduled for later, skipping")
		metrics.DispatchTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if ok, problems := msg.IsSendable(); !ok {
		log.Warn().Strs("problems", problems).Msg("message not sendable, skipping")
		metrics.DispatchTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	won, err := o.store.TryMarkSending(ctx, id)
	if err != nil {
		return fmt.Errorf("mark sending: %w", err)
	}
	if !won {
		log.Debug().Msg("message taken by another dispatcher, backing off")
		metrics.DispatchTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	msg.Status = carrier.MessageStatusSending

	batches := o.assignTransports(msg, log)
	sendErrors := o.sendBatches(ctx, msg, batches)

	for _, r := range msg.Recipients {
		if err := o.store.UpdateRecipient(ctx, r); err != nil {
			return fmt.Errorf("persist recipient %s: %w", r.ID, err)
		}
	}

	sent := len(msg.RecipientsInStatus(carrier.RecipientStatusSent))
	status := carrier.MessageStatusSent
	if len(sendErrors) > 0 {
		status = carrier.MessageStatusError
	}
	msg.MarkSent(o.now())

	if err := o.store.FinishDispatch(ctx, id, status, msg.SentAt); err != nil {
		return fmt.Errorf("finish dispatch: %w", err)
	}

	metrics.DispatchTotal.WithLabelValues(string(status)).Inc()
	metrics.DispatchDuration.Observe(o.now().Sub(start).Seconds())

	evt := log.Info()
	if status == carrier.MessageStatusError {
		evt = log.Error().Strs("errors", sendErrors)
	}
	evt.
		Str("status", string(status)).
		Int("sent", sent).
		Int("errors", len(sendErrors)).
		Msg("message dispatch finished")
	return nil
}

// assignTransports splits the ready recipients into per-transport batches
// using first-suitable selection. Recipients no transport can reach are
// marked ignored; an ignored recipient alone never fails the message.
func (o *Orchestrator) assignTransports(msg *carrier.Message, log zerolog.Logger) map[transport.Transport][]*carrier.Recipient {
	batches := make(map[transport.Transport][]*carrier.Recipient)

	for _, r := range msg.RecipientsInStatus(carrier.RecipientStatusReadyToSend) {
		t, ok := o.registry.FirstSuitable(r)
		if !ok {
			r.Status = carrier.RecipientStatusIgnored
			metrics.TransportRecipientsTotal.WithLabelValues("none", "ignored").Inc()
			log.Warn().Stringer("recipient_id", r.ID).Msg("no suitable transport for recipient, ignoring")
			continue
		}
		batches[t] = append(batches[t], r)
	}
	return batches
}

// sendBatches delivers each transport batch in its own goroutine and
// collects the batch errors.
func (o *Orchestrator) sendBatches(ctx context.Context, msg *carrier.Message, batches map[transport.Transport][]*carrier.Recipient) []string {
	var (
		mu   sync.Mutex
		errs []string
		wg   sync.WaitGroup
	)

	for t, recipients := range batches {
		wg.Add(1)
		go func(t transport.Transport, recipients []*carrier.Recipient) {
			defer wg.Done()

			result := t.Send(ctx, msg, recipients)
			outcome := "ok"
			if !result.OK() {
				outcome = "error"
			}
			metrics.TransportSendsTotal.WithLabelValues(t.Name(), outcome).Inc()
			for _, r := range recipients {
				if r.Status == carrier.RecipientStatusSent {
					metrics.TransportRecipientsTotal.WithLabelValues(t.Name(), "sent").Inc()
				} else {
					metrics.TransportRecipientsTotal.WithLabelValues(t.Name(), "failed").Inc()
				}
			}

			mu.Lock()
			errs = append(errs, result.Errors...)
			mu.Unlock()
		}(t, recipients)
	}
	wg.Wait()
	return errs
}

// SweepEnrich enriches every message waiting for contact info, oldest
// first. Individual failures are logged and do not stop the sweep.
func (o *Orchestrator) SweepEnrich(ctx context.Context) error {
	return o.sweep(ctx, o.EnrichMessage, carrier.MessageStatusPendingInfo)
}

// SweepSend dispatches every ready message, oldest first.
func (o *Orchestrator) SweepSend(ctx context.Context) error {
	return o.sweep(ctx, o.Dispatch, carrier.MessageStatusReadyToSend)
}

func (o *Orchestrator) sweep(ctx context.Context, op func(context.Context, uuid.UUID) error, statuses ...carrier.MessageStatus) error {
	ids, err := o.store.ListMessageIDsByStatus(ctx, statuses...)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	for _, id := range ids {
		if err := op(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				o.log.Warn().Stringer("message_id", id).Msg("message vanished during sweep, skipping")
				continue
			}
			o.log.Error().Err(err).Stringer("message_id", id).Msg("sweep operation failed")
		}
	}
	return nil
}
