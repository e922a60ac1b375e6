package transport

import (
	"context"

	"github.com/jkorhonen/carrier/internal/carrier"
)

// Transport is a pluggable delivery channel. Implementations declare their
// validity and per-recipient suitability, and deliver to batches of
// recipients already confirmed suitable.
type Transport interface {
	// Name returns the transport's configuration identifier
	// (e.g., "mailgun", "sms").
	Name() string
	// Type returns the channel this transport delivers to.
	Type() carrier.TransportType
	// IsValid reports whether the transport is configured and usable in
	// this deployment. Invalid transports are excluded from the registry
	// at startup.
	IsValid() bool
	// SuitableFor reports whether this transport can reach the recipient
	// given its resolved attributes.
	SuitableFor(r *carrier.Recipient) bool
	// Send attempts delivery to a batch of suitable recipients. Expected
	// delivery failures are returned in the result, never as a panic.
	// Recipients that were delivered are marked sent; failed recipients
	// keep their pre-send status.
	Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult
}

// SendResult is the outcome of one batch delivery attempt.
type SendResult struct {
	Errors []string
}

// OK reports whether the batch was delivered without errors.
func (r SendResult) OK() bool {
	return len(r.Errors) == 0
}

// groupByLanguage splits recipients by their resolved language, preserving
// input order within each group. Group iteration order follows first
// appearance so batching stays deterministic.
func groupByLanguage(recipients []*carrier.Recipient, defaults []string) ([]string, map[string][]*carrier.Recipient) {
	var order []string
	groups := make(map[string][]*carrier.Recipient)
	for _, r := range recipients {
		lang := r.GetLanguage(defaults)
		if _, seen := groups[lang]; !seen {
			order = append(order, lang)
		}
		groups[lang] = append(groups[lang], r)
	}
	return order, groups
}

// markSent records a successful delivery on each recipient: the transport
// that carried it, the resolved language, and the sent status.
func markSent(recipients []*carrier.Recipient, t carrier.TransportType, language string) {
	for _, r := range recipients {
		r.Transport = t
		r.Language = language
		r.Status = carrier.RecipientStatusSent
	}
}

// markSending flips a batch to sending before the network call. Subsets of
// one transport's batch move independently of each other.
func markSending(recipients []*carrier.Recipient) {
	for _, r := range recipients {
		r.Status = carrier.RecipientStatusSending
	}
}

// markFailed returns a failed batch to ready_to_send so a later pass can
// retry it and tell failed recipients apart from delivered ones.
func markFailed(recipients []*carrier.Recipient) {
	for _, r := range recipients {
		r.Status = carrier.RecipientStatusReadyToSend
	}
}
