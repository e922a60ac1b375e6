package carrier

// MessageStatus tracks a message through its delivery lifecycle.
type MessageStatus string

const (
	MessageStatusPendingInfo  MessageStatus = "pending_info"
	MessageStatusFetchingInfo MessageStatus = "fetching_info"
	MessageStatusReadyToSend  MessageStatus = "ready_to_send"
	MessageStatusSending      MessageStatus = "sending"
	MessageStatusSent         MessageStatus = "sent"
	MessageStatusError        MessageStatus = "error"
	MessageStatusArchived     MessageStatus = "archived"
)

// messageStatuses lists every message status in lifecycle order.
var messageStatuses = []MessageStatus{
	MessageStatusPendingInfo,
	MessageStatusFetchingInfo,
	MessageStatusReadyToSend,
	MessageStatusSending,
	MessageStatusSent,
	MessageStatusError,
	MessageStatusArchived,
}

// MessageStatuses returns every message status in lifecycle order.
func MessageStatuses() []MessageStatus {
	out := make([]MessageStatus, len(messageStatuses))
	copy(out, messageStatuses)
	return out
}

// ParseMessageStatus validates a status string against the known set.
func ParseMessageStatus(s string) (MessageStatus, bool) {
	for _, status := range messageStatuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// messageTransitions defines the allowed status transitions. The only way
// into a terminal state other than archived is through sending; archived is
// reachable from sent and error only (housekeeping).
var messageTransitions = map[MessageStatus][]MessageStatus{
	MessageStatusPendingInfo:  {MessageStatusFetchingInfo},
	MessageStatusFetchingInfo: {MessageStatusReadyToSend, MessageStatusPendingInfo},
	MessageStatusReadyToSend:  {MessageStatusSending},
	MessageStatusSending:      {MessageStatusSent, MessageStatusError},
	MessageStatusSent:         {MessageStatusArchived},
	MessageStatusError:        {MessageStatusArchived},
	MessageStatusArchived:     {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	for _, allowed := range messageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is a dispatch outcome (sent or error).
func (s MessageStatus) Terminal() bool {
	return s == MessageStatusSent || s == MessageStatusError || s == MessageStatusArchived
}

// RecipientStatus tracks a single recipient through resolution and delivery.
type RecipientStatus string

const (
	RecipientStatusPendingInfo RecipientStatus = "pending_info"
	RecipientStatusReadyToSend RecipientStatus = "ready_to_send"
	RecipientStatusSending     RecipientStatus = "sending"
	RecipientStatusIgnored     RecipientStatus = "ignored"
	RecipientStatusSent        RecipientStatus = "sent"
)

// TransportType identifies the delivery channel of a transport.
type TransportType string

const (
	TransportTypeEmail      TransportType = "email"
	TransportTypeSMS        TransportType = "sms"
	TransportTypePushbullet TransportType = "pushbullet"
	TransportTypeFirebase   TransportType = "firebase"
)
