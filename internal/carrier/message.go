package carrier

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrNoContent is returned by ContentInLanguage when the message has no
// content variants at all. A message that passed the sendability check can
// never hit this.
var ErrNoContent = errors.New("message has no content")

// Content is one localized rendering of a message payload. Immutable after
// creation.
type Content struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	Language  string
	Subject   string
	Text      string
	HTML      string
	ShortText string
}

// Message is a logical message with its recipients and localized content
// variants.
type Message struct {
	ID        uuid.UUID
	FromName  string
	FromEmail string
	SendAt    *time.Time
	SentAt    *time.Time
	CreatedAt time.Time
	Status    MessageStatus

	Recipients []*Recipient
	Contents   []*Content
}

// IsSendable reports whether the message may enter the sending state. When
// it may not, the second return value lists every violated precondition.
func (m *Message) IsSendable() (bool, []string) {
	var errs []string

	if m.Status != MessageStatusReadyToSend {
		errs = append(errs, fmt.Sprintf("status is not %q, but %q", MessageStatusReadyToSend, m.Status))
	}
	if len(m.Contents) == 0 {
		errs = append(errs, "no content")
	}

	ready := 0
	for _, r := range m.Recipients {
		if r.Status == RecipientStatusReadyToSend {
			ready++
		}
	}
	if ready == 0 {
		errs = append(errs, "no recipients ready to send")
	}

	return len(errs) == 0, errs
}

// ContentLanguages returns the languages present among the message's content
// variants, in content order. A content with an empty language counts as the
// first configured default language.
func (m *Message) ContentLanguages(defaultLanguages []string) []string {
	languages := make([]string, 0, len(m.Contents))
	for _, c := range m.Contents {
		lang := c.Language
		if lang == "" && len(defaultLanguages) > 0 {
			lang = defaultLanguages[0]
		}
		languages = append(languages, lang)
	}
	return languages
}

// ContentInLanguage selects the content variant to deliver for the given
// language. If the language is not available, the available languages are
// ordered by their position in the priority list (unknown languages last,
// existing order preserved on ties) and the first one wins. Selection is
// deterministic for a fixed content set and priority list.
func (m *Message) ContentInLanguage(language string, priority []string) (*Content, error) {
	if len(m.Contents) == 0 {
		return nil, ErrNoContent
	}

	available := m.ContentLanguages(priority)

	found := false
	for _, lang := range available {
		if lang == language {
			found = true
			break
		}
	}

	if !found {
		ordered := make([]string, len(available))
		copy(ordered, available)
		sort.SliceStable(ordered, func(i, j int) bool {
			return languageRank(ordered[i], priority) < languageRank(ordered[j], priority)
		})
		language = ordered[0]
	}

	for i, lang := range available {
		if lang == language {
			return m.Contents[i], nil
		}
	}

	// Unreachable: language was taken from the available set.
	return m.Contents[0], nil
}

// languageRank returns the position of lang in the priority list, or a rank
// past the end for languages not in the list.
func languageRank(lang string, priority []string) int {
	for i, p := range priority {
		if p == lang {
			return i
		}
	}
	return len(priority)
}

// MarkSent stamps the sent timestamp. It is set at most once; later calls
// are no-ops.
func (m *Message) MarkSent(t time.Time) {
	if m.SentAt != nil {
		return
	}
	m.SentAt = &t
}

// RecipientsInStatus returns the message's recipients currently in the given
// status, preserving recipient order.
func (m *Message) RecipientsInStatus(status RecipientStatus) []*Recipient {
	var out []*Recipient
	for _, r := range m.Recipients {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// UnresolvedExternalIDs returns the external identifiers of recipients that
// reference a directory identity but have no contact attached yet.
func (m *Message) UnresolvedExternalIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, r := range m.Recipients {
		if r.ExternalID != nil && r.Contact == nil {
			ids = append(ids, *r.ExternalID)
		}
	}
	return ids
}
