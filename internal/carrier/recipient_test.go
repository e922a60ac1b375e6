package carrier

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecipient_ExplicitFieldWins(t *testing.T) {
	r := &Recipient{
		Email:    "explicit@example.com",
		Phone:    "+358401111111",
		Language: "fi",
		Contact: &Contact{
			Email:    "contact@example.com",
			Phone:    "+358402222222",
			Language: "sv",
		},
	}

	if got := r.GetEmail(); got != "explicit@example.com" {
		t.Errorf("GetEmail() = %q", got)
	}
	if got := r.GetPhone(); got != "+358401111111" {
		t.Errorf("GetPhone() = %q", got)
	}
	if got := r.GetLanguage(nil); got != "fi" {
		t.Errorf("GetLanguage() = %q", got)
	}
}

func TestRecipient_ContactFallback(t *testing.T) {
	r := &Recipient{
		Contact: &Contact{
			Email:           "contact@example.com",
			Phone:           "+358402222222",
			Language:        "sv",
			PushbulletToken: "pb-token",
			FirebaseToken:   "fcm-token",
		},
	}

	if got := r.GetEmail(); got != "contact@example.com" {
		t.Errorf("GetEmail() = %q", got)
	}
	if got := r.GetPhone(); got != "+358402222222" {
		t.Errorf("GetPhone() = %q", got)
	}
	if got := r.GetLanguage(nil); got != "sv" {
		t.Errorf("GetLanguage() = %q", got)
	}
	if got := r.GetPushbulletToken(); got != "pb-token" {
		t.Errorf("GetPushbulletToken() = %q", got)
	}
	if got := r.GetFirebaseToken(); got != "fcm-token" {
		t.Errorf("GetFirebaseToken() = %q", got)
	}
}

func TestRecipient_NoValues(t *testing.T) {
	r := &Recipient{}

	if got := r.GetEmail(); got != "" {
		t.Errorf("GetEmail() = %q", got)
	}
	if got := r.GetPhone(); got != "" {
		t.Errorf("GetPhone() = %q", got)
	}
	if r.HasDeliverableInfo() {
		t.Error("expected no deliverable info")
	}
}

func TestRecipient_LanguageDefaultFallback(t *testing.T) {
	r := &Recipient{}

	if got := r.GetLanguage([]string{"bb", "cc", "dd"}); got != "bb" {
		t.Errorf("GetLanguage() = %q, expected bb", got)
	}

	// An attached contact without a language does not change the fallback.
	r.Contact = &Contact{}
	if got := r.GetLanguage([]string{"bb", "cc", "dd"}); got != "bb" {
		t.Errorf("GetLanguage() with empty contact = %q, expected bb", got)
	}
}

func TestAttachContact_Idempotent(t *testing.T) {
	first := &Contact{ID: uuid.New(), Email: "first@example.com"}
	second := &Contact{ID: uuid.New(), Email: "second@example.com"}

	r := &Recipient{}
	r.AttachContact(first)
	r.AttachContact(second)

	if r.Contact != first {
		t.Error("expected the first attached contact to stick")
	}
}

func TestMessageStatus_Transitions(t *testing.T) {
	allowed := []struct {
		from, to MessageStatus
	}{
		{MessageStatusPendingInfo, MessageStatusFetchingInfo},
		{MessageStatusFetchingInfo, MessageStatusReadyToSend},
		{MessageStatusFetchingInfo, MessageStatusPendingInfo},
		{MessageStatusReadyToSend, MessageStatusSending},
		{MessageStatusSending, MessageStatusSent},
		{MessageStatusSending, MessageStatusError},
		{MessageStatusSent, MessageStatusArchived},
		{MessageStatusError, MessageStatusArchived},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to MessageStatus
	}{
		{MessageStatusPendingInfo, MessageStatusReadyToSend},
		{MessageStatusPendingInfo, MessageStatusSending},
		{MessageStatusReadyToSend, MessageStatusSent},
		{MessageStatusSending, MessageStatusReadyToSend},
		{MessageStatusSent, MessageStatusSending},
		{MessageStatusArchived, MessageStatusPendingInfo},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestContact_HasChannel(t *testing.T) {
	if (&Contact{Language: "fi"}).HasChannel() {
		t.Error("language alone is not a channel")
	}
	if !(&Contact{Phone: "+358401234567"}).HasChannel() {
		t.Error("phone is a channel")
	}
	if !(&Contact{FirebaseToken: "tok"}).HasChannel() {
		t.Error("firebase token is a channel")
	}
}
