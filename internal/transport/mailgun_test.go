package transport

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

var testLanguages = []string{"fi", "sv", "en"}

func newTestMailgun(client HTTPClient) *Mailgun {
	return NewMailgun(config.MailgunConfig{
		Domain: "mg.example.com",
		APIKey: "key-test",
	}, testLanguages, client)
}

func TestMailgun_IsValid(t *testing.T) {
	if !newTestMailgun(&mockHTTPClient{}).IsValid() {
		t.Error("expected configured mailgun to be valid")
	}
	mg := NewMailgun(config.MailgunConfig{Domain: "mg.example.com"}, testLanguages, &mockHTTPClient{})
	if mg.IsValid() {
		t.Error("expected mailgun without api key to be invalid")
	}
}

func TestMailgun_SuitableFor(t *testing.T) {
	mg := newTestMailgun(&mockHTTPClient{})

	if !mg.SuitableFor(&carrier.Recipient{Email: "a@example.com"}) {
		t.Error("expected recipient with email to be suitable")
	}
	if !mg.SuitableFor(&carrier.Recipient{Contact: &carrier.Contact{Email: "c@example.com"}}) {
		t.Error("expected recipient with contact email to be suitable")
	}
	if mg.SuitableFor(&carrier.Recipient{Phone: "+358401234567"}) {
		t.Error("expected recipient without email to be unsuitable")
	}
}

func TestMailgun_Send_Success(t *testing.T) {
	client := &mockHTTPClient{}
	mg := newTestMailgun(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	r := testRecipient(msg)
	r.Email = "a@example.com"

	result := mg.Send(context.Background(), msg, msg.Recipients)

	if !result.OK() {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if r.Status != carrier.RecipientStatusSent {
		t.Errorf("recipient status = %q, expected sent", r.Status)
	}
	if r.Transport != carrier.TransportTypeEmail {
		t.Errorf("recipient transport = %q, expected email", r.Transport)
	}

	if len(client.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(client.requests))
	}
	req := client.requests[0]
	if !strings.Contains(req.URL, "/v3/mg.example.com/messages") {
		t.Errorf("unexpected URL %q", req.URL)
	}

	form, err := url.ParseQuery(string(req.Body))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if got := form.Get("from"); got != "John Doe <john@example.com>" {
		t.Errorf("from = %q", got)
	}
	if got := form.Get("subject"); got != "Aihe" {
		t.Errorf("subject = %q", got)
	}
	if form.Get("html") != "" {
		t.Error("expected no html field for text-only content")
	}

	var variables map[string]map[string]string
	if err := json.Unmarshal([]byte(form.Get("recipient-variables")), &variables); err != nil {
		t.Fatalf("parse recipient-variables: %v", err)
	}
	if variables["a@example.com"]["id"] != r.ID.String() {
		t.Errorf("recipient variables = %v", variables)
	}
}

func TestMailgun_Send_GroupsByLanguage(t *testing.T) {
	client := &mockHTTPClient{}
	mg := newTestMailgun(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	testContent(msg, "sv", "Ämne", "Text")

	fi := testRecipient(msg)
	fi.Email = "fi@example.com"
	fi.Language = "fi"
	sv := testRecipient(msg)
	sv.Email = "sv@example.com"
	sv.Language = "sv"

	result := mg.Send(context.Background(), msg, msg.Recipients)
	if !result.OK() {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected one request per language, got %d", len(client.requests))
	}
	if fi.Language != "fi" || sv.Language != "sv" {
		t.Error("expected resolved languages recorded on recipients")
	}
}

func TestMailgun_Send_ErrorKeepsRecipientsRetryable(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(_ context.Context, _ *HTTPRequest) (*HTTPResponse, error) {
			return &HTTPResponse{StatusCode: 500, Body: []byte("boom")}, nil
		},
	}
	mg := newTestMailgun(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	r := testRecipient(msg)
	r.Email = "a@example.com"

	result := mg.Send(context.Background(), msg, msg.Recipients)

	if result.OK() {
		t.Fatal("expected errors")
	}
	if r.Status != carrier.RecipientStatusReadyToSend {
		t.Errorf("failed recipient status = %q, expected ready_to_send", r.Status)
	}
}

func TestMailgun_Send_PartialLanguageFailure(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(_ context.Context, req *HTTPRequest) (*HTTPResponse, error) {
			if strings.Contains(string(req.Body), "sv%40example.com") {
				return &HTTPResponse{StatusCode: 502, Body: []byte("relay down")}, nil
			}
			return &HTTPResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
		},
	}
	mg := newTestMailgun(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	testContent(msg, "sv", "Ämne", "Text")

	fi := testRecipient(msg)
	fi.Email = "fi@example.com"
	fi.Language = "fi"
	sv := testRecipient(msg)
	sv.Email = "sv@example.com"
	sv.Language = "sv"

	result := mg.Send(context.Background(), msg, msg.Recipients)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if fi.Status != carrier.RecipientStatusSent {
		t.Errorf("fi status = %q, expected sent", fi.Status)
	}
	if sv.Status != carrier.RecipientStatusReadyToSend {
		t.Errorf("sv status = %q, expected ready_to_send", sv.Status)
	}
}
