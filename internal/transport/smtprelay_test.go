package transport

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-sasl"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

type capturedMail struct {
	from string
	to   []string
	body string
}

func newTestRelay(fn sendMailFunc) *SMTPRelay {
	relay := NewSMTPRelay(config.SMTPConfig{
		Addr:     "relay.example.com:587",
		Username: "carrier",
		Password: "secret",
	}, testLanguages)
	relay.sendMail = fn
	return relay
}

func TestSMTPRelay_Send_Success(t *testing.T) {
	var sent []capturedMail
	relay := newTestRelay(func(addr string, a sasl.Client, from string, to []string, r io.Reader) error {
		if addr != "relay.example.com:587" {
			t.Errorf("addr = %q", addr)
		}
		if a == nil {
			t.Error("expected sasl auth with username configured")
		}
		body, _ := io.ReadAll(r)
		sent = append(sent, capturedMail{from: from, to: to, body: string(body)})
		return nil
	})

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	rec := testRecipient(msg)
	rec.Email = "a@example.com"

	result := relay.Send(context.Background(), msg, msg.Recipients)
	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Errors)
	}

	if len(sent) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(sent))
	}
	if sent[0].from != "john@example.com" {
		t.Errorf("from = %q", sent[0].from)
	}
	if len(sent[0].to) != 1 || sent[0].to[0] != "a@example.com" {
		t.Errorf("to = %v", sent[0].to)
	}
	if !strings.Contains(sent[0].body, "Subject: Aihe") {
		t.Errorf("body missing subject: %q", sent[0].body)
	}
	if rec.Status != carrier.RecipientStatusSent {
		t.Errorf("recipient status = %q", rec.Status)
	}
}

func TestSMTPRelay_Send_RelayError(t *testing.T) {
	relay := newTestRelay(func(string, sasl.Client, string, []string, io.Reader) error {
		return errors.New("connection refused")
	})

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	rec := testRecipient(msg)
	rec.Email = "a@example.com"

	result := relay.Send(context.Background(), msg, msg.Recipients)
	if result.OK() {
		t.Fatal("expected errors")
	}
	if rec.Status != carrier.RecipientStatusReadyToSend {
		t.Errorf("recipient status = %q, expected ready_to_send", rec.Status)
	}
}

func TestSMTPRelay_IsValid(t *testing.T) {
	if NewSMTPRelay(config.SMTPConfig{}, testLanguages).IsValid() {
		t.Error("expected relay without addr to be invalid")
	}
	if !NewSMTPRelay(config.SMTPConfig{Addr: "localhost:25"}, testLanguages).IsValid() {
		t.Error("expected relay with addr to be valid")
	}
}

func TestBuildMIMEMessage_HTMLAlternative(t *testing.T) {
	msg := testMessage()
	c := testContent(msg, "fi", "Aihe", "Teksti")
	c.HTML = "<p>Teksti</p>"

	body := string(buildMIMEMessage(msg, c))

	if !strings.Contains(body, "multipart/alternative") {
		t.Error("expected multipart/alternative for html content")
	}
	if !strings.Contains(body, "text/html") {
		t.Error("expected html part")
	}
}

func TestBuildMIMEMessage_PlainText(t *testing.T) {
	msg := testMessage()
	c := testContent(msg, "fi", "Aihe", "Teksti")

	body := string(buildMIMEMessage(msg, c))

	if strings.Contains(body, "multipart") {
		t.Error("expected single-part message for text-only content")
	}
	if !strings.Contains(body, "text/plain") {
		t.Error("expected text/plain content type")
	}
}
