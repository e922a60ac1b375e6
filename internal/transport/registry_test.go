package transport

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

func TestNewRegistry_UnknownNameFailsFast(t *testing.T) {
	cfg := config.TransportsConfig{Enabled: []string{"carrier.transports.MailGunTransport"}}

	_, err := NewRegistry(cfg, testLanguages, &mockHTTPClient{}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unknown transport name")
	}
}

func TestNewRegistry_ExcludesInvalid(t *testing.T) {
	// Mailgun has no credentials, so only stdout survives.
	cfg := config.TransportsConfig{Enabled: []string{"mailgun", "stdout"}}

	reg, err := NewRegistry(cfg, testLanguages, &mockHTTPClient{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(reg.Transports()); got != 1 {
		t.Fatalf("expected 1 transport, got %d", got)
	}
	if reg.Transports()[0].Name() != "stdout" {
		t.Errorf("expected stdout, got %q", reg.Transports()[0].Name())
	}
}

func TestNewRegistry_NoValidTransports(t *testing.T) {
	cfg := config.TransportsConfig{Enabled: []string{"mailgun", "fcm"}}

	_, err := NewRegistry(cfg, testLanguages, &mockHTTPClient{}, zerolog.Nop())
	if !errors.Is(err, ErrNoValidTransports) {
		t.Fatalf("expected ErrNoValidTransports, got %v", err)
	}
}

func TestNewRegistry_EmptyList(t *testing.T) {
	_, err := NewRegistry(config.TransportsConfig{}, testLanguages, &mockHTTPClient{}, zerolog.Nop())
	if !errors.Is(err, ErrNoValidTransports) {
		t.Fatalf("expected ErrNoValidTransports, got %v", err)
	}
}

func TestRegistry_FirstSuitable_PriorityOrder(t *testing.T) {
	cfg := config.TransportsConfig{
		Enabled: []string{"mailgun", "sms"},
		Mailgun: config.MailgunConfig{Domain: "mg.example.com", APIKey: "key"},
		SMS:     config.SMSConfig{Endpoint: "http://sms.example.com", APIKey: "key"},
	}
	reg, err := NewRegistry(cfg, testLanguages, &mockHTTPClient{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Email and phone: mailgun is listed first, so it wins.
	both := &carrier.Recipient{Email: "a@example.com", Phone: "+358401234567"}
	tr, ok := reg.FirstSuitable(both)
	if !ok || tr.Name() != "mailgun" {
		t.Errorf("expected mailgun for recipient with email, got %v", tr)
	}

	phoneOnly := &carrier.Recipient{Phone: "+358401234567"}
	tr, ok = reg.FirstSuitable(phoneOnly)
	if !ok || tr.Name() != "sms" {
		t.Errorf("expected sms for phone-only recipient, got %v", tr)
	}

	if _, ok := reg.FirstSuitable(&carrier.Recipient{}); ok {
		t.Error("expected no suitable transport for empty recipient")
	}
}
