package transport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

func newTestSMS(client HTTPClient) *SMS {
	return NewSMS(config.SMSConfig{
		Endpoint: "http://sms.example.com/send",
		APIKey:   "sms-key",
		Sender:   "Carrier",
	}, testLanguages, client)
}

func TestSMS_Send_PrefersShortText(t *testing.T) {
	client := &mockHTTPClient{}
	sms := newTestSMS(client)

	msg := testMessage()
	c := testContent(msg, "fi", "Aihe", "Pitkä teksti")
	c.ShortText = "Lyhyt teksti"
	r := testRecipient(msg)
	r.Phone = "+358401234567"

	result := sms.Send(context.Background(), msg, msg.Recipients)
	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Errors)
	}

	var payload smsPayload
	if err := json.Unmarshal(client.requests[0].Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Message != "Lyhyt teksti" {
		t.Errorf("message = %q, expected short text", payload.Message)
	}
	if len(payload.To) != 1 || payload.To[0] != "+358401234567" {
		t.Errorf("to = %v", payload.To)
	}
	if payload.From != "Carrier" {
		t.Errorf("from = %q", payload.From)
	}
	if r.Status != carrier.RecipientStatusSent {
		t.Errorf("recipient status = %q", r.Status)
	}
}

func TestSMS_Send_FallsBackToText(t *testing.T) {
	client := &mockHTTPClient{}
	sms := newTestSMS(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Pitkä teksti")
	testRecipient(msg).Phone = "+358401234567"

	if result := sms.Send(context.Background(), msg, msg.Recipients); !result.OK() {
		t.Fatalf("expected success, got %v", result.Errors)
	}

	var payload smsPayload
	if err := json.Unmarshal(client.requests[0].Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Message != "Pitkä teksti" {
		t.Errorf("message = %q, expected long text fallback", payload.Message)
	}
}

func TestSMS_Send_GatewayError(t *testing.T) {
	client := &mockHTTPClient{
		doFn: func(_ context.Context, _ *HTTPRequest) (*HTTPResponse, error) {
			return &HTTPResponse{StatusCode: 429, Body: []byte("rate limited")}, nil
		},
	}
	sms := newTestSMS(client)

	msg := testMessage()
	testContent(msg, "fi", "Aihe", "Teksti")
	r := testRecipient(msg)
	r.Phone = "+358401234567"

	result := sms.Send(context.Background(), msg, msg.Recipients)
	if result.OK() {
		t.Fatal("expected errors")
	}
	if r.Status != carrier.RecipientStatusReadyToSend {
		t.Errorf("recipient status = %q, expected ready_to_send", r.Status)
	}
}

func TestSMS_IsValid(t *testing.T) {
	if !newTestSMS(&mockHTTPClient{}).IsValid() {
		t.Error("expected configured sms to be valid")
	}
	sms := NewSMS(config.SMSConfig{Endpoint: "http://x"}, testLanguages, &mockHTTPClient{})
	if sms.IsValid() {
		t.Error("expected sms without api key to be invalid")
	}
}
