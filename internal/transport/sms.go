package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

// SMS delivers short text messages through a JSON HTTP gateway. The short
// text rendering is preferred; the long text is the fallback.
type SMS struct {
	endpoint  string
	apiKey    string
	sender    string
	languages []string
	client    HTTPClient
}

// NewSMS creates an SMS gateway transport from the given configuration.
func NewSMS(cfg config.SMSConfig, languages []string, client HTTPClient) *SMS {
	return &SMS{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		sender:    cfg.Sender,
		languages: languages,
		client:    client,
	}
}

func (s *SMS) Name() string                { return "sms" }
func (s *SMS) Type() carrier.TransportType { return carrier.TransportTypeSMS }

// IsValid requires the gateway endpoint and API key.
func (s *SMS) IsValid() bool {
	return s.endpoint != "" && s.apiKey != ""
}

// SuitableFor matches any recipient with a resolvable phone number.
func (s *SMS) SuitableFor(r *carrier.Recipient) bool {
	return r.GetPhone() != ""
}

type smsPayload struct {
	From    string   `json:"from,omitempty"`
	To      []string `json:"to"`
	Message string   `json:"message"`
}

// Send delivers the message to the batch, one gateway call per resolved
// language.
func (s *SMS) Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	var result SendResult

	order, groups := groupByLanguage(recipients, s.languages)
	for _, language := range order {
		group := groups[language]

		content, err := msg.ContentInLanguage(language, s.languages)
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, language, len(group), err))
			continue
		}

		text := content.ShortText
		if text == "" {
			text = content.Text
		}

		phones := make([]string, 0, len(group))
		for _, r := range group {
			phones = append(phones, r.GetPhone())
		}

		body, err := json.Marshal(smsPayload{From: s.sender, To: phones, Message: text})
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), err))
			continue
		}

		markSending(group)

		resp, err := s.client.Do(ctx, &HTTPRequest{
			Method: "POST",
			URL:    s.endpoint,
			Headers: map[string]string{
				"Authorization": "Bearer " + s.apiKey,
				"Content-Type":  "application/json",
			},
			Body: body,
		})
		if err != nil {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), fmt.Errorf("sms: send request: %w", err)))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), httpError("sms", resp.StatusCode, string(resp.Body))))
			continue
		}

		for _, r := range group {
			r.Phone = r.GetPhone()
		}
		markSent(group, carrier.TransportTypeSMS, language)
	}

	return result
}
