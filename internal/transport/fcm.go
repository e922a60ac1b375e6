package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

const fcmDefaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCM delivers push notifications through the Firebase Cloud Messaging
// legacy HTTP API, multicasting per resolved language.
type FCM struct {
	apiKey    string
	endpoint  string
	languages []string
	client    HTTPClient
}

// NewFCM creates a Firebase messaging transport from the given configuration.
func NewFCM(cfg config.FCMConfig, languages []string, client HTTPClient) *FCM {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fcmDefaultEndpoint
	}
	return &FCM{
		apiKey:    cfg.APIKey,
		endpoint:  endpoint,
		languages: languages,
		client:    client,
	}
}

func (f *FCM) Name() string                { return "fcm" }
func (f *FCM) Type() carrier.TransportType { return carrier.TransportTypeFirebase }

// IsValid requires the server API key.
func (f *FCM) IsValid() bool {
	return f.apiKey != ""
}

// SuitableFor matches any recipient with a resolvable Firebase registration
// token.
func (f *FCM) SuitableFor(r *carrier.Recipient) bool {
	return r.GetFirebaseToken() != ""
}

type fcmPayload struct {
	RegistrationIDs []string        `json:"registration_ids"`
	Notification    fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send multicasts the notification, one FCM call per resolved language.
func (f *FCM) Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	var result SendResult

	order, groups := groupByLanguage(recipients, f.languages)
	for _, language := range order {
		group := groups[language]

		content, err := msg.ContentInLanguage(language, f.languages)
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, language, len(group), err))
			continue
		}

		tokens := make([]string, 0, len(group))
		for _, r := range group {
			tokens = append(tokens, r.GetFirebaseToken())
		}

		body, err := json.Marshal(fcmPayload{
			RegistrationIDs: tokens,
			Notification:    fcmNotification{Title: content.Subject, Body: content.Text},
		})
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), err))
			continue
		}

		markSending(group)

		resp, err := f.client.Do(ctx, &HTTPRequest{
			Method: "POST",
			URL:    f.endpoint,
			Headers: map[string]string{
				"Authorization": "key=" + f.apiKey,
				"Content-Type":  "application/json",
			},
			Body: body,
		})
		if err != nil {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), fmt.Errorf("fcm: send request: %w", err)))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), httpError("fcm", resp.StatusCode, string(resp.Body))))
			continue
		}

		markSent(group, carrier.TransportTypeFirebase, language)
	}

	return result
}
