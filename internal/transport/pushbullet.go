package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

const pushbulletDefaultEndpoint = "https://api.pushbullet.com/v2/pushes"

// Pushbullet delivers note pushes through the Pushbullet API. Access tokens
// are per recipient, so pushes go out one recipient at a time, each with the
// content variant matching that recipient's language.
type Pushbullet struct {
	endpoint  string
	languages []string
	client    HTTPClient
}

// NewPushbullet creates a Pushbullet transport from the given configuration.
func NewPushbullet(cfg config.PushbulletConfig, languages []string, client HTTPClient) *Pushbullet {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = pushbulletDefaultEndpoint
	}
	return &Pushbullet{
		endpoint:  endpoint,
		languages: languages,
		client:    client,
	}
}

func (p *Pushbullet) Name() string                { return "pushbullet" }
func (p *Pushbullet) Type() carrier.TransportType { return carrier.TransportTypePushbullet }

// IsValid always holds: credentials are carried by the recipients.
func (p *Pushbullet) IsValid() bool { return true }

// SuitableFor matches any recipient with a resolvable Pushbullet token.
func (p *Pushbullet) SuitableFor(r *carrier.Recipient) bool {
	return r.GetPushbulletToken() != ""
}

type pushbulletPayload struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send pushes a note to each recipient. One failed recipient does not block
// the rest of the batch.
func (p *Pushbullet) Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	var result SendResult

	for _, r := range recipients {
		language := r.GetLanguage(p.languages)

		content, err := msg.ContentInLanguage(language, p.languages)
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, language, 1, err))
			continue
		}

		text := content.ShortText
		if text == "" {
			text = content.Text
		}

		body, err := json.Marshal(pushbulletPayload{Type: "note", Title: content.Subject, Body: text})
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, 1, err))
			continue
		}

		markSending([]*carrier.Recipient{r})

		resp, err := p.client.Do(ctx, &HTTPRequest{
			Method: "POST",
			URL:    p.endpoint,
			Headers: map[string]string{
				"Access-Token": r.GetPushbulletToken(),
				"Content-Type": "application/json",
			},
			Body: body,
		})
		if err != nil {
			markFailed([]*carrier.Recipient{r})
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, 1, fmt.Errorf("pushbullet: send request: %w", err)))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			markFailed([]*carrier.Recipient{r})
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, 1, httpError("pushbullet", resp.StatusCode, string(resp.Body))))
			continue
		}

		markSent([]*carrier.Recipient{r}, carrier.TransportTypePushbullet, content.Language)
	}

	return result
}
