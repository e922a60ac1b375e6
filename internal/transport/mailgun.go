package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

const mailgunDefaultEndpoint = "https://api.mailgun.net"

// Mailgun delivers email through the Mailgun messages API. Recipients are
// batched per resolved language so each batch can use the matching content
// variant; Mailgun's recipient variables make it send an individual email
// to every recipient of a batch.
type Mailgun struct {
	domain    string
	apiKey    string
	endpoint  string
	languages []string
	client    HTTPClient
}

// NewMailgun creates a Mailgun transport from the given configuration.
func NewMailgun(cfg config.MailgunConfig, languages []string, client HTTPClient) *Mailgun {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = mailgunDefaultEndpoint
	}
	return &Mailgun{
		domain:    cfg.Domain,
		apiKey:    cfg.APIKey,
		endpoint:  endpoint,
		languages: languages,
		client:    client,
	}
}

func (m *Mailgun) Name() string                { return "mailgun" }
func (m *Mailgun) Type() carrier.TransportType { return carrier.TransportTypeEmail }

// IsValid requires both the sending domain and the API key.
func (m *Mailgun) IsValid() bool {
	return m.domain != "" && m.apiKey != ""
}

// SuitableFor matches any recipient with a resolvable email address.
func (m *Mailgun) SuitableFor(r *carrier.Recipient) bool {
	return r.GetEmail() != ""
}

// Send delivers the message to the batch, one Mailgun API call per resolved
// language. A failed language group does not block the other groups.
func (m *Mailgun) Send(ctx context.Context, msg *carrier.Message, recipients []*carrier.Recipient) SendResult {
	var result SendResult

	order, groups := groupByLanguage(recipients, m.languages)
	for _, language := range order {
		group := groups[language]

		content, err := msg.ContentInLanguage(language, m.languages)
		if err != nil {
			result.Errors = append(result.Errors, batchError(msg.ID, language, len(group), err))
			continue
		}

		markSending(group)

		if err := m.sendGroup(ctx, msg, content, group); err != nil {
			markFailed(group)
			result.Errors = append(result.Errors, batchError(msg.ID, content.Language, len(group), err))
			continue
		}

		for _, r := range group {
			r.Email = r.GetEmail()
		}
		markSent(group, carrier.TransportTypeEmail, language)
	}

	return result
}

func (m *Mailgun) sendGroup(ctx context.Context, msg *carrier.Message, content *carrier.Content, group []*carrier.Recipient) error {
	form, err := m.buildForm(msg, content, group)
	if err != nil {
		return err
	}

	resp, err := m.client.Do(ctx, &HTTPRequest{
		Method: "POST",
		URL:    fmt.Sprintf("%s/v3/%s/messages", m.endpoint, m.domain),
		Headers: map[string]string{
			"Authorization": "Basic " + basicAuth("api", m.apiKey),
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	})
	if err != nil {
		return fmt.Errorf("mailgun: send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError("mailgun", resp.StatusCode, string(resp.Body))
	}
	return nil
}

// buildForm builds the form payload for one language group. Recipient
// variables carry the recipient id so Mailgun sends a separate email per
// address instead of exposing the whole To list.
func (m *Mailgun) buildForm(msg *carrier.Message, content *carrier.Content, group []*carrier.Recipient) (url.Values, error) {
	emails := make([]string, 0, len(group))
	variables := make(map[string]map[string]string, len(group))
	for _, r := range group {
		email := r.GetEmail()
		emails = append(emails, email)
		variables[email] = map[string]string{"id": r.ID.String()}
	}

	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("mailgun: marshal recipient variables: %w", err)
	}

	form := url.Values{}
	form.Set("from", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	form.Set("to", strings.Join(emails, ","))
	form.Set("subject", content.Subject)
	form.Set("text", content.Text)
	form.Set("recipient-variables", string(varsJSON))
	if content.HTML != "" {
		form.Set("html", content.HTML)
	}
	return form, nil
}

// basicAuth encodes credentials for HTTP basic authentication.
func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
