package transport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jkorhonen/carrier/internal/carrier"
)

// mockHTTPClient implements HTTPClient and records requests.
type mockHTTPClient struct {
	requests []*HTTPRequest
	doFn     func(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

func (m *mockHTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	m.requests = append(m.requests, req)
	if m.doFn != nil {
		return m.doFn(ctx, req)
	}
	return &HTTPResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func testMessage() *carrier.Message {
	return &carrier.Message{
		ID:        uuid.New(),
		FromName:  "John Doe",
		FromEmail: "john@example.com",
		CreatedAt: time.Now(),
		Status:    carrier.MessageStatusSending,
	}
}

func testContent(m *carrier.Message, language, subject, text string) *carrier.Content {
	c := &carrier.Content{
		ID:        uuid.New(),
		MessageID: m.ID,
		Language:  language,
		Subject:   subject,
		Text:      text,
	}
	m.Contents = append(m.Contents, c)
	return c
}

func testRecipient(m *carrier.Message) *carrier.Recipient {
	r := &carrier.Recipient{
		ID:        uuid.New(),
		MessageID: m.ID,
		Status:    carrier.RecipientStatusReadyToSend,
	}
	m.Recipients = append(m.Recipients, r)
	return r
}
