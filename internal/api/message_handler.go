package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/metrics"
	"github.com/jkorhonen/carrier/internal/queue"
	"github.com/jkorhonen/carrier/internal/storage"
)

// recipientRequest is one recipient in a message creation request. At least
// one of uuid, email or phone must be present.
type recipientRequest struct {
	UUID     string `json:"uuid"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Language string `json:"language"`
}

// contentRequest is one localized content variant in a creation request.
type contentRequest struct {
	Language  string `json:"language"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	ShortText string `json:"short_text"`
}

// messageRequest is the JSON body for creating a message.
type messageRequest struct {
	FromName   string             `json:"from_name"`
	FromEmail  string             `json:"from_email"`
	SendAt     *time.Time         `json:"send_at"`
	Recipients []recipientRequest `json:"recipients"`
	Contents   []contentRequest   `json:"contents"`
}

// validate checks the request and returns the itemized problems.
func (req *messageRequest) validate() []string {
	var errs []string

	if len(req.Recipients) == 0 {
		errs = append(errs, "at least one recipient is required")
	}
	for i, r := range req.Recipients {
		if r.UUID == "" && r.Email == "" && r.Phone == "" {
			errs = append(errs, fmt.Sprintf("recipients[%d]: one of uuid, email or phone is required", i))
			continue
		}
		if r.UUID != "" {
			if _, err := uuid.Parse(r.UUID); err != nil {
				errs = append(errs, fmt.Sprintf("recipients[%d]: invalid uuid", i))
			}
		}
	}
	for i, c := range req.Contents {
		if c.Text == "" && c.ShortText == "" {
			errs = append(errs, fmt.Sprintf("contents[%d]: text or short_text is required", i))
		}
	}

	return errs
}

// message converts a valid request into the domain model.
func (req *messageRequest) message() *carrier.Message {
	msg := &carrier.Message{
		FromName:  req.FromName,
		FromEmail: req.FromEmail,
		SendAt:    req.SendAt,
		Status:    carrier.MessageStatusPendingInfo,
	}

	for _, rr := range req.Recipients {
		r := &carrier.Recipient{
			Email:    rr.Email,
			Phone:    rr.Phone,
			Language: rr.Language,
			Status:   carrier.RecipientStatusPendingInfo,
		}
		if rr.UUID != "" {
			id := uuid.MustParse(rr.UUID)
			r.ExternalID = &id
		}
		msg.Recipients = append(msg.Recipients, r)
	}

	for _, cr := range req.Contents {
		msg.Contents = append(msg.Contents, &carrier.Content{
			Language:  cr.Language,
			Subject:   cr.Subject,
			Text:      cr.Text,
			HTML:      cr.HTML,
			ShortText: cr.ShortText,
		})
	}

	return msg
}

// recipientResponse is one recipient in a message response.
type recipientResponse struct {
	ID        uuid.UUID  `json:"id"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Language  string     `json:"language,omitempty"`
	Transport string     `json:"transport,omitempty"`
	Status    string     `json:"status"`
}

// contentResponse is one content variant in a message response.
type contentResponse struct {
	ID        uuid.UUID `json:"id"`
	Language  string    `json:"language,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Text      string    `json:"text,omitempty"`
	HTML      string    `json:"html,omitempty"`
	ShortText string    `json:"short_text,omitempty"`
}

// messageResponse is the full JSON representation of a message.
type messageResponse struct {
	ID         uuid.UUID           `json:"id"`
	FromName   string              `json:"from_name,omitempty"`
	FromEmail  string              `json:"from_email,omitempty"`
	Status     string              `json:"status"`
	SendAt     *time.Time          `json:"send_at,omitempty"`
	SentAt     *time.Time          `json:"sent_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Recipients []recipientResponse `json:"recipients"`
	Contents   []contentResponse   `json:"contents"`
}

// toMessageResponse converts the domain model to the API representation.
func toMessageResponse(msg *carrier.Message) messageResponse {
	resp := messageResponse{
		ID:         msg.ID,
		FromName:   msg.FromName,
		FromEmail:  msg.FromEmail,
		Status:     string(msg.Status),
		SendAt:     msg.SendAt,
		SentAt:     msg.SentAt,
		CreatedAt:  msg.CreatedAt,
		Recipients: []recipientResponse{},
		Contents:   []contentResponse{},
	}

	for _, r := range msg.Recipients {
		resp.Recipients = append(resp.Recipients, recipientResponse{
			ID:        r.ID,
			UUID:      r.ExternalID,
			Email:     r.Email,
			Phone:     r.Phone,
			Language:  r.Language,
			Transport: string(r.Transport),
			Status:    string(r.Status),
		})
	}
	for _, c := range msg.Contents {
		resp.Contents = append(resp.Contents, contentResponse{
			ID:        c.ID,
			Language:  c.Language,
			Subject:   c.Subject,
			Text:      c.Text,
			HTML:      c.HTML,
			ShortText: c.ShortText,
		})
	}
	return resp
}

// CreateMessageHandler handles POST /v1/messages. The message is persisted
// in pending_info and an enrichment trigger is enqueued; the trigger is
// best-effort because the periodic sweep covers lost ones.
func CreateMessageHandler(queries storage.Querier, enqueuer queue.Enqueuer, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if errs := req.validate(); len(errs) > 0 {
			respondValidationErrors(w, errs)
			return
		}

		msg := req.message()
		if err := queries.CreateMessage(r.Context(), msg); err != nil {
			log.Error().Err(err).Msg("failed to persist message")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		metrics.MessagesCreatedTotal.Inc()

		if enqueuer != nil {
			if _, err := enqueuer.Enqueue(r.Context(), queue.NewTrigger(msg.ID, queue.TriggerEnrich)); err != nil {
				log.Warn().Err(err).Stringer("message_id", msg.ID).Msg("failed to enqueue enrichment trigger, sweep will pick the message up")
			}
		}

		respondJSON(w, http.StatusCreated, toMessageResponse(msg))
	}
}

// ListMessagesHandler handles GET /v1/messages. The optional status query
// parameter filters by one or more comma-separated statuses; without it every
// message is listed. Results come back oldest first.
func ListMessagesHandler(queries storage.Querier, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := statusFilter(r.URL.Query().Get("status"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		ids, err := queries.ListMessageIDsByStatus(r.Context(), statuses...)
		if err != nil {
			log.Error().Err(err).Msg("failed to list messages")
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		out := make([]messageResponse, 0, len(ids))
		for _, id := range ids {
			msg, err := queries.GetMessage(r.Context(), id)
			if err != nil {
				// Deleted between listing and loading; skip it.
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				log.Error().Err(err).Stringer("message_id", id).Msg("failed to load message")
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			out = append(out, toMessageResponse(msg))
		}

		respondJSON(w, http.StatusOK, out)
	}
}

// statusFilter parses the status query parameter into a status list. An
// empty parameter means every status.
func statusFilter(param string) ([]carrier.MessageStatus, error) {
	if param == "" {
		return carrier.MessageStatuses(), nil
	}

	var statuses []carrier.MessageStatus
	for _, s := range strings.Split(param, ",") {
		status, ok := carrier.ParseMessageStatus(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// GetMessageHandler handles GET /v1/messages/{id}.
func GetMessageHandler(queries storage.Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid message id")
			return
		}

		msg, err := queries.GetMessage(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusNotFound, "message not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, http.StatusOK, toMessageResponse(msg))
	}
}
