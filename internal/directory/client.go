package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/carrier"
	"github.com/jkorhonen/carrier/internal/config"
)

// ContactInfo is one directory record. Absent attributes are empty strings;
// Error is set when the directory could not resolve the identifier.
type ContactInfo struct {
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Language        string `json:"language"`
	PushbulletToken string `json:"pushbullet_access_token"`
	FirebaseToken   string `json:"firebase_token"`
	ContactMethod   string `json:"contact_method"`
	Error           string `json:"error"`
}

// Contact converts the record into a contact with the given identifier.
func (i ContactInfo) Contact(id uuid.UUID) *carrier.Contact {
	return &carrier.Contact{
		ID:                 id,
		Email:              i.Email,
		Phone:              i.Phone,
		Language:           i.Language,
		PushbulletToken:    i.PushbulletToken,
		FirebaseToken:      i.FirebaseToken,
		PreferredTransport: carrier.TransportType(i.ContactMethod),
	}
}

// Client looks up contact attributes from the external directory service.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a directory client from the given configuration.
func NewClient(cfg config.DirectoryConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Lookup fetches contact info for all the given identifiers in one batched
// call. Identifiers the directory does not know yet are simply absent from
// the result; that is not an error. Records the directory flagged with an
// error are dropped with a warning.
func (c *Client) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ContactInfo, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ContactInfo{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	u := fmt.Sprintf("%s?ids=%s", c.baseURL, url.QueryEscape(strings.Join(idStrings, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup returned status %d", resp.StatusCode)
	}

	var raw map[string]ContactInfo
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	result := make(map[uuid.UUID]ContactInfo, len(raw))
	for key, info := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			c.log.Warn().Str("id", key).Msg("directory returned an unparseable identifier")
			continue
		}
		if info.Error != "" {
			c.log.Warn().Stringer("id", id).Str("error", info.Error).Msg("directory could not resolve identifier")
			continue
		}
		result[id] = info
	}

	return result, nil
}
