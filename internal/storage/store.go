package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jkorhonen/carrier/internal/carrier"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// Querier is the persistence surface the orchestrator and the API depend
// on. The production implementation is Store; tests substitute their own.
type Querier interface {
	CreateMessage(ctx context.Context, msg *carrier.Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*carrier.Message, error)
	ListMessageIDsByStatus(ctx context.Context, statuses ...carrier.MessageStatus) ([]uuid.UUID, error)
	UpdateMessageStatus(ctx context.Context, id uuid.UUID, status carrier.MessageStatus) error
	TryMarkSending(ctx context.Context, id uuid.UUID) (bool, error)
	FinishDispatch(ctx context.Context, id uuid.UUID, status carrier.MessageStatus, sentAt *time.Time) error
	UpdateRecipient(ctx context.Context, r *carrier.Recipient) error
	UpsertContact(ctx context.Context, c *carrier.Contact) error
}

// Store implements Querier on PostgreSQL.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema. Statements are idempotent, so
// calling this on every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// CreateMessage persists a message with its recipients and contents in one
// transaction. Missing ids and the created timestamp are filled in.
func (s *Store) CreateMessage(ctx context.Context, msg *carrier.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Status == "" {
		msg.Status = carrier.MessageStatusPendingInfo
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, from_name, from_email, send_at, sent_at, created_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.FromName, msg.FromEmail, msg.SendAt, msg.SentAt, msg.CreatedAt, msg.Status)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for i, r := range msg.Recipients {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.MessageID = msg.ID
		if r.Status == "" {
			r.Status = carrier.RecipientStatusPendingInfo
		}
		var contactID *uuid.UUID
		if r.Contact != nil {
			contactID = &r.Contact.ID
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO recipients (id, message_id, contact_id, external_id, email, phone,
			                         language, pushbullet_token, firebase_token, transport, status, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			r.ID, r.MessageID, contactID, r.ExternalID, r.Email, r.Phone,
			r.Language, r.PushbulletToken, r.FirebaseToken, r.Transport, r.Status, i)
		if err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}

	for i, c := range msg.Contents {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.MessageID = msg.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO contents (id, message_id, language, subject, text, html, short_text, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.MessageID, c.Language, c.Subject, c.Text, c.HTML, c.ShortText, i)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetMessage loads a message with its recipients (including attached
// contacts) and contents. Returns ErrNotFound for an unknown id.
func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*carrier.Message, error) {
	msg := &carrier.Message{}
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, from_name, from_email, send_at, sent_at, created_at, status
		 FROM messages WHERE id = $1`, id).
		Scan(&msg.ID, &msg.FromName, &msg.FromEmail, &msg.SendAt, &msg.SentAt, &msg.CreatedAt, &msg.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select message: %w", err)
	}

	if err := s.loadRecipients(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.loadContents(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Store) loadRecipients(ctx context.Context, msg *carrier.Message) error {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT r.id, r.contact_id, r.external_id, r.email, r.phone, r.language,
		        r.pushbullet_token, r.firebase_token, r.transport, r.status,
		        c.id, c.email, c.phone, c.language, c.pushbullet_token, c.firebase_token, c.preferred_transport
		 FROM recipients r
		 LEFT JOIN contacts c ON c.id = r.contact_id
		 WHERE r.message_id = $1
		 ORDER BY r.position`, msg.ID)
	if err != nil {
		return fmt.Errorf("select recipients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r := &carrier.Recipient{MessageID: msg.ID}
		var contactID *uuid.UUID
		var cID *uuid.UUID
		var cEmail, cPhone, cLanguage, cPushbullet, cFirebase, cPreferred *string

		err := rows.Scan(&r.ID, &contactID, &r.ExternalID, &r.Email, &r.Phone, &r.Language,
			&r.PushbulletToken, &r.FirebaseToken, &r.Transport, &r.Status,
			&cID, &cEmail, &cPhone, &cLanguage, &cPushbullet, &cFirebase, &cPreferred)
		if err != nil {
			return fmt.Errorf("scan recipient: %w", err)
		}

		if cID != nil {
			r.Contact = &carrier.Contact{
				ID:                 *cID,
				Email:              *cEmail,
				Phone:              *cPhone,
				Language:           *cLanguage,
				PushbulletToken:    *cPushbullet,
				FirebaseToken:      *cFirebase,
				PreferredTransport: carrier.TransportType(*cPreferred),
			}
		}
		msg.Recipients = append(msg.Recipients, r)
	}
	return rows.Err()
}

func (s *Store) loadContents(ctx context.Context, msg *carrier.Message) error {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, language, subject, text, html, short_text
		 FROM contents WHERE message_id = $1 ORDER BY position`, msg.ID)
	if err != nil {
		return fmt.Errorf("select contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c := &carrier.Content{MessageID: msg.ID}
		if err := rows.Scan(&c.ID, &c.Language, &c.Subject, &c.Text, &c.HTML, &c.ShortText); err != nil {
			return fmt.Errorf("scan content: %w", err)
		}
		msg.Contents = append(msg.Contents, c)
	}
	return rows.Err()
}

// ListMessageIDsByStatus returns ids of messages in any of the given
// statuses, oldest first.
func (s *Store) ListMessageIDsByStatus(ctx context.Context, statuses ...carrier.MessageStatus) ([]uuid.UUID, error) {
	statusStrings := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrings[i] = string(st)
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id FROM messages WHERE status = ANY($1) ORDER BY created_at`, statusStrings)
	if err != nil {
		return nil, fmt.Errorf("select message ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateMessageStatus sets the message status unconditionally.
func (s *Store) UpdateMessageStatus(ctx context.Context, id uuid.UUID, status carrier.MessageStatus) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE messages SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return nil
}

// TryMarkSending conditionally flips a message from ready_to_send to
// sending. A false result means another dispatcher won the message or it
// was not ready; the caller must back off.
func (s *Store) TryMarkSending(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx,
		`UPDATE messages SET status = $2 WHERE id = $1 AND status = $3`,
		id, carrier.MessageStatusSending, carrier.MessageStatusReadyToSend)
	if err != nil {
		return false, fmt.Errorf("mark sending: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FinishDispatch records the dispatch outcome. sent_at is written only if
// it has not been set before; a nil sentAt leaves it untouched.
func (s *Store) FinishDispatch(ctx context.Context, id uuid.UUID, status carrier.MessageStatus, sentAt *time.Time) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE messages SET status = $2, sent_at = COALESCE(sent_at, $3) WHERE id = $1`,
		id, status, sentAt)
	if err != nil {
		return fmt.Errorf("finish dispatch: %w", err)
	}
	return nil
}

// UpdateRecipient persists the mutable recipient fields: resolved
// attributes, the attached contact, the assigned transport and the status.
func (s *Store) UpdateRecipient(ctx context.Context, r *carrier.Recipient) error {
	var contactID *uuid.UUID
	if r.Contact != nil {
		contactID = &r.Contact.ID
	}
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE recipients
		 SET contact_id = COALESCE(contact_id, $2), email = $3, phone = $4, language = $5,
		     transport = $6, status = $7
		 WHERE id = $1`,
		r.ID, contactID, r.Email, r.Phone, r.Language, r.Transport, r.Status)
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	return nil
}

// UpsertContact replaces the stored contact with the given one, keyed by
// the directory identifier.
func (s *Store) UpsertContact(ctx context.Context, c *carrier.Contact) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO contacts (id, email, phone, language, pushbullet_token, firebase_token, preferred_transport, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     language = EXCLUDED.language,
		     pushbullet_token = EXCLUDED.pushbullet_token,
		     firebase_token = EXCLUDED.firebase_token,
		     preferred_transport = EXCLUDED.preferred_transport,
		     updated_at = now()`,
		c.ID, c.Email, c.Phone, c.Language, c.PushbulletToken, c.FirebaseToken, c.PreferredTransport)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}
