package carrier

import "github.com/google/uuid"

// Recipient is one delivery target of a message. It either references a
// directory identity via ExternalID, carries explicit contact fields, or
// both. Explicit fields always win over the attached contact's fields.
type Recipient struct {
	ID         uuid.UUID
	MessageID  uuid.UUID
	ExternalID *uuid.UUID
	Contact    *Contact

	Email           string
	Phone           string
	Language        string
	PushbulletToken string
	FirebaseToken   string

	Transport TransportType
	Status    RecipientStatus
}

// AttachContact attaches a contact to the recipient. Attachment is
// idempotent: an already-attached contact is never replaced.
func (r *Recipient) AttachContact(c *Contact) {
	if r.Contact != nil {
		return
	}
	r.Contact = c
}

// GetEmail returns the recipient's email, falling back to the attached
// contact.
func (r *Recipient) GetEmail() string {
	if r.Email != "" {
		return r.Email
	}
	if r.Contact != nil {
		return r.Contact.Email
	}
	return ""
}

// GetPhone returns the recipient's phone number, falling back to the
// attached contact.
func (r *Recipient) GetPhone() string {
	if r.Phone != "" {
		return r.Phone
	}
	if r.Contact != nil {
		return r.Contact.Phone
	}
	return ""
}

// GetPushbulletToken returns the recipient's Pushbullet access token,
// falling back to the attached contact.
func (r *Recipient) GetPushbulletToken() string {
	if r.PushbulletToken != "" {
		return r.PushbulletToken
	}
	if r.Contact != nil {
		return r.Contact.PushbulletToken
	}
	return ""
}

// GetFirebaseToken returns the recipient's Firebase registration token,
// falling back to the attached contact.
func (r *Recipient) GetFirebaseToken() string {
	if r.FirebaseToken != "" {
		return r.FirebaseToken
	}
	if r.Contact != nil {
		return r.Contact.FirebaseToken
	}
	return ""
}

// GetLanguage returns the recipient's language. Unlike the other attributes
// it has a third fallback: the first entry of the configured default
// language list.
func (r *Recipient) GetLanguage(defaultLanguages []string) string {
	if r.Language != "" {
		return r.Language
	}
	if r.Contact != nil && r.Contact.Language != "" {
		return r.Contact.Language
	}
	if len(defaultLanguages) > 0 {
		return defaultLanguages[0]
	}
	return ""
}

// HasDeliverableInfo reports whether the recipient has any attribute a
// transport could deliver to, directly or through its contact.
func (r *Recipient) HasDeliverableInfo() bool {
	return r.GetEmail() != "" || r.GetPhone() != "" ||
		r.GetPushbulletToken() != "" || r.GetFirebaseToken() != ""
}
