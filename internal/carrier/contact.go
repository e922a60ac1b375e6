package carrier

import "github.com/google/uuid"

// Contact is a directory-resolved identity. The ID is the opaque identifier
// shared with the external directory service; contacts are created and
// replaced only by enrichment, never by the message API.
type Contact struct {
	ID                 uuid.UUID
	Email              string
	Phone              string
	Language           string
	PushbulletToken    string
	FirebaseToken      string
	PreferredTransport TransportType
}

// HasChannel reports whether the contact carries at least one deliverable
// attribute. Directory records without any channel are not worth storing.
func (c *Contact) HasChannel() bool {
	return c.Email != "" || c.Phone != "" || c.PushbulletToken != "" || c.FirebaseToken != ""
}
