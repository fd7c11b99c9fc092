package store

import (
	"fmt"
	"time"
)

// Message senders
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Identity is an authenticated user's durable profile record.
// IsActive is read-only to this client; it is flipped by an external
// administrative process.
type Identity struct {
	ID        string
	Name      string
	Email     string
	IsActive  bool
	Provider  string // "local" or "federated"
	CreatedAt time.Time
	LastLogin time.Time
}

// Message is one entry in a transcript. Immutable once appended.
type Message struct {
	ID        string
	Content   string
	Sender    string // "user" or "ai"
	Timestamp time.Time
}

// Account is a credential record owned by the local auth provider.
// Distinct from Identity: the profile document can be missing even
// when an account exists.
type Account struct {
	UID          string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// SessionToken is a remembered sign-in token
type SessionToken struct {
	Token     string
	UID       string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// identityFields converts an Identity to document fields
func identityFields(id *Identity) map[string]interface{} {
	return map[string]interface{}{
		"name":      id.Name,
		"email":     id.Email,
		"isActive":  id.IsActive,
		"provider":  id.Provider,
		"createdAt": id.CreatedAt.Format(time.RFC3339Nano),
		"lastLogin": id.LastLogin.Format(time.RFC3339Nano),
	}
}

// identityFromFields reconstructs an Identity from document fields
func identityFromFields(key string, fields map[string]interface{}) (*Identity, error) {
	id := &Identity{ID: key}
	id.Name, _ = fields["name"].(string)
	id.Email, _ = fields["email"].(string)
	id.Provider, _ = fields["provider"].(string)
	id.IsActive, _ = fields["isActive"].(bool)

	var err error
	if id.CreatedAt, err = fieldTime(fields, "createdAt"); err != nil {
		return nil, err
	}
	if id.LastLogin, err = fieldTime(fields, "lastLogin"); err != nil {
		return nil, err
	}
	return id, nil
}

// messageFields converts a Message to document fields
func messageFields(m Message) map[string]interface{} {
	return map[string]interface{}{
		"id":        m.ID,
		"content":   m.Content,
		"sender":    m.Sender,
		"timestamp": m.Timestamp.Format(time.RFC3339Nano),
	}
}

// messageFromFields reconstructs a Message from document fields
func messageFromFields(fields map[string]interface{}) (Message, error) {
	var m Message
	m.ID, _ = fields["id"].(string)
	m.Content, _ = fields["content"].(string)
	m.Sender, _ = fields["sender"].(string)

	ts, err := fieldTime(fields, "timestamp")
	if err != nil {
		return Message{}, err
	}
	m.Timestamp = ts
	return m, nil
}

func fieldTime(fields map[string]interface{}, key string) (time.Time, error) {
	raw, ok := fields[key].(string)
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s timestamp %q: %w", key, raw, err)
	}
	return t, nil
}
