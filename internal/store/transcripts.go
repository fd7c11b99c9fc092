package store

import (
	"context"
	"fmt"
	"time"
)

// transcriptsCollection holds one transcript document per user id
const transcriptsCollection = "transcripts"

// TranscriptStore persists full message transcripts over the document
// boundary. Every save overwrites the whole document; there are no partial
// or append semantics at this layer.
type TranscriptStore struct {
	docs DocumentStore
}

// NewTranscriptStore creates a TranscriptStore
func NewTranscriptStore(docs DocumentStore) *TranscriptStore {
	return &TranscriptStore{docs: docs}
}

// Save writes the full transcript for an identity
func (t *TranscriptStore) Save(ctx context.Context, identityID string, messages []Message) error {
	encoded := make([]interface{}, len(messages))
	for i, m := range messages {
		encoded[i] = messageFields(m)
	}
	fields := map[string]interface{}{
		"messages":  encoded,
		"updatedAt": time.Now().Format(time.RFC3339Nano),
	}
	if err := t.docs.SetDocument(ctx, transcriptsCollection, identityID, fields, false); err != nil {
		return fmt.Errorf("failed to save transcript for %s: %w", identityID, err)
	}
	return nil
}

// Load reads the full transcript for an identity. A missing document means
// "first conversation" and is reported via ok=false, not an error.
func (t *TranscriptStore) Load(ctx context.Context, identityID string) ([]Message, bool, error) {
	fields, ok, err := t.docs.GetDocument(ctx, transcriptsCollection, identityID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load transcript for %s: %w", identityID, err)
	}
	if !ok {
		return nil, false, nil
	}

	raw, _ := fields["messages"].([]interface{})
	messages := make([]Message, 0, len(raw))
	for i, entry := range raw {
		entryFields, ok := entry.(map[string]interface{})
		if !ok {
			return nil, false, fmt.Errorf("corrupt transcript for %s: message %d is not a document", identityID, i)
		}
		m, err := messageFromFields(entryFields)
		if err != nil {
			return nil, false, fmt.Errorf("corrupt transcript for %s: %w", identityID, err)
		}
		messages = append(messages, m)
	}
	return messages, true, nil
}
