package store

import (
	"context"
	"fmt"
	"time"
)

// profilesCollection holds one Identity document per user id
const profilesCollection = "users"

// ProfileStore persists Identity records over the document boundary
type ProfileStore struct {
	docs DocumentStore
}

// NewProfileStore creates a ProfileStore
func NewProfileStore(docs DocumentStore) *ProfileStore {
	return &ProfileStore{docs: docs}
}

// Get loads an Identity; a missing profile yields ok=false
func (p *ProfileStore) Get(ctx context.Context, id string) (*Identity, bool, error) {
	fields, ok, err := p.docs.GetDocument(ctx, profilesCollection, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load profile %s: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	identity, err := identityFromFields(id, fields)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt profile %s: %w", id, err)
	}
	return identity, true, nil
}

// Create writes a full Identity document. Never merges: creation replaces
// whatever is there, which for a fresh id is nothing.
func (p *ProfileStore) Create(ctx context.Context, identity *Identity) error {
	if err := p.docs.SetDocument(ctx, profilesCollection, identity.ID, identityFields(identity), false); err != nil {
		return fmt.Errorf("failed to create profile %s: %w", identity.ID, err)
	}
	return nil
}

// TouchLastLogin updates only the lastLogin field, leaving the rest of the
// profile intact (merge update, not overwrite).
func (p *ProfileStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	fields := map[string]interface{}{
		"lastLogin": at.Format(time.RFC3339Nano),
	}
	if err := p.docs.SetDocument(ctx, profilesCollection, id, fields, true); err != nil {
		return fmt.Errorf("failed to update lastLogin for %s: %w", id, err)
	}
	return nil
}
