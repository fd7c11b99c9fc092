package store

import "context"

// DocumentStore defines the document-oriented storage boundary.
// Each document is a flat set of fields under (collection, key).
// This abstraction allows swapping SQLite for a hosted document database.
type DocumentStore interface {
	// SetDocument writes fields for a document. With merge=true the given
	// fields are overlaid on the existing document; with merge=false the
	// document is replaced wholesale.
	SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}, merge bool) error

	// GetDocument reads a document's fields. A missing document is reported
	// via ok=false, not an error.
	GetDocument(ctx context.Context, collection, key string) (fields map[string]interface{}, ok bool, err error)

	Close() error
}
