package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore provides document, account, and session-token storage backed
// by a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// WAL mode for concurrent access and busy timeout for write contention
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetDocument writes a document's fields, merging with any existing fields
// when merge is true
func (s *SQLiteStore) SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}, merge bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	final := fields
	if merge {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT fields FROM documents WHERE collection = ? AND doc_key = ?`,
			collection, key).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			// nothing to merge with
		case err != nil:
			return fmt.Errorf("failed to read document for merge: %w", err)
		default:
			merged := make(map[string]interface{})
			if err := json.Unmarshal([]byte(existing), &merged); err != nil {
				return fmt.Errorf("failed to decode existing document: %w", err)
			}
			for k, v := range fields {
				merged[k] = v
			}
			final = merged
		}
	}

	data, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, fields, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, doc_key) DO UPDATE SET fields = excluded.fields, updated_at = CURRENT_TIMESTAMP
	`, collection, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetDocument reads a document's fields; a missing document yields ok=false
func (s *SQLiteStore) GetDocument(ctx context.Context, collection, key string) (map[string]interface{}, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND doc_key = ?`,
		collection, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read document: %w", err)
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, false, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, true, nil
}

// CreateAccount inserts a credential record and returns its generated UID
func (s *SQLiteStore) CreateAccount(ctx context.Context, name, email, passwordHash string) (string, error) {
	uid := newUID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (uid, name, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, uid, name, email, passwordHash)
	if err != nil {
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return uid, nil
}

// GetAccountByEmail looks up a credential record; sql.ErrNoRows is passed
// through so callers can distinguish "no such account"
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var a Account
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, name, email, password_hash, created_at FROM accounts WHERE email = ?
	`, email).Scan(&a.UID, &a.Name, &a.Email, &a.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return &a, nil
}

// GetAccountByUID looks up a credential record by its opaque identifier
func (s *SQLiteStore) GetAccountByUID(ctx context.Context, uid string) (*Account, error) {
	var a Account
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, name, email, password_hash, created_at FROM accounts WHERE uid = ?
	`, uid).Scan(&a.UID, &a.Name, &a.Email, &a.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return &a, nil
}

// CreateSessionToken stores a remembered sign-in token
func (s *SQLiteStore) CreateSessionToken(ctx context.Context, token, uid string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_tokens (token, uid, expires_at) VALUES (?, ?, ?)
	`, token, uid, expiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create session token: %w", err)
	}
	return nil
}

// GetSessionToken retrieves a remembered sign-in token
func (s *SQLiteStore) GetSessionToken(ctx context.Context, token string) (*SessionToken, error) {
	var st SessionToken
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, uid, created_at, expires_at FROM session_tokens WHERE token = ?
	`, token).Scan(&st.Token, &st.UID, &createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}
	st.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	st.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("invalid token expiry %q: %w", expiresAt, err)
	}
	return &st, nil
}

// DeleteSessionToken removes a remembered sign-in token
func (s *SQLiteStore) DeleteSessionToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// newUID generates an opaque identifier for a new account
func newUID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
