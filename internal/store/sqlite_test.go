package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("missing document is absent, not an error", func(t *testing.T) {
		fields, ok, err := s.GetDocument(ctx, "users", "nobody")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if ok {
			t.Error("expected ok=false for missing document")
		}
		if fields != nil {
			t.Error("expected nil fields for missing document")
		}
	})

	t.Run("set then get round-trips fields", func(t *testing.T) {
		in := map[string]interface{}{"name": "Ada", "isActive": true}
		if err := s.SetDocument(ctx, "users", "u1", in, false); err != nil {
			t.Fatalf("SetDocument failed: %v", err)
		}

		out, ok, err := s.GetDocument(ctx, "users", "u1")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if !ok {
			t.Fatal("document should exist")
		}
		if out["name"] != "Ada" {
			t.Errorf("name = %v, want Ada", out["name"])
		}
		if out["isActive"] != true {
			t.Errorf("isActive = %v, want true", out["isActive"])
		}
	})

	t.Run("merge overlays without dropping other fields", func(t *testing.T) {
		if err := s.SetDocument(ctx, "users", "u2", map[string]interface{}{
			"name":  "Grace",
			"email": "grace@example.com",
		}, false); err != nil {
			t.Fatalf("SetDocument failed: %v", err)
		}

		if err := s.SetDocument(ctx, "users", "u2", map[string]interface{}{
			"lastLogin": "2026-08-28T10:00:00Z",
		}, true); err != nil {
			t.Fatalf("merge SetDocument failed: %v", err)
		}

		out, _, err := s.GetDocument(ctx, "users", "u2")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if out["name"] != "Grace" {
			t.Errorf("merge dropped name: %v", out["name"])
		}
		if out["lastLogin"] != "2026-08-28T10:00:00Z" {
			t.Errorf("merge did not apply lastLogin: %v", out["lastLogin"])
		}
	})

	t.Run("non-merge write replaces the whole document", func(t *testing.T) {
		if err := s.SetDocument(ctx, "users", "u3", map[string]interface{}{
			"name": "Edsger", "email": "e@example.com",
		}, false); err != nil {
			t.Fatalf("SetDocument failed: %v", err)
		}
		if err := s.SetDocument(ctx, "users", "u3", map[string]interface{}{
			"name": "Edsger W.",
		}, false); err != nil {
			t.Fatalf("SetDocument failed: %v", err)
		}

		out, _, err := s.GetDocument(ctx, "users", "u3")
		if err != nil {
			t.Fatalf("GetDocument failed: %v", err)
		}
		if _, still := out["email"]; still {
			t.Error("overwrite should have dropped the email field")
		}
	})
}

func TestAccountOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uid, err := s.CreateAccount(ctx, "Ada Lovelace", "ada@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if uid == "" {
		t.Fatal("expected non-empty uid")
	}

	t.Run("lookup by email", func(t *testing.T) {
		a, err := s.GetAccountByEmail(ctx, "ada@example.com")
		if err != nil {
			t.Fatalf("GetAccountByEmail failed: %v", err)
		}
		if a.UID != uid {
			t.Errorf("uid = %s, want %s", a.UID, uid)
		}
		if a.Name != "Ada Lovelace" {
			t.Errorf("name = %s", a.Name)
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		if _, err := s.CreateAccount(ctx, "Imposter", "ada@example.com", "hash2"); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("unknown email returns error", func(t *testing.T) {
		if _, err := s.GetAccountByEmail(ctx, "nobody@example.com"); err == nil {
			t.Error("expected error for unknown email")
		}
	})
}

func TestSessionTokenOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uid, err := s.CreateAccount(ctx, "Ada", "ada@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	expires := time.Now().Add(7 * 24 * time.Hour)
	if err := s.CreateSessionToken(ctx, "tok-1", uid, expires); err != nil {
		t.Fatalf("CreateSessionToken failed: %v", err)
	}

	st, err := s.GetSessionToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSessionToken failed: %v", err)
	}
	if st.UID != uid {
		t.Errorf("uid = %s, want %s", st.UID, uid)
	}
	if st.ExpiresAt.Sub(expires).Abs() > time.Second {
		t.Errorf("expiry drifted: %v vs %v", st.ExpiresAt, expires)
	}

	if err := s.DeleteSessionToken(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteSessionToken failed: %v", err)
	}
	if _, err := s.GetSessionToken(ctx, "tok-1"); err == nil {
		t.Error("expected error for deleted token")
	}
}
