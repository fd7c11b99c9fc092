package auth

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"foundrscan/internal/logging"
	"foundrscan/internal/store"
)

func newTestProvider(t *testing.T, flow FederatedFlow) *LocalProvider {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	logger := logging.NewLogger("auth-test", logging.ERROR, io.Discard)
	return NewLocalProvider(s, flow, 7, logger)
}

func providerCode(t *testing.T, err error) string {
	t.Helper()
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	return pe.Code
}

func TestCreateAccountValidation(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := p.CreateAccount(ctx, "Ada", "not-an-email", "secret123")
		if got := providerCode(t, err); got != CodeInvalidEmail {
			t.Errorf("code = %s, want %s", got, CodeInvalidEmail)
		}
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := p.CreateAccount(ctx, "Ada", "ada@example.com", "short")
		if got := providerCode(t, err); got != CodeWeakPassword {
			t.Errorf("code = %s, want %s", got, CodeWeakPassword)
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		if _, err := p.CreateAccount(ctx, "Ada", "ada@example.com", "secret123"); err != nil {
			t.Fatalf("first CreateAccount failed: %v", err)
		}
		_, err := p.CreateAccount(ctx, "Ada Again", "ada@example.com", "secret456")
		if got := providerCode(t, err); got != CodeEmailInUse {
			t.Errorf("code = %s, want %s", got, CodeEmailInUse)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "Grace", "grace@example.com", "hopper1906")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		cred, err := p.Authenticate(ctx, "grace@example.com", "hopper1906")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if cred.UID != created.UID {
			t.Errorf("uid = %s, want %s", cred.UID, created.UID)
		}
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		if _, err := p.Authenticate(ctx, "  GRACE@Example.COM ", "hopper1906"); err != nil {
			t.Errorf("normalized email should authenticate: %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "nobody@example.com", "whatever1")
		if got := providerCode(t, err); got != CodeUserNotFound {
			t.Errorf("code = %s, want %s", got, CodeUserNotFound)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "grace@example.com", "wrong-secret")
		if got := providerCode(t, err); got != CodeWrongPassword {
			t.Errorf("code = %s, want %s", got, CodeWrongPassword)
		}
	})

	t.Run("empty credential", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "grace@example.com", "")
		if got := providerCode(t, err); got != CodeInvalidCredential {
			t.Errorf("code = %s, want %s", got, CodeInvalidCredential)
		}
	})
}

type staticFlow struct {
	claim *FederatedClaim
	err   error
}

func (f *staticFlow) Authenticate(ctx context.Context) (*FederatedClaim, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claim, nil
}

func TestAuthenticateFederated(t *testing.T) {
	ctx := context.Background()

	t.Run("no flow configured reads as blocked popup", func(t *testing.T) {
		p := newTestProvider(t, nil)
		_, err := p.AuthenticateFederated(ctx)
		if got := providerCode(t, err); got != CodePopupBlocked {
			t.Errorf("code = %s, want %s", got, CodePopupBlocked)
		}
	})

	t.Run("first contact mints a stable uid", func(t *testing.T) {
		p := newTestProvider(t, &staticFlow{claim: &FederatedClaim{
			Subject: "sub-1", Name: "Edsger", Email: "edsger@example.com",
		}})

		first, err := p.AuthenticateFederated(ctx)
		if err != nil {
			t.Fatalf("AuthenticateFederated failed: %v", err)
		}
		second, err := p.AuthenticateFederated(ctx)
		if err != nil {
			t.Fatalf("second AuthenticateFederated failed: %v", err)
		}
		if first.UID != second.UID {
			t.Errorf("uid not stable across sign-ins: %s vs %s", first.UID, second.UID)
		}
	})

	t.Run("cancelled flow", func(t *testing.T) {
		p := newTestProvider(t, &staticFlow{err: &ProviderError{Code: CodePopupCancelled, Message: "user closed window"}})
		_, err := p.AuthenticateFederated(ctx)
		if got := providerCode(t, err); got != CodePopupCancelled {
			t.Errorf("code = %s, want %s", got, CodePopupCancelled)
		}
	})
}

func TestRememberResumeForget(t *testing.T) {
	p := newTestProvider(t, nil)
	ctx := context.Background()

	created, err := p.CreateAccount(ctx, "Ada", "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	token, err := p.Remember(ctx, created.UID)
	if err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	cred, err := p.Resume(ctx, token)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if cred.UID != created.UID || cred.Email != "ada@example.com" {
		t.Errorf("resumed credential mismatch: %+v", cred)
	}

	if err := p.Forget(ctx, token); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if _, err := p.Resume(ctx, token); err == nil {
		t.Error("forgotten token should not resume")
	}
}
