package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foundrscan/internal/logging"
	"foundrscan/internal/store"
)

// AccountStore defines the database operations needed by the local provider
type AccountStore interface {
	CreateAccount(ctx context.Context, name, email, passwordHash string) (string, error)
	GetAccountByEmail(ctx context.Context, email string) (*store.Account, error)
	GetAccountByUID(ctx context.Context, uid string) (*store.Account, error)

	CreateSessionToken(ctx context.Context, token, uid string, expiresAt time.Time) error
	GetSessionToken(ctx context.Context, token string) (*store.SessionToken, error)
	DeleteSessionToken(ctx context.Context, token string) error
}

// LocalProvider implements email/password authentication against the local
// account store, plus the federated flow via an injected FederatedFlow.
type LocalProvider struct {
	accounts      AccountStore
	flow          FederatedFlow
	sessionExpiry time.Duration
	logger        *logging.Logger
}

// NewLocalProvider creates a local auth provider
func NewLocalProvider(accounts AccountStore, flow FederatedFlow, sessionExpiryDays int, logger *logging.Logger) *LocalProvider {
	return &LocalProvider{
		accounts:      accounts,
		flow:          flow,
		sessionExpiry: time.Duration(sessionExpiryDays) * 24 * time.Hour,
		logger:        logger,
	}
}

// CreateAccount registers email/password credentials
func (p *LocalProvider) CreateAccount(ctx context.Context, name, email, password string) (*Credential, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, &ProviderError{Code: CodeInvalidEmail, Message: "malformed email address"}
	}
	if len(password) < 6 {
		return nil, &ProviderError{Code: CodeWeakPassword, Message: "password must be at least 6 characters"}
	}
	if _, err := p.accounts.GetAccountByEmail(ctx, email); err == nil {
		return nil, &ProviderError{Code: CodeEmailInUse, Message: "email already registered"}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	uid, err := p.accounts.CreateAccount(ctx, name, email, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	p.logger.Info("account created for %s", email)
	return &Credential{UID: uid, Name: name, Email: email}, nil
}

// Authenticate verifies email/password credentials
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, &ProviderError{Code: CodeInvalidCredential, Message: "missing email or password"}
	}

	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, &ProviderError{Code: CodeUserNotFound, Message: "no account for email"}
	}

	if !checkPasswordHash(password, account.PasswordHash) {
		return nil, &ProviderError{Code: CodeWrongPassword, Message: "password mismatch"}
	}

	return &Credential{UID: account.UID, Name: account.Name, Email: account.Email}, nil
}

// AuthenticateFederated runs the injected federated flow and resolves the
// asserted claim to a stable credential, creating a passwordless account on
// first contact.
func (p *LocalProvider) AuthenticateFederated(ctx context.Context) (*Credential, error) {
	if p.flow == nil {
		return nil, &ProviderError{Code: CodePopupBlocked, Message: "no federated flow configured"}
	}

	claim, err := p.flow.Authenticate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &ProviderError{Code: CodePopupCancelled, Message: "sign-in interrupted"}
		}
		return nil, err
	}

	email := normalizeEmail(claim.Email)
	if !validEmail(email) {
		return nil, &ProviderError{Code: CodeInvalidEmail, Message: "federated claim has no usable email"}
	}

	account, err := p.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		// First federated contact: mint a passwordless account so the UID
		// stays stable across sign-ins.
		uid, createErr := p.accounts.CreateAccount(ctx, claim.Name, email, "")
		if createErr != nil {
			return nil, fmt.Errorf("failed to create federated account: %w", createErr)
		}
		return &Credential{UID: uid, Name: claim.Name, Email: email}, nil
	}

	return &Credential{UID: account.UID, Name: account.Name, Email: account.Email}, nil
}

// Remember mints a durable sign-in token (32 bytes = 256 bits of entropy)
func (p *LocalProvider) Remember(ctx context.Context, uid string) (string, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	expiresAt := time.Now().Add(p.sessionExpiry)
	if err := p.accounts.CreateSessionToken(ctx, token, uid, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// Resume redeems a remembered sign-in token
func (p *LocalProvider) Resume(ctx context.Context, token string) (*Credential, error) {
	st, err := p.accounts.GetSessionToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if time.Now().After(st.ExpiresAt) {
		p.accounts.DeleteSessionToken(ctx, token)
		return nil, fmt.Errorf("token expired")
	}

	account, err := p.accounts.GetAccountByUID(ctx, st.UID)
	if err != nil {
		return nil, fmt.Errorf("token references unknown account: %w", err)
	}
	return &Credential{UID: account.UID, Name: account.Name, Email: account.Email}, nil
}

// Forget invalidates a remembered sign-in token
func (p *LocalProvider) Forget(ctx context.Context, token string) error {
	return p.accounts.DeleteSessionToken(ctx, token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at:], ".")
}
