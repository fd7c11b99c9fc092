package auth

import (
	"context"
	"fmt"

	"foundrscan/internal/logging"
)

// Provider error codes. This is the fixed vocabulary of the authentication
// provider boundary; the gate maps these onto the error taxonomy.
const (
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodePopupCancelled    = "auth/popup-closed-by-user"
	CodePopupBlocked      = "auth/popup-blocked"
)

// ProviderError is a failure reported by an authentication provider
type ProviderError struct {
	Code    string
	Message string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Credential is the opaque identity handle returned by a provider.
// It proves who the caller is; it says nothing about whether a profile
// record exists.
type Credential struct {
	UID   string
	Name  string
	Email string
}

// Provider defines the authentication provider boundary
type Provider interface {
	// CreateAccount registers email/password credentials
	CreateAccount(ctx context.Context, name, email, password string) (*Credential, error)

	// Authenticate verifies email/password credentials
	Authenticate(ctx context.Context, email, password string) (*Credential, error)

	// AuthenticateFederated runs the external federated sign-in flow
	AuthenticateFederated(ctx context.Context) (*Credential, error)

	// Remember mints a durable sign-in token for a credential
	Remember(ctx context.Context, uid string) (token string, err error)

	// Resume redeems a remembered sign-in token
	Resume(ctx context.Context, token string) (*Credential, error)

	// Forget invalidates a remembered sign-in token
	Forget(ctx context.Context, token string) error
}

// FederatedClaim is the identity assertion produced by a federated flow
type FederatedClaim struct {
	Subject string
	Name    string
	Email   string
}

// FederatedFlow launches the external federated sign-in interaction (the
// popup analog) and returns the asserted claim. Implementations should
// return a ProviderError with CodePopupCancelled when the user abandons
// the flow.
type FederatedFlow interface {
	Authenticate(ctx context.Context) (*FederatedClaim, error)
}

// GetProvider returns the configured auth provider
func GetProvider(providerType string, accounts AccountStore, flow FederatedFlow, sessionExpiryDays int, logger *logging.Logger) (Provider, error) {
	switch providerType {
	case "local", "":
		return NewLocalProvider(accounts, flow, sessionExpiryDays, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider: %s", providerType)
	}
}
