package auth

import (
	"context"
	"sync"
	"time"

	"foundrscan/internal/cache"
	"foundrscan/internal/logging"
	"foundrscan/internal/store"
)

// State is the gate's authentication state
type State int

const (
	StateSignedOut State = iota
	StateAuthenticating
	StateSignedIn
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StateAuthenticating:
		return "authenticating"
	case StateSignedIn:
		return "signed-in"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}

// FlowIntent distinguishes a federated sign-in initiated from the signup
// screen from one initiated from the login screen. The two differ only in
// how a missing profile record is handled.
type FlowIntent int

const (
	IntentLogin FlowIntent = iota
	IntentSignup
)

// Snapshot is one push notification of the gate's state
type Snapshot struct {
	State    State
	Identity *store.Identity
	Loading  bool
	Err      *Error
}

// Profiles defines the identity-profile operations the gate needs
type Profiles interface {
	Get(ctx context.Context, id string) (*store.Identity, bool, error)
	Create(ctx context.Context, identity *store.Identity) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenCache holds the remembered sign-in token on this device
type TokenCache interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Gate owns the authentication state machine. It is the single state holder
// for "who is signed in": consumers subscribe for push notifications instead
// of reading ambient globals, and Loading stays true until the first
// notification so dependent views never flash a signed-out state while the
// provider initializes.
type Gate struct {
	provider Provider
	profiles Profiles
	tokens   TokenCache
	logger   *logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	loading  bool
	state    State
	identity *store.Identity
	lastErr  *Error
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewGate creates a gate in the loading state. Call Start to resolve any
// remembered sign-in and publish the first notification.
func NewGate(provider Provider, profiles Profiles, tokens TokenCache, logger *logging.Logger) *Gate {
	return &Gate{
		provider: provider,
		profiles: profiles,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
		loading:  true,
		state:    StateSignedOut,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Start resolves the remembered sign-in token, if any, and publishes the
// first authentication-state notification. A stale or invalid token is
// discarded silently: the result is simply signed-out.
func (g *Gate) Start(ctx context.Context) {
	identity := g.resume(ctx)

	g.mu.Lock()
	g.loading = false
	if identity != nil {
		g.state = StateSignedIn
		g.identity = identity
	} else {
		g.state = StateSignedOut
		g.identity = nil
	}
	g.mu.Unlock()
	g.publish()
}

// resume tries to turn a cached token back into a signed-in identity
func (g *Gate) resume(ctx context.Context) *store.Identity {
	token, ok, err := g.tokens.Get(cache.AuthTokenKey)
	if err != nil {
		g.logger.Warn("failed to read remembered token: %v", err)
		return nil
	}
	if !ok {
		return nil
	}

	cred, err := g.provider.Resume(ctx, token)
	if err != nil {
		g.logger.Debug("remembered token rejected: %v", err)
		g.tokens.Delete(cache.AuthTokenKey)
		return nil
	}

	identity, found, err := g.profiles.Get(ctx, cred.UID)
	if err != nil || !found || !identity.IsActive {
		g.tokens.Delete(cache.AuthTokenKey)
		return nil
	}
	return identity
}

// SignUp creates credentials and a fresh local-provider Identity record
func (g *Gate) SignUp(ctx context.Context, name, email, password string) (*store.Identity, error) {
	g.setAuthenticating()

	cred, err := g.provider.CreateAccount(ctx, name, email, password)
	if err != nil {
		return nil, g.fail(err)
	}

	now := g.now()
	identity := &store.Identity{
		ID:        cred.UID,
		Name:      name,
		Email:     cred.Email,
		IsActive:  true,
		Provider:  "local",
		CreatedAt: now,
		LastLogin: now,
	}
	if err := g.profiles.Create(ctx, identity); err != nil {
		return nil, g.fail(err)
	}

	g.remember(ctx, cred.UID)
	g.succeed(identity)
	return identity, nil
}

// SignIn authenticates email/password credentials. The profile record must
// already exist: a valid credential without one is a data inconsistency and
// fails with RecordMissing rather than auto-creating.
func (g *Gate) SignIn(ctx context.Context, email, password string) (*store.Identity, error) {
	g.setAuthenticating()

	cred, err := g.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, g.fail(err)
	}

	identity, err := g.completeSignIn(ctx, cred, false, IntentLogin)
	if err != nil {
		return nil, g.fail(err)
	}

	g.remember(ctx, cred.UID)
	g.succeed(identity)
	return identity, nil
}

// SignInFederated runs the federated flow. In signup intent a missing
// profile is auto-created with provider=federated; in login intent it fails
// with RecordMissing so a login action can never silently create an account.
func (g *Gate) SignInFederated(ctx context.Context, intent FlowIntent) (*store.Identity, error) {
	g.setAuthenticating()

	cred, err := g.provider.AuthenticateFederated(ctx)
	if err != nil {
		return nil, g.fail(err)
	}

	identity, err := g.completeSignIn(ctx, cred, true, intent)
	if err != nil {
		return nil, g.fail(err)
	}

	g.remember(ctx, cred.UID)
	g.succeed(identity)
	return identity, nil
}

// completeSignIn holds the single post-credential path shared by every
// flow: profile lookup, the missing-record policy, the inactive check, and
// the lastLogin merge update.
func (g *Gate) completeSignIn(ctx context.Context, cred *Credential, federated bool, intent FlowIntent) (*store.Identity, error) {
	identity, found, err := g.profiles.Get(ctx, cred.UID)
	if err != nil {
		return nil, err
	}

	if !found {
		if federated && intent == IntentSignup {
			now := g.now()
			identity = &store.Identity{
				ID:        cred.UID,
				Name:      cred.Name,
				Email:     cred.Email,
				IsActive:  true,
				Provider:  "federated",
				CreatedAt: now,
				LastLogin: now,
			}
			if err := g.profiles.Create(ctx, identity); err != nil {
				return nil, err
			}
			return identity, nil
		}
		return nil, newRecordMissing(federated)
	}

	if !identity.IsActive {
		return nil, newAccountInactive()
	}

	now := g.now()
	if err := g.profiles.TouchLastLogin(ctx, identity.ID, now); err != nil {
		return nil, err
	}
	identity.LastLogin = now
	return identity, nil
}

// SignOut forgets the remembered token and publishes a signed-out snapshot.
// The Identity record itself is never deleted.
func (g *Gate) SignOut(ctx context.Context) {
	if token, ok, _ := g.tokens.Get(cache.AuthTokenKey); ok {
		if err := g.provider.Forget(ctx, token); err != nil {
			g.logger.Warn("failed to invalidate token: %v", err)
		}
		g.tokens.Delete(cache.AuthTokenKey)
	}

	g.mu.Lock()
	g.state = StateSignedOut
	g.identity = nil
	g.lastErr = nil
	g.mu.Unlock()
	g.publish()
}

// Current returns the signed-in identity, if any
func (g *Gate) Current() (*store.Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity, g.identity != nil
}

// Loading reports whether the first authentication-state notification is
// still pending
func (g *Gate) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading
}

// State returns the current authentication state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastError returns the most recent classified failure, if the gate is in
// the error state
func (g *Gate) LastError() *Error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Subscribe registers a push listener and returns its cancel function.
// The listener immediately receives the current snapshot.
func (g *Gate) Subscribe(fn func(Snapshot)) func() {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	snap := g.snapshotLocked()
	g.mu.Unlock()

	fn(snap)

	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

func (g *Gate) setAuthenticating() {
	g.mu.Lock()
	g.state = StateAuthenticating
	g.lastErr = nil
	g.mu.Unlock()
	g.publish()
}

// fail classifies the error, records it, publishes, and returns it
func (g *Gate) fail(err error) *Error {
	classified := classify(err)

	g.mu.Lock()
	g.state = StateErrored
	g.identity = nil
	g.lastErr = classified
	g.mu.Unlock()
	g.publish()

	g.logger.Warn("authentication failed: %s", classified.Error())
	return classified
}

func (g *Gate) succeed(identity *store.Identity) {
	g.mu.Lock()
	g.state = StateSignedIn
	g.identity = identity
	g.lastErr = nil
	g.mu.Unlock()
	g.publish()
}

// remember persists the sign-in token; failure only costs continuity, so it
// is logged and otherwise ignored
func (g *Gate) remember(ctx context.Context, uid string) {
	token, err := g.provider.Remember(ctx, uid)
	if err != nil {
		g.logger.Warn("failed to mint remembered token: %v", err)
		return
	}
	if err := g.tokens.Set(cache.AuthTokenKey, token); err != nil {
		g.logger.Warn("failed to cache remembered token: %v", err)
	}
}

func (g *Gate) snapshotLocked() Snapshot {
	return Snapshot{
		State:    g.state,
		Identity: g.identity,
		Loading:  g.loading,
		Err:      g.lastErr,
	}
}

// publish pushes the current snapshot to all subscribers. Listeners are
// invoked outside the lock so they may call back into the gate.
func (g *Gate) publish() {
	g.mu.Lock()
	snap := g.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(g.subs))
	for _, fn := range g.subs {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
