// Package chat owns the conversational session: the visible transcript, the
// active inference session id, and the state machine that ties optimistic
// local updates to the remote inference service and the per-user transcript
// store.
package chat

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"foundrscan/internal/cache"
	"foundrscan/internal/inference"
	"foundrscan/internal/logging"
	"foundrscan/internal/store"
)

// welcomeText opens every fresh conversation
const welcomeText = "Hi there! I'm the Founder Scan AI. Tell me about your startup idea, and I'll help validate it across market trends, competition, and investor potential."

// noReplyText stands in for an empty reply from the inference service
const noReplyText = "⚠️ No response received."

// State is the manager's position in its lifecycle
type State int

const (
	StateRestoring State = iota
	StateIdle
	StateSending
	StateResetting
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Guard errors. These mean "the affordance is disabled", not that something
// broke: presentation should swallow them and leave the transcript alone.
var (
	ErrBusy       = errors.New("an operation is already in flight")
	ErrEmptyInput = errors.New("message is empty")
	ErrNoIdentity = errors.New("no signed-in identity")
)

// SessionCache is the device-local slot for the session id
type SessionCache interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Transcripts is the per-identity remote transcript store
type Transcripts interface {
	Save(ctx context.Context, identityID string, messages []store.Message) error
	Load(ctx context.Context, identityID string) ([]store.Message, bool, error)
}

// Manager is the conversational session manager. One Manager belongs to one
// mounted conversation view; all methods are safe for concurrent use, and a
// second submit while a send is in flight is rejected rather than queued.
type Manager struct {
	client      inference.Client
	transcripts Transcripts
	sessions    SessionCache
	logger      *logging.Logger
	now         func() time.Time
	newID       func() string

	mu        sync.Mutex
	state     State
	messages  []store.Message
	sessionID string
	identity  *store.Identity
}

// NewManager creates a manager in the restoring state showing the welcome
// transcript. Call Restore to load prior state before accepting input.
func NewManager(client inference.Client, transcripts Transcripts, sessions SessionCache, logger *logging.Logger) *Manager {
	m := &Manager{
		client:      client,
		transcripts: transcripts,
		sessions:    sessions,
		logger:      logger,
		now:         time.Now,
		newID:       newMessageID,
		state:       StateRestoring,
	}
	m.messages = []store.Message{m.welcome()}
	return m
}

func (m *Manager) welcome() store.Message {
	return store.Message{
		ID:        "1",
		Content:   welcomeText,
		Sender:    store.SenderAI,
		Timestamp: m.now(),
	}
}

// Restore loads the cached session id and the stored transcript for the
// identity, then moves to idle. The two reads are independent and run
// concurrently. No inference call happens here. A nil identity leaves the
// default welcome transcript; a missing stored transcript means "first
// conversation", not a failure. Restore failures degrade to the welcome
// transcript rather than blocking the view.
func (m *Manager) Restore(ctx context.Context, identity *store.Identity) {
	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()

	if identity == nil {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
		return
	}

	var (
		cachedID string
		loaded   []store.Message
		found    bool
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		v, ok, err := m.sessions.Get(cache.SessionIDKey)
		if err != nil {
			m.logger.Warn("failed to read cached session id: %v", err)
			return
		}
		if ok {
			cachedID = v
		}
	}()
	go func() {
		defer wg.Done()
		msgs, ok, err := m.transcripts.Load(ctx, identity.ID)
		if err != nil {
			m.logger.Warn("failed to load transcript: %v", err)
			return
		}
		loaded, found = msgs, ok
	}()
	wg.Wait()

	m.mu.Lock()
	if found && len(loaded) > 0 {
		m.messages = loaded
	}
	m.sessionID = cachedID
	m.state = StateIdle
	m.mu.Unlock()

	m.logger.Debug("restored conversation (messages=%d session=%q)", len(loaded), cachedID)
}

// Send submits one user message. The user's message is appended before the
// inference call (optimistic update) and stays in the transcript no matter
// what. On success the reply is appended, the whole transcript persisted,
// and the session id adopted and cached. On transport failure a diagnostic
// AI message is appended instead and nothing is persisted, so resubmitting
// is the retry. Guard violations return ErrBusy, ErrEmptyInput, or
// ErrNoIdentity without touching the transcript.
func (m *Manager) Send(ctx context.Context, input string) error {
	trimmed := strings.TrimSpace(input)

	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrBusy
	}
	if trimmed == "" {
		m.mu.Unlock()
		return ErrEmptyInput
	}
	if m.identity == nil {
		m.mu.Unlock()
		return ErrNoIdentity
	}

	m.messages = append(m.messages, store.Message{
		ID:        m.newID(),
		Content:   trimmed,
		Sender:    store.SenderUser,
		Timestamp: m.now(),
	})
	sessionID := m.sessionID
	identityID := m.identity.ID
	m.state = StateSending
	m.mu.Unlock()

	exchange, err := m.client.Send(ctx, trimmed, sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.state = StateIdle }()

	if err != nil {
		// The failed turn is visible but never written to the remote store
		m.messages = append(m.messages, store.Message{
			ID:        m.newID(),
			Content:   "⚠️ API Error: " + err.Error(),
			Sender:    store.SenderAI,
			Timestamp: m.now(),
		})
		m.logger.Warn("inference call failed: %v", err)
		return nil
	}

	if m.sessionID == "" && exchange.SessionID != "" {
		m.sessionID = exchange.SessionID
	}

	reply := exchange.Reply
	if reply == "" {
		reply = noReplyText
	}
	m.messages = append(m.messages, store.Message{
		ID:        m.newID(),
		Content:   reply,
		Sender:    store.SenderAI,
		Timestamp: m.now(),
	})

	snapshot := make([]store.Message, len(m.messages))
	copy(snapshot, m.messages)
	if err := m.transcripts.Save(ctx, identityID, snapshot); err != nil {
		m.logger.Warn("failed to persist transcript: %v", err)
	}
	if m.sessionID != "" {
		if err := m.sessions.Set(cache.SessionIDKey, m.sessionID); err != nil {
			m.logger.Warn("failed to cache session id: %v", err)
		}
	}

	return nil
}

// Reset starts a new conversation: welcome-only transcript, no session id,
// cleared cache slot. Purely local; the remote store's prior document is
// left alone. Calling it twice is the same as calling it once.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return ErrBusy
	}
	m.state = StateResetting
	m.messages = []store.Message{m.welcome()}
	m.sessionID = ""
	if err := m.sessions.Delete(cache.SessionIDKey); err != nil {
		m.logger.Warn("failed to clear cached session id: %v", err)
	}
	m.state = StateIdle
	return nil
}

// Messages returns a copy of the current transcript
func (m *Manager) Messages() []store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// SessionID returns the active conversation-session id, empty if none
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// State returns the manager's current state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// newMessageID generates a transcript-unique message id
func newMessageID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
