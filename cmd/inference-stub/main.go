// Command inference-stub is a local stand-in for the remote inference
// service. It speaks the /api/chat contract: one message in, one reply out,
// minting a session id on the first exchange and walking a canned list of
// follow-up questions on later turns.
package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"foundrscan/internal/logging"
)

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Done      bool   `json:"done"`
}

var followUps = []string{
	"Interesting! What market are you targeting, and how big do you think it is?",
	"Who are your main competitors, and what sets you apart from them?",
	"How do you plan to make money? Walk me through the revenue model.",
	"What does your team look like, and what traction do you have so far?",
	"✅ I'm ready to summarize. Your idea touches a real pain point; the next step is validating willingness to pay with ten customer interviews.",
}

type session struct {
	turns int
}

type stubServer struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *logging.Logger
}

func newStubServer(logger *logging.Logger) *stubServer {
	return &stubServer{sessions: make(map[string]*session), logger: logger}
}

func (s *stubServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var id string
	var sess *session
	if req.SessionID != nil {
		if existing, ok := s.sessions[*req.SessionID]; ok {
			id, sess = *req.SessionID, existing
		}
	}
	if sess == nil {
		id = ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
		sess = &session{}
		s.sessions[id] = sess
	}
	turn := sess.turns
	if turn >= len(followUps) {
		turn = len(followUps) - 1
	}
	sess.turns++
	s.mu.Unlock()

	reply := followUps[turn]
	s.logger.Debug("chat turn (session=%s turn=%d)", id, turn)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		Response:  reply,
		SessionID: id,
		Done:      turn == len(followUps)-1,
	})
}

func (s *stubServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Post("/api/chat", s.handleChat)
	return r
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.NewLogger("inference-stub", logging.ParseLevel(*level), os.Stderr)
	srv := newStubServer(logger)

	logger.Info("inference stub listening on %s", *addr)
	if err := http.ListenAndServe(*addr, srv.router()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
