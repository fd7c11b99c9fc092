package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foundrscan/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger("inference-test", logging.ERROR, io.Discard)
}

func TestSendFirstExchangeMintsSession(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response":   "What market are you targeting?",
			"session_id": "sess-42",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, testLogger())

	ex, err := client.Send(context.Background(), "B2B SaaS idea", "")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if ex.Reply != "What market are you targeting?" {
		t.Errorf("reply = %q", ex.Reply)
	}
	if ex.SessionID != "sess-42" {
		t.Errorf("session id = %q, want sess-42", ex.SessionID)
	}
	if gotBody["message"] != "B2B SaaS idea" {
		t.Errorf("message = %v", gotBody["message"])
	}
	// First exchange carries an explicit null session id
	if v, present := gotBody["session_id"]; !present || v != nil {
		t.Errorf("session_id = %v, want null", v)
	}
}

func TestSendReusesSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["session_id"] != "sess-42" {
			t.Errorf("session_id = %v, want sess-42", body["session_id"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response":   "Who are your competitors?",
			"session_id": "sess-42",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, testLogger())
	if _, err := client.Send(context.Background(), "What about competitors?", "sess-42"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, testLogger())
	_, err := client.Send(context.Background(), "hello", "")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", te.Status)
	}
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewHTTPClient(srv.URL, time.Second, testLogger())
	_, err := client.Send(context.Background(), "hello", "")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != 0 {
		t.Errorf("status = %d, want 0 for connection failure", te.Status)
	}
}

func TestSendMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, testLogger())
	_, err := client.Send(context.Background(), "hello", "")

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
