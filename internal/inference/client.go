// Package inference provides the client for the remote inference service.
// The service is stateless from the caller's point of view: it takes one
// message plus an optional session id and returns the reply, minting a new
// session id on the first exchange.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"foundrscan/internal/logging"
)

// Exchange is the result of one request/response round trip
type Exchange struct {
	Reply     string
	SessionID string
}

// Client defines the inference service boundary
type Client interface {
	// Send posts one message. sessionID may be empty on the first exchange;
	// the returned session id must then be adopted by the caller.
	Send(ctx context.Context, message, sessionID string) (*Exchange, error)
}

// TransportError is a network failure or non-2xx response from the
// inference service. It carries enough detail to render a user-visible
// diagnostic. The client never retries; retries are user-initiated.
type TransportError struct {
	Status int    // 0 when the request never produced a response
	Detail string
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("inference request failed: %s", e.Detail)
	}
	return fmt.Sprintf("inference returned HTTP %d: %s", e.Status, e.Detail)
}

// HTTPClient implements Client against the /api/chat endpoint
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// NewHTTPClient creates an inference client for the given base URL
func NewHTTPClient(endpoint string, timeout time.Duration, logger *logging.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type chatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Send posts one message to the inference service
func (c *HTTPClient) Send(ctx context.Context, message, sessionID string) (*Exchange, error) {
	reqBody := chatRequest{Message: message}
	if sessionID != "" {
		reqBody.SessionID = &sessionID
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending message (session=%q)", sessionID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, &TransportError{Status: resp.StatusCode, Detail: string(bodyBytes)}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Detail: fmt.Sprintf("malformed response body: %v", err)}
	}

	return &Exchange{Reply: result.Response, SessionID: result.SessionID}, nil
}
