package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seatline/internal/tickets"

	"github.com/google/uuid"
)

// maxResponseBytes bounds how much of a batch reply is read
const maxResponseBytes = 8 << 20

// Submitter uploads one batch of tickets
type Submitter interface {
	SubmitBatch(ctx context.Context, req tickets.BatchRequest) (*tickets.BatchResponse, error)
}

// ServerError is a non-2xx reply from the batch endpoint
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// HTTPClient posts batches to the seatline API
type HTTPClient struct {
	baseURL  string
	token    string
	deviceID string
	http     *http.Client
}

// NewHTTPClient builds a client for cfg. Every call is bounded by
// cfg.Timeout even when the caller's context has no deadline.
func NewHTTPClient(cfg ServerConfig, deviceID string) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		deviceID: deviceID,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type envelope struct {
	OK         bool                   `json:"ok"`
	StatusCode int                    `json:"status_code"`
	Message    string                 `json:"message"`
	Error      string                 `json:"error"`
	Data       *tickets.BatchResponse `json:"data"`
}

func (c *HTTPClient) SubmitBatch(ctx context.Context, req tickets.BatchRequest) (*tickets.BatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tickets/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.deviceID != "" {
		httpReq.Header.Set("X-Device-ID", c.deviceID)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read batch reply after %s: %w", time.Since(started), err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serverErr := &ServerError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil {
			serverErr.Code = env.Error
			if env.Message != "" {
				serverErr.Message = env.Message
			}
		}
		return nil, serverErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode batch reply: %w", decodeErr)
	}
	if !env.OK || env.Data == nil {
		return nil, fmt.Errorf("batch reply not ok: %s", env.Message)
	}
	return env.Data, nil
}

// Tokens is the part of the login reply the agent needs
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login signs an employee in for this device
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Tokens, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password, "device_id": c.deviceID})
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post login: %w", err)
	}
	defer resp.Body.Close()

	var env struct {
		Message string  `json:"message"`
		Error   string  `json:"error"`
		Data    *Tokens `json:"data"`
	}
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{StatusCode: resp.StatusCode, Code: env.Error, Message: env.Message}
	}
	if decodeErr != nil || env.Data == nil || env.Data.AccessToken == "" {
		return nil, fmt.Errorf("decode login reply: unexpected body")
	}
	return env.Data, nil
}
