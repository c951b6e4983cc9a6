// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the JSON-over-HTTP client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Configuration constants for the backend API.
const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of attempts for idempotent requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client with connection pooling for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// Error variables for common backend errors.
var (
	// ErrSessionNotFound indicates an unknown session id (HTTP 404).
	// Callers treat this as "the summary no longer resolves" and skip it.
	ErrSessionNotFound = errors.New("session not found")

	// ErrServerError indicates the backend reported a failure.
	ErrServerError = errors.New("server error")
)

// APIError represents an error response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the chat/knowledge backend.
type Client struct {
	baseURL    string
	maxRetries int
	timeout    time.Duration
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    trimTrailingSlash(baseURL),
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of attempts for idempotent requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// =============================================================================
// REQUEST/RESPONSE LOGGING (without sensitive data)
// =============================================================================

// logRequest logs an API request. Bodies are never logged; message content
// stays out of the log.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs an API response with duration.
func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// =============================================================================
// CORE REQUEST HANDLING
// =============================================================================

// do performs one HTTP request with the configured timeout and decodes the
// JSON response body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	c.logRequest(req)
	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	respBody, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doWithRetry performs an idempotent request with retry and exponential
// backoff on transport errors and 5xx responses. Only GET and DELETE flow
// through here; chat turns are never retried because a duplicate POST would
// duplicate the stored message.
func (c *Client) doWithRetry(ctx context.Context, method, path string, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		err := c.do(ctx, method, path, nil, "", out)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	detail := ""
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		detail = errResp.Detail
	}

	switch {
	case statusCode == http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, detail)
		}
		return ErrSessionNotFound
	case statusCode >= 500:
		apiErr := &APIError{Status: statusCode, Detail: detail}
		return fmt.Errorf("%w: %s", ErrServerError, apiErr.Error())
	default:
		return &APIError{Status: statusCode, Detail: detail}
	}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	// Not-found is a definitive answer, never retried.
	if errors.Is(err, ErrSessionNotFound) {
		return false
	}
	// Context cancellation propagates immediately.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// 5xx responses are transient.
	if errors.Is(err, ErrServerError) {
		return true
	}
	// Other API errors (4xx) are definitive.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	// Transport-level failures are worth another attempt.
	return true
}

// calculateBackoff returns the delay before the next retry.
func calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, etc.
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// HEALTH
// =============================================================================

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out statusResponse
	return c.do(ctx, http.MethodGet, "/", nil, "", &out)
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends one chat turn. sessionID is empty on the first turn of a
// conversation; the request then carries a JSON null and the server creates
// a new session. Chat is never retried automatically.
func (c *Client) Chat(ctx context.Context, query, sessionID string) (*ChatResponse, error) {
	reqBody := ChatRequest{Query: query}
	if sessionID != "" {
		reqBody.SessionID = &sessionID
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(payload), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations fetches the summary list of server-side conversations.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out conversationListResponse
	if err := c.doWithRetry(ctx, http.MethodGet, "/api/conversations", &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// GetConversation fetches the full record for one session. A 404 maps to
// ErrSessionNotFound, which callers treat as a non-fatal skip.
func (c *Client) GetConversation(ctx context.Context, sessionID string) (*ServerConversation, error) {
	var out ServerConversation
	if err := c.doWithRetry(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// KBStatus fetches knowledge base statistics.
func (c *Client) KBStatus(ctx context.Context) (*KBStatus, error) {
	var out KBStatus
	if err := c.doWithRetry(ctx, http.MethodGet, "/api/kb/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// KBListFiles fetches the per-file directory listing of the knowledge base.
func (c *Client) KBListFiles(ctx context.Context) ([]KBFile, error) {
	var out kbListResponse
	if err := c.doWithRetry(ctx, http.MethodGet, "/api/kb/list", &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// KBUpload uploads local files to the knowledge base as a multipart request
// and returns the per-file outcome map. The upload itself is never retried.
func (c *Client) KBUpload(ctx context.Context, paths []string) (UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, path := range paths {
		if err := addFilePart(writer, path); err != nil {
			writer.Close()
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload body: %w", err)
	}

	var out UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/kb/load", &buf, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// addFilePart appends one file to the multipart body under the "files" field.
func addFilePart(writer *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// KBDeleteFile removes one file from the knowledge base.
func (c *Client) KBDeleteFile(ctx context.Context, filename string) error {
	var out statusResponse
	return c.do(ctx, http.MethodDelete, "/api/kb/delete/"+url.PathEscape(filename), nil, "", &out)
}

// KBDeleteAll clears the entire knowledge base.
func (c *Client) KBDeleteAll(ctx context.Context) error {
	var out statusResponse
	return c.do(ctx, http.MethodDelete, "/api/kb/delete-all", nil, "", &out)
}
