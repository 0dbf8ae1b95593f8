package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// TokenSource supplies the bearer token for each request. Implementations
// return ErrNoSession when no user session exists; that error is terminal
// and callers must not retry behind it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a TokenSource that always yields the given
// token, or ErrNoSession when the token is empty.
func StaticTokenSource(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoSession
	}

	return string(s), nil
}

// maxErrorBodyBytes caps how much of an error response body is read for
// the error message.
const maxErrorBodyBytes = 2048

// Client is the HTTP adapter over the remote row store. It is safe for
// concurrent use; all methods are fail-fast with no internal retry — the
// sync engine's scheduling is the retry policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	userAgent  string
}

// NewClient creates a Client for the row store at baseURL.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
		userAgent:  userAgent,
	}
}

// do performs one authenticated request and classifies the response
// status. The caller owns the returned body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encoding request body: %w", err)
		}

		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("remote: building request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: resolving session token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}

	if sentinel := classifyStatus(resp.StatusCode); sentinel != nil {
		defer resp.Body.Close()

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		c.logger.Debug("remote request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return nil, &StoreError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Err:        sentinel,
		}
	}

	return resp, nil
}
