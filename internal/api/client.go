// Package api is the HTTP client for the remote ticketing service.
// It owns the single response-decoding policy: every response body is
// reduced to a tagged Result (json, text or empty) so that a non-JSON
// error page can never crash a caller. Three outcomes are kept
// distinct: transport failure (a Go error), an HTTP error status
// (Result with 4xx/5xx), and success (Result with 2xx).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"opora/internal/models"

	"github.com/c-pro/geche"
)

const meCacheTTL = 30 * time.Second

// TokenSource provides the current auth token, or "" when there is no
// session. The session store implements it; the client never caches
// the token itself, so a logout is visible on the next request.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed-token TokenSource for one-shot tools and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type BodyKind int

const (
	KindEmpty BodyKind = iota
	KindJSON
	KindText
)

// Result is the decoded outcome of a completed HTTP exchange.
type Result struct {
	Status int
	Kind   BodyKind
	JSON   json.RawMessage
	Text   string
}

func (r Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Unauthorized reports an authorization failure (401/403), which
// screens surface as "not authorized" rather than folding into an
// empty result.
func (r Result) Unauthorized() bool {
	return r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden
}

// Decode unmarshals a JSON body into v. Text and empty bodies are a
// decode failure, not a panic or a silent zero value.
func (r Result) Decode(v any) error {
	if r.Kind != KindJSON {
		return fmt.Errorf("response is not JSON (status %d)", r.Status)
	}
	return json.Unmarshal(r.JSON, v)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *slog.Logger

	// identity cache: token -> /auth/me/ payload, so screens that
	// re-check the admin flag on mount don't hammer the server.
	me geche.Geche[string, models.Identity]
}

type Config struct {
	BaseURL string
	Tokens  TokenSource
	Logger  *slog.Logger
	// HTTPClient overrides the transport, used by tests.
	HTTPClient *http.Client
}

func New(ctx context.Context, cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens:  cfg.Tokens,
		log:     logger,
		me:      geche.NewMapTTLCache[string, models.Identity](ctx, meCacheTTL, time.Minute),
	}
}

// do issues one request. The auth token is attached only when present;
// unauthenticated calls go out without it and the server decides.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Result{}, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response %s %s: %w", method, url, err)
	}

	res := decodeBody(resp.StatusCode, raw)
	if !res.OK() {
		c.log.Debug("api error response", "method", method, "url", url, "status", res.Status)
	}
	return res, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any) (Result, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request body: %w", err)
	}
	return c.do(ctx, method, url, bytes.NewReader(data), "application/json")
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// decodeBody classifies a response body once, for every call site.
func decodeBody(status int, raw []byte) Result {
	if len(raw) == 0 {
		return Result{Status: status, Kind: KindEmpty}
	}
	if json.Valid(raw) {
		return Result{Status: status, Kind: KindJSON, JSON: json.RawMessage(raw)}
	}
	return Result{Status: status, Kind: KindText, Text: string(raw)}
}
