package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 64 << 10
	requestIDHeader = "X-Request-ID"
)

// TokenSource supplies the bearer token. *session.Holder satisfies it.
type TokenSource interface {
	Get() (string, bool)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	LoginPath    string
	RegisterPath string
	VerifyPath   string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// Client issues requests against the file-sharing backend. It attaches the
// bearer token and maps every failure to *Error.
type Client struct {
	baseURL      string
	loginPath    string
	registerPath string
	verifyPath   string
	httpClient   *http.Client
	tokens       TokenSource
	logger       zerolog.Logger
}

// New constructs a Client. tokens may be nil for anonymous use.
func New(opts Options, tokens TokenSource) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		loginPath:    defaultPath(opts.LoginPath, "/api/auth/authenticate"),
		registerPath: defaultPath(opts.RegisterPath, "/api/auth/register"),
		verifyPath:   defaultPath(opts.VerifyPath, "/api/test/secured"),
		httpClient:   httpClient,
		tokens:       tokens,
		logger:       opts.Logger,
	}
}

// WithTokens returns a copy of c that reads the bearer token from tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	auth        bool
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Op: req.op, Err: err}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	if req.auth {
		token, ok := c.token()
		if !ok {
			return nil, &Error{Kind: KindUnauthorized, Op: req.op, Message: "missing token"}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", req.method).
			Str("path", req.path).
			Str("request_id", requestID).
			Msg("api request failed")
		return nil, &Error{Kind: KindNetwork, Op: req.op, Err: err}
	}

	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(req.op, resp)
	}
	return resp, nil
}

// doJSON sends req and decodes a JSON response into out. An empty body
// leaves out untouched.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Kind: KindDecode, Op: req.op, Err: err}
	}
	return nil
}

func (c *Client) token() (string, bool) {
	if c.tokens == nil {
		return "", false
	}
	token, ok := c.tokens.Get()
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func statusError(op string, resp *http.Response) *Error {
	kind := KindRequest
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindUnauthorized
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Status:  resp.StatusCode,
		Message: errorMessage(resp),
	}
}

// errorMessage extracts the server message from a JSON {"message"} or
// {"error"} body, falling back to the plain text body and then the status text.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(data))
	if text != "" {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &payload); err == nil {
			if payload.Message != "" {
				return payload.Message
			}
			if payload.Error != "" {
				return payload.Error
			}
		} else if !strings.HasPrefix(text, "<") {
			return text
		}
	}
	return strings.ToLower(http.StatusText(resp.StatusCode))
}

func defaultPath(path, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
