package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sorynturda/link-sharing/types"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and returns the issued token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (types.AuthResponse, error) {
	return c.authenticate(ctx, "register", c.registerPath, req)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (types.AuthResponse, error) {
	return c.authenticate(ctx, "login", c.loginPath, req)
}

// Verify round-trips the current token against the secured test endpoint.
func (c *Client) Verify(ctx context.Context) error {
	return c.doJSON(ctx, request{
		op:     "verify session",
		method: http.MethodGet,
		path:   c.verifyPath,
		auth:   true,
	}, nil)
}

func (c *Client) authenticate(ctx context.Context, op, path string, payload any) (types.AuthResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.AuthResponse{}, &Error{Kind: KindRequest, Op: op, Err: err}
	}

	var resp types.AuthResponse
	err = c.doJSON(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
	}, &resp)
	if err != nil {
		return types.AuthResponse{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return types.AuthResponse{}, &Error{Kind: KindDecode, Op: op, Message: "no token received from server"}
	}
	return resp, nil
}
