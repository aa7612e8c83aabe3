package api

import (
	"context"
	"net/http"

	"github.com/sorynturda/link-sharing/types"
)

// ListUsers fetches every account. The backend only allows admins.
func (c *Client) ListUsers(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	err := c.doJSON(ctx, request{
		op:     "list users",
		method: http.MethodGet,
		path:   "/api/users/admin/users",
		auth:   true,
	}, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}
