package blacklist

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"xengage/internal/api"
)

// Client manages the blocked-user list kept server-side. Blocked users
// are excluded from engagement by the backend.
type Client struct {
	api *api.Client
}

func New(a *api.Client) *Client { return &Client{api: a} }

// Entry is one blocked user.
type Entry struct {
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Success          bool    `json:"success"`
	BlacklistedUsers []Entry `json:"blacklisted_users"`
	TotalCount       int     `json:"total_count"`
}

// List returns the current blocked users.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	var resp listResponse
	if err := c.api.GetJSON(ctx, "/api/automation/blacklist", &resp); err != nil {
		return nil, err
	}
	return resp.BlacklistedUsers, nil
}

// Add blocks username and returns the updated list.
func (c *Client) Add(ctx context.Context, username, reason string) ([]Entry, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, errors.New("empty username")
	}
	body := struct {
		Username string `json:"username"`
		Reason   string `json:"reason,omitempty"`
	}{username, reason}
	var resp listResponse
	if err := c.api.PostJSON(ctx, "/api/automation/blacklist", body, &resp); err != nil {
		return nil, err
	}
	return resp.BlacklistedUsers, nil
}

// Remove unblocks username and returns the updated list.
func (c *Client) Remove(ctx context.Context, username string) ([]Entry, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, errors.New("empty username")
	}
	var resp listResponse
	if err := c.api.DeleteJSON(ctx, "/api/automation/blacklist/"+url.PathEscape(username), &resp); err != nil {
		return nil, err
	}
	return resp.BlacklistedUsers, nil
}
