package vault

import (
	"context"
	"errors"
	"net/http"
	"time"

	"xengage/internal/api"
)

// Client talks to the server-side encrypted credential store. The vault
// is operator-blind: decryption happens server-side with the owning
// user's password, and this client never holds plaintext keys beyond
// the one call that ships them.
type Client struct {
	api *api.Client
}

func New(a *api.Client) *Client { return &Client{api: a} }

// Keys are the four upstream platform credentials. They exist in client
// memory only inside the Save call frame.
type Keys struct {
	APIKey            string `json:"api_key"`
	APISecret         string `json:"api_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

func (k Keys) validate() error {
	if k.APIKey == "" || k.APISecret == "" || k.AccessToken == "" || k.AccessTokenSecret == "" {
		return errors.New("all four credentials are required")
	}
	return nil
}

// Status describes the stored credential, or nil when unset.
type Status struct {
	Configured bool      `json:"configured"`
	Valid      bool      `json:"valid"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
	UsageCount int       `json:"usage_count"`
}

// TestResult is the server's validation verdict against the upstream
// platform.
type TestResult struct {
	IsValid        bool   `json:"is_valid"`
	UpstreamHandle string `json:"upstream_handle"`
	ErrorMessage   string `json:"error_message"`
}

// Status returns the vault state, or nil when no credential is stored.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	err := c.api.GetJSON(ctx, "/api/auth/api-keys", &st)
	if err != nil {
		var ae *api.Error
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// CachedCheck reports whether the server holds a decrypted credential
// for this session, i.e. whether the next operation needs a password.
func (c *Client) CachedCheck(ctx context.Context) (bool, error) {
	var resp struct {
		HasCachedKeys bool `json:"has_cached_keys"`
	}
	if err := c.api.GetJSON(ctx, "/api/auth/api-keys/cached", &resp); err != nil {
		return false, err
	}
	return resp.HasCachedKeys, nil
}

// Save ships the credentials plus the user's password to the vault.
// Succeeds or fails atomically; on success the client holds no plaintext.
func (c *Client) Save(ctx context.Context, keys Keys, ticket *UnlockTicket) error {
	if err := keys.validate(); err != nil { return err }
	pw, ok := ticket.Use()
	if !ok {
		return errors.New("unlock ticket already spent")
	}
	body := struct {
		Keys
		UserPassword string `json:"user_password"`
	}{keys, pw}
	return c.api.PostJSON(ctx, "/api/auth/api-keys", body, nil)
}

// Test asks the server to decrypt with the supplied password and
// validate against the upstream platform.
func (c *Client) Test(ctx context.Context, ticket *UnlockTicket) (TestResult, error) {
	var out TestResult
	pw, ok := ticket.Use()
	if !ok {
		return out, errors.New("unlock ticket already spent")
	}
	body := struct {
		UserPassword string `json:"user_password"`
	}{pw}
	err := c.api.PostJSON(ctx, "/api/auth/api-keys/test", body, &out)
	return out, err
}

// Delete removes the stored credentials.
func (c *Client) Delete(ctx context.Context) error {
	return c.api.DeleteJSON(ctx, "/api/auth/api-keys", nil)
}
