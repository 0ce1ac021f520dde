package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"

	"xengage/internal/api"
	"xengage/internal/model"
)

// Session owns the bearer token and the signed-in profile. The token is
// the only client-side secret and is not the credential itself.
type Session struct {
	client *api.Client

	mu      sync.Mutex
	user    model.UserProfile
	signedIn bool
}

func New(client *api.Client) *Session {
	return &Session{client: client}
}

// Login signs in and installs the bearer token on the transport.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("email and password required")
	}
	var resp struct {
		AccessToken  string            `json:"access_token"`
		RefreshToken string            `json:"refresh_token"`
		User         model.UserProfile `json:"user"`
	}
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}
	if err := s.client.PostJSON(ctx, "/api/auth/login", body, &resp); err != nil {
		return err
	}
	s.client.SetToken(resp.AccessToken)
	s.mu.Lock()
	s.user = resp.User
	s.signedIn = true
	s.mu.Unlock()
	return nil
}

// Logout tells the server and clears local state either way.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.PostJSON(ctx, "/api/auth/logout", struct{}{}, nil)
	s.Expire()
	return err
}

// Expire drops the token and profile without a server call. Used when
// the server rejects the token mid-session.
func (s *Session) Expire() {
	s.client.ClearToken()
	s.mu.Lock()
	s.user = model.UserProfile{}
	s.signedIn = false
	s.mu.Unlock()
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signedIn && s.client.Token() != ""
}

// User returns the signed-in profile.
func (s *Session) User() model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// stored is what persists between CLI invocations: the bearer token and
// the profile record, nothing else.
type stored struct {
	Token string            `json:"token"`
	User  model.UserProfile `json:"user"`
}

// SaveFile persists the token and profile to path.
func (s *Session) SaveFile(path string) error {
	s.mu.Lock()
	st := stored{Token: s.client.Token(), User: s.user}
	s.mu.Unlock()
	b, err := json.Marshal(st)
	if err != nil { return err }
	return os.WriteFile(path, b, 0o600)
}

// LoadFile restores a previously saved session. A missing file leaves
// the session signed out without error.
func (s *Session) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) { return nil }
		return err
	}
	var st stored
	if err := json.Unmarshal(b, &st); err != nil { return err }
	if st.Token == "" { return nil }
	s.client.SetToken(st.Token)
	s.mu.Lock()
	s.user = st.User
	s.signedIn = true
	s.mu.Unlock()
	return nil
}

// ClearFile removes the persisted session.
func ClearFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) { return nil }
	return err
}
