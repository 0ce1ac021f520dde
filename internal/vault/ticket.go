package vault

import "sync"

// UnlockTicket scopes a user password to a single request. Use returns
// the password exactly once and zeroes it; the ticket is never
// persisted and never logged.
type UnlockTicket struct {
	mu       sync.Mutex
	password string
	spent    bool
}

// NewUnlockTicket wraps a freshly prompted password.
func NewUnlockTicket(password string) *UnlockTicket {
	return &UnlockTicket{password: password}
}

// Use consumes the ticket. The second return is false if the ticket was
// already spent.
func (t *UnlockTicket) Use() (string, bool) {
	if t == nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spent {
		return "", false
	}
	pw := t.password
	t.password = ""
	t.spent = true
	return pw, true
}

// Spent reports whether the ticket has been consumed.
func (t *UnlockTicket) Spent() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spent
}
