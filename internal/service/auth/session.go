// Package auth holds the credentials of the signed-in user. It replaces the
// ambient token/user globals with one object shared by the components that
// need them.
package auth

import "sync"

// Session is the current authentication state. The zero value is signed out.
type Session struct {
	mu     sync.RWMutex
	token  string
	userID int64
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// Set stores the credentials of a signed-in user.
func (s *Session) Set(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.userID = userID
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = 0
}

// Token returns the access token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the signed-in user's id, 0 when unknown.
func (s *Session) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
