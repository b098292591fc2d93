package client

import "sync"

// AuthStore holds the mutable auth session for a Client: token, the
// authenticated record, and whether the session is a superuser one.
// It is safe for concurrent use; observers registered with OnChange run
// after every Save or Clear.
type AuthStore struct {
	mu        sync.RWMutex
	token     string
	record    map[string]any
	superuser bool
	observers []func()
}

// NewAuthStore creates an empty AuthStore.
func NewAuthStore() *AuthStore {
	return &AuthStore{}
}

// Save replaces the session and notifies observers.
func (s *AuthStore) Save(token string, record map[string]any, superuser bool) {
	s.mu.Lock()
	s.token = token
	s.record = record
	s.superuser = superuser
	observers := append([]func(){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// Clear drops the session and notifies observers.
func (s *AuthStore) Clear() {
	s.Save("", nil, false)
}

// Token returns the current bearer token, empty when logged out.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Record returns the authenticated record as saved at login time.
func (s *AuthStore) Record() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// IsValid reports whether a session is present.
func (s *AuthStore) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// IsSuperuser reports whether the current session is a superuser one.
func (s *AuthStore) IsSuperuser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.superuser
}

// OnChange registers an observer invoked after every session change,
// including Clear. Observers cannot be removed; register once at startup.
func (s *AuthStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
