// Package credits holds the client's cached view of the server-owned credit
// balance. The cache exists for display and estimation only: it is always
// overwritten wholesale from authoritative responses, never patched.
package credits

import "sync"

// Store ...
type Store struct {
	mu      sync.Mutex
	balance int
	known   bool
}

// NewStore ...
func NewStore() *Store {
	return &Store{}
}

// Set replaces the cached balance with an authoritative value.
func (s *Store) Set(balance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
	s.known = true
}

// Get returns the cached balance and whether any authoritative value has been
// seen yet.
func (s *Store) Get() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, s.known
}
