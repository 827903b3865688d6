// Package session reads the signed-in user from the session-scoped store.
//
// Session issuance lives outside the engine; the store is only read here,
// except by tests and the CLI which seed it.
package session

import (
	"strconv"
	"strings"
	"sync"

	"github.com/embiggen/planetmap/internal/errors"
)

// UserIDKey is the key under which the signed-in user's id is stored.
const UserIDKey = "userId"

// Store is a session-scoped key-value store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Owners resolves the user id attached to new annotations.
//
// Labels may fall back to a fixed default owner when nobody is signed in;
// questions and comments never do.
type Owners struct {
	store         Store
	defaultOwner  int64
	labelFallback bool
}

// NewOwners creates a resolver. labelFallback enables the default owner for labels.
func NewOwners(store Store, defaultOwner int64, labelFallback bool) *Owners {
	return &Owners{store: store, defaultOwner: defaultOwner, labelFallback: labelFallback}
}

// Current returns the signed-in user's id, if any.
func (o *Owners) Current() (int64, bool) {
	raw, ok := o.store.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Require returns the signed-in user's id or an AuthError.
func (o *Owners) Require() (int64, error) {
	id, ok := o.Current()
	if !ok {
		return 0, errors.Auth("please sign in first")
	}
	return id, nil
}

// LabelOwner returns the id used for label reads and writes.
func (o *Owners) LabelOwner() (int64, error) {
	if id, ok := o.Current(); ok {
		return id, nil
	}
	if o.labelFallback && o.defaultOwner > 0 {
		return o.defaultOwner, nil
	}
	return 0, errors.Auth("please sign in to manage labels")
}
