// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store is an in-memory session registry keyed by opaque session
// identifiers. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*State)}
}

// Create registers a new session under a fresh identifier.
func (st *Store) Create() *State {
	st.mu.Lock()
	defer st.mu.Unlock()
	key := uuid.NewString()
	s := newState(key)
	st.sessions[key] = s
	return s
}

// Get looks up a session by identifier.
func (st *Store) Get(key string) (*State, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Remove drops a session from the store. The caller is responsible for
// releasing its remote resources first.
func (st *Store) Remove(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ForEach calls fn for every registered session. The snapshot is taken
// under the read lock; fn runs without it, so fn may call back into the
// store.
func (st *Store) ForEach(fn func(*State)) {
	st.mu.RLock()
	snapshot := make([]*State, 0, len(st.sessions))
	for _, s := range st.sessions {
		snapshot = append(snapshot, s)
	}
	st.mu.RUnlock()
	for _, s := range snapshot {
		fn(s)
	}
}
