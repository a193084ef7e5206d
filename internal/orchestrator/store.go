package orchestrator

import (
	"sync"

	"github.com/relaydesk/inbox-pilot/constants"
)

// ItemState is the externally visible processing state of one inbox file.
type ItemState struct {
	Status    constants.ItemStatus `json:"status"`
	LastError string               `json:"last_error,omitempty"`
}

// itemStore holds one record per file name. It is owned exclusively by the
// Orchestrator; callers only ever see copies. A file with no record is
// implicitly NEW, so the store never needs pre-population.
type itemStore struct {
	mu    sync.RWMutex
	items map[string]ItemState
}

func newItemStore() *itemStore {
	return &itemStore{items: make(map[string]ItemState)}
}

// Get returns the current state, defaulting to NEW for unknown files.
func (s *itemStore) Get(file string) ItemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.items[file]; ok {
		return st
	}
	return ItemState{Status: constants.ItemStatusNew}
}

// SetProcessing marks a run start. Entering PROCESSING clears any prior error.
func (s *itemStore) SetProcessing(file string) ItemState {
	return s.set(file, ItemState{Status: constants.ItemStatusProcessing})
}

// SetProcessed commits a terminal success.
func (s *itemStore) SetProcessed(file string) ItemState {
	return s.set(file, ItemState{Status: constants.ItemStatusProcessed})
}

// SetError commits a terminal failure with its message.
func (s *itemStore) SetError(file, msg string) ItemState {
	return s.set(file, ItemState{Status: constants.ItemStatusError, LastError: msg})
}

// SetNew returns a cancelled item to the re-entrant state, clearing any error.
func (s *itemStore) SetNew(file string) ItemState {
	return s.set(file, ItemState{Status: constants.ItemStatusNew})
}

func (s *itemStore) set(file string, st ItemState) ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[file] = st
	return st
}

// Has reports whether the store holds an explicit record for file.
func (s *itemStore) Has(file string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[file]
	return ok
}

// Snapshot returns a copy of every known record.
func (s *itemStore) Snapshot() map[string]ItemState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]ItemState, len(s.items))
	for f, st := range s.items {
		out[f] = st
	}
	return out
}
