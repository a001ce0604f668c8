// Package session keeps the most recently uploaded call table per conversation.
package session

import (
	"sync"

	"github.com/MikeSquared-Agency/callhour/internal/calllog"
)

// SharedKey is the single key every conversation maps to in shared mode.
const SharedKey = "shared"

// Store holds one call table per conversation. A Put replaces the previous
// table for that conversation wholesale. Tables live only in memory.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*calllog.Table
	shared bool
}

// NewStore creates a store. With shared set, all conversations read and
// replace the same table, so every user sees every other user's upload.
func NewStore(shared bool) *Store {
	return &Store{
		tables: make(map[string]*calllog.Table),
		shared: shared,
	}
}

// Shared reports whether all conversations use one table.
func (s *Store) Shared() bool { return s.shared }

func (s *Store) key(conversationID string) string {
	if s.shared {
		return SharedKey
	}
	return conversationID
}

// Put replaces the conversation's table.
func (s *Store) Put(conversationID string, table *calllog.Table) {
	s.mu.Lock()
	s.tables[s.key(conversationID)] = table
	s.mu.Unlock()
}

// Get returns the conversation's current table.
func (s *Store) Get(conversationID string) (*calllog.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[s.key(conversationID)]
	return t, ok
}

// Delete drops the conversation's table and reports whether one existed.
func (s *Store) Delete(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(conversationID)
	_, ok := s.tables[k]
	delete(s.tables, k)
	return ok
}

// Len returns the number of stored tables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}
