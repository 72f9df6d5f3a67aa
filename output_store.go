package taskflow

import (
	"sort"
	"sync"
)

// OutputStore accumulates every completed step's outputs under "<namespace>.<key>".
// Keys are only added or overwritten during a run, never removed.
type OutputStore struct {
	mu     sync.RWMutex
	values map[string]Value
}

// NewOutputStore creates an empty store
func NewOutputStore() *OutputStore {
	return &OutputStore{values: make(map[string]Value)}
}

// StoreKey joins a namespace and an output key
func StoreKey(namespace, key string) string {
	return namespace + "." + key
}

// Merge writes one namespace's outputs. Last write wins.
func (s *OutputStore) Merge(namespace string, outputs Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range outputs {
		s.values[StoreKey(namespace, k)] = v
	}
}

// Commit writes several namespaces under one lock so readers see all of them or none
func (s *OutputStore) Commit(batch map[string]Values) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ns, outputs := range batch {
		for k, v := range outputs {
			s.values[StoreKey(ns, k)] = v
		}
	}
}

// Get returns the value stored under key
func (s *OutputStore) Get(key string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Lookup returns the value for key; null values count as absent
func (s *OutputStore) Lookup(key string) Optional[Value] {
	v, ok := s.Get(key)
	if !ok {
		return None[Value]()
	}
	return presentValue(v)
}

// Has reports whether key is stored
func (s *OutputStore) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of stored keys
func (s *OutputStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns every stored key in sorted order
func (s *OutputStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the whole store
func (s *OutputStore) Snapshot() map[string]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Restore replaces the contents; only for rehydrating a workflow before it runs
func (s *OutputStore) Restore(values map[string]Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]Value, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}
