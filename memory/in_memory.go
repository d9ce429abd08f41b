package memory

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an entry id is unknown.
var ErrNotFound = errors.New("memory not found")

// Entry is a stored memory.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Timestamp time.Time
	Relevance float64
}

// Query filters Search results.
type Query struct {
	Term         string // Substring match on Content (empty matches all)
	Category     string // Matches Metadata["category"] when non-empty
	MaxResults   int    // Defaults to 10
	MinRelevance float64
}

// Store persists memories.
type Store interface {
	Save(content string, metadata map[string]string) (string, error)
	Load(id string) (Entry, error)
	Delete(id string) error
	Search(q Query) ([]Entry, error)
	Recent(n int) ([]Entry, error)
	Count() int
}

// decayHours is the time constant of relevance decay.
const decayHours = 168.0

// InMemoryStore is a naive process‑local Store.
//
// Concurrency: protected by RWMutex.
// Search: linear scan with case-sensitive substring matching.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewInMemoryStore creates a new in-memory memory store
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryStore{
		entries: make(map[string]Entry),
		now:     opts.Now,
	}
}

// Options configures an InMemoryStore.
type Options struct {
	Now func() time.Time // Clock, overridable in tests
}

// Save stores content with a copy of metadata and returns the new id.
func (m *InMemoryStore) Save(content string, metadata map[string]string) (string, error) {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	e := Entry{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  md,
		Timestamp: m.now(),
		Relevance: 1.0,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return e.ID, nil
}

// Load returns a copy of the entry.
func (m *InMemoryStore) Load(id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return copyEntry(e), nil
}

// Delete removes an entry by id.
func (m *InMemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// Search returns matching entries ordered by relevance (highest first, ties
// broken by recency), truncated to q.MaxResults.
func (m *InMemoryStore) Search(q Query) ([]Entry, error) {
	limit := q.MaxResults
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	results := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !strings.Contains(e.Content, q.Term) || e.Relevance < q.MinRelevance {
			continue
		}
		if q.Category != "" && e.Metadata["category"] != q.Category {
			continue
		}
		results = append(results, copyEntry(e))
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Recent returns up to n entries, newest first.
func (m *InMemoryStore) Recent(n int) ([]Entry, error) {
	m.mu.RLock()
	all := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, copyEntry(e))
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Consolidate decays the relevance of every entry according to its age.
func (m *InMemoryStore) Consolidate() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		age := now.Sub(e.Timestamp).Hours()
		if age <= 0 {
			continue
		}
		e.Relevance *= math.Exp(-age / decayHours)
		m.entries[id] = e
	}
}

// ClearOlderThan removes entries older than maxAge and returns how many were removed.
func (m *InMemoryStore) ClearOlderThan(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if e.Timestamp.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored entries.
func (m *InMemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func copyEntry(e Entry) Entry {
	md := make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		md[k] = v
	}
	e.Metadata = md
	return e
}
