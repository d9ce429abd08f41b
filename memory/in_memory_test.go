package memory

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var _ Store = (*InMemoryStore)(nil)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore() (*InMemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewInMemoryStore(func(o *Options) { o.Now = clock.Now }), clock
}

func TestInMemoryStore_SaveLoadDelete(t *testing.T) {
	s, _ := newStore()
	md := map[string]string{"category": "note"}
	id, err := s.Save("Important information to remember", md)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// metadata is copied on save
	md["category"] = "changed"

	e, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "Important information to remember", e.Content)
	assert.Equal(t, "note", e.Metadata["category"])
	assert.Equal(t, 1.0, e.Relevance)
	assert.Equal(t, 1, s.Count())

	require.NoError(t, s.Delete(id))
	assert.ErrorIs(t, s.Delete(id), ErrNotFound)
	_, err = s.Load(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Count())
}

func TestInMemoryStore_Search(t *testing.T) {
	s, clock := newStore()
	for i, c := range []string{"alpha fact", "beta fact", "gamma note"} {
		cat := "fact"
		if i == 2 {
			cat = "note"
		}
		_, err := s.Save(c, map[string]string{"category": cat})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	res, err := s.Search(Query{Term: "fact"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	// equal relevance: newest first
	assert.Equal(t, "beta fact", res[0].Content)

	res, _ = s.Search(Query{Category: "note"})
	require.Len(t, res, 1)
	assert.Equal(t, "gamma note", res[0].Content)

	res, _ = s.Search(Query{MaxResults: 1})
	assert.Len(t, res, 1)

	res, _ = s.Search(Query{MinRelevance: 2})
	assert.Empty(t, res)
}

func TestInMemoryStore_Recent(t *testing.T) {
	s, clock := newStore()
	for _, c := range []string{"one", "two", "three"} {
		_, _ = s.Save(c, nil)
		clock.Advance(time.Second)
	}
	res, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "three", res[0].Content)
	assert.Equal(t, "two", res[1].Content)
}

func TestInMemoryStore_ConsolidateAndClear(t *testing.T) {
	s, clock := newStore()
	oldID, _ := s.Save("old", nil)
	clock.Advance(decayHours * time.Hour)
	newID, _ := s.Save("new", nil)

	s.Consolidate()
	old, _ := s.Load(oldID)
	fresh, _ := s.Load(newID)
	assert.InDelta(t, math.Exp(-1), old.Relevance, 1e-9)
	assert.Equal(t, 1.0, fresh.Relevance)

	res, _ := s.Search(Query{})
	require.Len(t, res, 2)
	assert.Equal(t, "new", res[0].Content)

	removed := s.ClearOlderThan(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Count())
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Save("x", nil)
			_, _ = s.Search(Query{Term: "x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Count())
}
