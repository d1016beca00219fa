package prices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valeevte/pricetrail/internal/database"
	"github.com/valeevte/pricetrail/internal/shopping"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubSearcher returns a fixed item list and records the queries it saw.
type stubSearcher struct {
	mu      sync.Mutex
	items   []shopping.Item
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]shopping.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]shopping.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *stubSearcher) set(items ...shopping.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *stubSearcher) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestRepo(t *testing.T, clock *fakeClock) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db, WithClock(clock.Now))
}

func item(title, lprice string) shopping.Item {
	return shopping.Item{
		Title:  title,
		Link:   "https://shop.example/" + lprice,
		Image:  "https://img.example/" + lprice + ".jpg",
		LPrice: lprice,
	}
}
