package prices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valeevte/pricetrail/internal/lock"
	"github.com/valeevte/pricetrail/internal/shopping"
)

const DefaultRetention = 180 * 24 * time.Hour

// Searcher is the subset of shopping.Client the service needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]shopping.Item, error)
}

// IngestResult is what one ingestion run observed and wrote.
type IngestResult struct {
	// Items is the fetched list as returned by the API, for rendering.
	Items []shopping.Item
	// Inserted holds the records appended to the history.
	Inserted []PriceRecord
	// Rejected counts items skipped because their price did not parse.
	Rejected int
}

// Service runs search, ingestion and retention against a Repository.
type Service struct {
	repo      Repository
	search    Searcher
	locks     lock.Locker
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLocker(l lock.Locker) ServiceOption { return func(s *Service) { s.locks = l } }

func WithRetention(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithNow(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }

func WithLogger(l *slog.Logger) ServiceOption { return func(s *Service) { s.log = l } }

func NewService(repo Repository, search Searcher, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		search:    search,
		retention: DefaultRetention,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.locks == nil {
		s.locks = lock.NewLocal()
	}
	s.log = s.log.With("component", "prices")
	return s
}

// Retention is the age beyond which Cleanup deletes records.
func (s *Service) Retention() time.Duration { return s.retention }

// Search fetches results for query without touching the history.
func (s *Service) Search(ctx context.Context, query string) ([]shopping.Item, error) {
	items, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return items, nil
}

// Ingest fetches results for query and appends a record for every title that
// has no history yet or whose price differs from its latest record.
//
// A page can list the same normalized title more than once; only its lowest
// price is considered, so an unchanged page never writes anything.
//
// The compare-then-insert step holds the per-query lock, so concurrent
// ingestions of the same query see each other's writes.
func (s *Service) Ingest(ctx context.Context, query string) (IngestResult, error) {
	items, err := s.Search(ctx, query)
	if err != nil {
		return IngestResult{}, err
	}
	res := IngestResult{Items: items}

	// one representative per title, in first-seen order
	var reps []shopping.Normalized
	byTitle := make(map[string]int)
	for _, raw := range items {
		n, err := shopping.Normalize(raw)
		if err != nil {
			if !errors.Is(err, shopping.ErrInvalidPrice) {
				return res, err
			}
			res.Rejected++
			s.log.Warn("skipping item with invalid price",
				"query", query, "title", raw.Title, "lprice", raw.LPrice)
			continue
		}
		if i, ok := byTitle[n.Title]; ok {
			if n.Price < reps[i].Price {
				reps[i] = n
			}
			continue
		}
		byTitle[n.Title] = len(reps)
		reps = append(reps, n)
	}

	unlock, err := s.locks.Lock(ctx, "ingest:"+query)
	if err != nil {
		return res, fmt.Errorf("lock %q: %w", query, err)
	}
	defer unlock()

	fresh := make([]bool, len(reps))
	g, gctx := errgroup.WithContext(ctx)
	for i, n := range reps {
		i, n := i, n // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			latest, found, err := s.repo.FindLatest(gctx, query, n.Title)
			if err != nil {
				return fmt.Errorf("find latest %q: %w", n.Title, err)
			}
			fresh[i] = !found || latest.Price != n.Price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	var batch []PriceRecord
	for i, n := range reps {
		if !fresh[i] {
			continue
		}
		batch = append(batch, PriceRecord{
			Query: query,
			Title: n.Title,
			Link:  n.Link,
			Image: n.Image,
			Price: n.Price,
		})
	}

	if len(batch) > 0 {
		if err := s.repo.BulkInsert(ctx, batch); err != nil {
			return res, fmt.Errorf("bulk insert: %w", err)
		}
	}
	res.Inserted = batch

	s.log.Info("ingestion complete",
		"query", query, "fetched", len(items), "inserted", len(batch), "rejected", res.Rejected)
	return res, nil
}

// History returns the full price history, newest first.
func (s *Service) History(ctx context.Context) ([]PriceRecord, error) {
	return s.repo.ListAll(ctx)
}

// Cleanup deletes records older than the retention window.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	s.log.Info("cleanup complete", "deleted", n, "cutoff", cutoff)
	return n, nil
}
