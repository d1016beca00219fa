package prices

import (
	"context"
	"time"
)

// Repository persists the price history. Uniqueness is not enforced here;
// whether an observation is new is decided by Service.Ingest.
type Repository interface {
	// FindLatest returns the most recently created record for (query, title).
	// The bool is false when none exists.
	FindLatest(ctx context.Context, query, title string) (PriceRecord, bool, error)
	// BulkInsert appends records in one transaction. CreatedAt is assigned
	// by the repository; any value set by the caller is ignored.
	BulkInsert(ctx context.Context, records []PriceRecord) error
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]PriceRecord, error)
	// DeleteOlderThan removes records with CreatedAt strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RepositoryOption configures a repository.
type RepositoryOption func(*repoOptions)

type repoOptions struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repoOptions) { o.now = now }
}

func buildRepoOptions(opts []RepositoryOption) repoOptions {
	o := repoOptions{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
