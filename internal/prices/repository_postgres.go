package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores the history in Postgres via a pgx pool.
type PostgresRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPostgresRepository(db *pgxpool.Pool, opts ...RepositoryOption) *PostgresRepository {
	o := buildRepoOptions(opts)
	return &PostgresRepository{db: db, now: o.now}
}

func (r *PostgresRepository) FindLatest(ctx context.Context, query, title string) (PriceRecord, bool, error) {
	var rec PriceRecord
	err := r.db.QueryRow(ctx, `
SELECT id, query, title, link, image, price, created_at
FROM price_history
WHERE query = $1 AND title = $2
ORDER BY created_at DESC, id DESC
LIMIT 1`, query, title).Scan(
		&rec.ID, &rec.Query, &rec.Title, &rec.Link, &rec.Image, &rec.Price, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceRecord{}, false, nil
		}
		return PriceRecord{}, false, err
	}
	return rec, true, nil
}

func (r *PostgresRepository) BulkInsert(ctx context.Context, records []PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	createdAt := r.now()
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(
				`INSERT INTO price_history (query, title, link, image, price, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
				rec.Query, rec.Title, rec.Link, rec.Image, rec.Price, createdAt)
		}
		br := tx.SendBatch(ctx, batch)
		for _, rec := range records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert %q: %w", rec.Title, err)
			}
		}
		return br.Close()
	})
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]PriceRecord, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, query, title, link, image, price, created_at
FROM price_history
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PriceRecord{}
	for rows.Next() {
		var rec PriceRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Title, &rec.Link, &rec.Image, &rec.Price, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM price_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
