package prices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository stores the history in the price_history table of a
// database opened with database.OpenSQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB, opts ...RepositoryOption) *SQLiteRepository {
	o := buildRepoOptions(opts)
	return &SQLiteRepository{db: db, now: o.now}
}

func (r *SQLiteRepository) FindLatest(ctx context.Context, query, title string) (PriceRecord, bool, error) {
	var rec PriceRecord
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
SELECT id, query, title, link, image, price, created_at
FROM price_history
WHERE query = ? AND title = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`, query, title).Scan(
		&rec.ID, &rec.Query, &rec.Title, &rec.Link, &rec.Image, &rec.Price, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PriceRecord{}, false, nil
		}
		return PriceRecord{}, false, err
	}
	rec.CreatedAt = time.Unix(0, createdAt)
	return rec, true, nil
}

func (r *SQLiteRepository) BulkInsert(ctx context.Context, records []PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_history (query, title, link, image, price, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	createdAt := r.now().UnixNano()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Query, rec.Title, rec.Link, rec.Image, rec.Price, createdAt); err != nil {
			return fmt.Errorf("insert %q: %w", rec.Title, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]PriceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
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
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Title, &rec.Link, &rec.Image, &rec.Price, &createdAt); err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM price_history WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
