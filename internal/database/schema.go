package database

// created_at is unix nanoseconds in SQLite so ordering and the retention
// cutoff compare as plain integers.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		query      TEXT    NOT NULL,
		title      TEXT    NOT NULL,
		link       TEXT    NOT NULL,
		image      TEXT    NOT NULL,
		price      INTEGER NOT NULL CHECK (price >= 0),
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_query_title
		ON price_history (query, title, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_created_at
		ON price_history (created_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS price_history (
		id         BIGSERIAL PRIMARY KEY,
		query      TEXT        NOT NULL,
		title      TEXT        NOT NULL,
		link       TEXT        NOT NULL,
		image      TEXT        NOT NULL,
		price      INTEGER     NOT NULL CHECK (price >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_query_title
		ON price_history (query, title, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_created_at
		ON price_history (created_at)`,
}
