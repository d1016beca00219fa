package prices

import "time"

// PriceRecord is one observation in the append-only price history.
// A price change produces a new record; existing records are never updated.
type PriceRecord struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Image     string    `json:"image"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
