package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Truncator struct {
	db *sqlx.DB
}

func NewTruncator(db *sqlx.DB) *Truncator {
	return &Truncator{db: db}
}

// TruncateAll wipes every table the import pipeline writes. Irreversible,
// no confirmation: callers gate it behind the truncate option.
func (t *Truncator) TruncateAll(ctx context.Context) error {
	_, err := GetExecutor(ctx, t.db).ExecContext(ctx,
		"TRUNCATE posts, authors, categories, tags, post_tags RESTART IDENTITY CASCADE",
	)
	return err
}
