package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/domain"
)

type AuthorStore struct {
	db *sqlx.DB
}

func NewAuthorStore(db *sqlx.DB) *AuthorStore {
	return &AuthorStore{db: db}
}

// Upsert creates or refreshes the author keyed by its WordPress id and
// returns the local primary key.
func (s *AuthorStore) Upsert(ctx context.Context, author *domain.Author) (int64, error) {
	query := `
		INSERT INTO authors (remote_id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (remote_id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		author.RemoteID,
		author.Name,
		author.Slug,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	author.ID = id
	return id, nil
}
