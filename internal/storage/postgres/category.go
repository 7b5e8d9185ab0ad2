package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) Upsert(ctx context.Context, category *domain.Category) (int64, error) {
	query := `
		INSERT INTO categories (remote_id, name, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (remote_id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		category.RemoteID,
		category.Name,
		category.Slug,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	category.ID = id
	return id, nil
}
