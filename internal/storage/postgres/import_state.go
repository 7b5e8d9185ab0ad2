package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/domain"
)

type ImportStateStore struct {
	db *sqlx.DB
}

func NewImportStateStore(db *sqlx.DB) *ImportStateStore {
	return &ImportStateStore{db: db}
}

func (s *ImportStateStore) Get(ctx context.Context, resource string) (*domain.ImportState, error) {
	var state domain.ImportState
	query := `
		SELECT id, resource, last_import_at, last_remote_id, total_imported
		FROM import_state
		WHERE resource = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, query, resource)
	if errors.Is(err, sql.ErrNoRows) {
		// empty state for resources never imported before
		return &domain.ImportState{
			Resource:     resource,
			LastImportAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *ImportStateStore) Update(ctx context.Context, state *domain.ImportState) error {
	query := `
		INSERT INTO import_state (resource, last_import_at, last_remote_id, total_imported)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource) DO UPDATE SET
			last_import_at = EXCLUDED.last_import_at,
			last_remote_id = EXCLUDED.last_remote_id,
			total_imported = EXCLUDED.total_imported`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.Resource,
		state.LastImportAt,
		state.LastRemoteID,
		state.TotalImported,
	)
	return err
}
