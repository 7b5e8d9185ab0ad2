package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/domain"
)

// TagStore persists tags keyed directly by their WordPress term id.
type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) UpsertBatch(ctx context.Context, tags []domain.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO tags (id, name, slug) VALUES ")
	valueArgs := make([]interface{}, 0, len(tags)*3)

	for i, tag := range tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		valueArgs = append(valueArgs, tag.RemoteID, tag.Name, tag.Slug)
	}
	sb.WriteString(" ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return err
}

// LinkToPost replaces the post's tag set. Idempotent: relinking an
// unchanged set leaves the same rows behind.
func (s *TagStore) LinkToPost(ctx context.Context, postID int64, tagIDs []int64) error {
	e := GetExecutor(ctx, s.db)

	_, err := e.ExecContext(ctx,
		"DELETE FROM post_tags WHERE post_id = $1",
		postID,
	)
	if err != nil {
		return err
	}

	if len(tagIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO post_tags (post_id, tag_id) VALUES ")
	valueArgs := make([]interface{}, 0, len(tagIDs)+1)
	valueArgs = append(valueArgs, postID)

	for i, tagID := range tagIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($1, $%d)", i+2)
		valueArgs = append(valueArgs, tagID)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err = e.ExecContext(ctx, sb.String(), valueArgs...)
	return err
}

func (s *TagStore) GetByPostID(ctx context.Context, postID int64) ([]domain.Tag, error) {
	query := `
		SELECT t.id AS remote_id, t.name, t.slug
		FROM tags t
		INNER JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1`

	var rows []struct {
		RemoteID int64  `db:"remote_id"`
		Name     string `db:"name"`
		Slug     string `db:"slug"`
	}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, postID); err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, domain.Tag{RemoteID: r.RemoteID, Name: r.Name, Slug: r.Slug})
	}
	return tags, nil
}
