package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/domain"
)

type PostStore struct {
	db *sqlx.DB
}

func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

type postRow struct {
	ID            int64          `db:"id"`
	RemoteID      int64          `db:"remote_id"`
	Type          string         `db:"type"`
	Title         string         `db:"title"`
	Slug          string         `db:"slug"`
	Link          string         `db:"link"`
	Sticky        bool           `db:"sticky"`
	Excerpt       string         `db:"excerpt"`
	Content       string         `db:"content"`
	Format        sql.NullString `db:"format"`
	Status        string         `db:"status"`
	FeaturedImage sql.NullString `db:"featured_image"`
	PublishedAt   time.Time      `db:"published_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r postRow) toDomain() *domain.Post {
	post := &domain.Post{
		ID:          r.ID,
		RemoteID:    r.RemoteID,
		Type:        r.Type,
		Title:       r.Title,
		Slug:        r.Slug,
		Link:        r.Link,
		Sticky:      r.Sticky,
		Excerpt:     r.Excerpt,
		Content:     r.Content,
		Status:      r.Status,
		PublishedAt: r.PublishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Format.Valid {
		post.Format = &r.Format.String
	}
	if r.FeaturedImage.Valid {
		post.FeaturedImage = &r.FeaturedImage.String
	}
	return post
}

// FindByRemoteID returns the post keyed by the WordPress id, or nil when no
// such post exists.
func (s *PostStore) FindByRemoteID(ctx context.Context, remoteID int64) (*domain.Post, error) {
	query := `
		SELECT id, remote_id, type, title, slug, link, sticky, excerpt,
		       content, format, status, featured_image,
		       published_at, created_at, updated_at
		FROM posts
		WHERE remote_id = $1`

	var row postRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (s *PostStore) Create(ctx context.Context, post *domain.Post) (int64, error) {
	query := `
		INSERT INTO posts (
			remote_id, type, title, slug, link, sticky, excerpt, content,
			format, status, featured_image, published_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		post.RemoteID,
		post.Type,
		post.Title,
		post.Slug,
		post.Link,
		post.Sticky,
		post.Excerpt,
		post.Content,
		post.Format,
		post.Status,
		post.FeaturedImage,
		post.PublishedAt,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	post.ID = id
	return id, nil
}

func (s *PostStore) Update(ctx context.Context, post *domain.Post) error {
	query := `
		UPDATE posts SET
			type = $1,
			title = $2,
			slug = $3,
			link = $4,
			sticky = $5,
			excerpt = $6,
			content = $7,
			format = $8,
			status = $9,
			featured_image = $10,
			published_at = $11,
			updated_at = $12
		WHERE id = $13`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		post.Type,
		post.Title,
		post.Slug,
		post.Link,
		post.Sticky,
		post.Excerpt,
		post.Content,
		post.Format,
		post.Status,
		post.FeaturedImage,
		post.PublishedAt,
		post.UpdatedAt,
		post.ID,
	)
	return err
}

func (s *PostStore) SetAuthor(ctx context.Context, postID, authorID int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE posts SET author_id = $1 WHERE id = $2",
		authorID, postID,
	)
	return err
}

func (s *PostStore) SetCategory(ctx context.Context, postID, categoryID int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE posts SET category_id = $1 WHERE id = $2",
		categoryID, postID,
	)
	return err
}
