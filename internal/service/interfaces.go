package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"wp_importer/internal/domain"
	"wp_importer/internal/source/wordpress"
)

type Source interface {
	FetchPosts(ctx context.Context, resource string, startPage, perPage int, fetchAll bool) ([]wordpress.RawPost, error)
}

type Transformer interface {
	Transform(ctx context.Context, raw wordpress.RawPost) (domain.Post, error)
}

// ContentProcessor rewrites a post body and mirrors the images it
// references. MirrorImages must see the pre-rewrite body.
type ContentProcessor interface {
	Rewrite(body string) string
	MirrorImages(ctx context.Context, body string)
}

type PostStore interface {
	FindByRemoteID(ctx context.Context, remoteID int64) (*domain.Post, error)
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	SetAuthor(ctx context.Context, postID, authorID int64) error
	SetCategory(ctx context.Context, postID, categoryID int64) error
}

type AuthorStore interface {
	Upsert(ctx context.Context, author *domain.Author) (int64, error)
}

type CategoryStore interface {
	Upsert(ctx context.Context, category *domain.Category) (int64, error)
}

type TagStore interface {
	UpsertBatch(ctx context.Context, tags []domain.Tag) error
	LinkToPost(ctx context.Context, postID int64, tagIDs []int64) error
}

type ImportStateStore interface {
	Get(ctx context.Context, resource string) (*domain.ImportState, error)
	Update(ctx context.Context, state *domain.ImportState) error
}

type Truncator interface {
	TruncateAll(ctx context.Context) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, post *domain.Post, isNew bool) error
	Close() error
}
