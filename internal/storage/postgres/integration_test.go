//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wp_importer/internal/domain"
	"wp_importer/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_posts.up.sql"),
			filepath.Join(migrationsPath, "002_create_import_state.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM post_tags")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM tags")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM authors")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM import_state")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) samplePost() *domain.Post {
	now := time.Now().Truncate(time.Microsecond)
	return &domain.Post{
		RemoteID:      123,
		Type:          "post",
		Title:         "Test Post",
		Slug:          "test-post",
		Link:          "https://example.com/test-post",
		Excerpt:       "teaser",
		Content:       "body",
		Format:        utils.Ptr("standard"),
		Status:        "publish",
		FeaturedImage: utils.Ptr("hero.jpg"),
		PublishedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *PostgresIntegrationSuite) TestPostStore_CreateAndFind() {
	store := NewPostStore(s.db)
	post := s.samplePost()

	id, err := store.Create(s.ctx, post)
	s.NoError(err)
	s.Greater(id, int64(0))
	s.Equal(id, post.ID)

	found, err := store.FindByRemoteID(s.ctx, 123)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal("Test Post", found.Title)
	s.Require().NotNil(found.Format)
	s.Equal("standard", *found.Format)
	s.Require().NotNil(found.FeaturedImage)
	s.Equal("hero.jpg", *found.FeaturedImage)
}

func (s *PostgresIntegrationSuite) TestPostStore_FindMissingReturnsNil() {
	store := NewPostStore(s.db)

	found, err := store.FindByRemoteID(s.ctx, 999)
	s.NoError(err)
	s.Nil(found)
}

func (s *PostgresIntegrationSuite) TestPostStore_Update() {
	store := NewPostStore(s.db)
	post := s.samplePost()

	_, err := store.Create(s.ctx, post)
	s.Require().NoError(err)

	post.Title = "Updated Title"
	post.UpdatedAt = post.UpdatedAt.Add(time.Hour)
	s.NoError(store.Update(s.ctx, post))

	found, err := store.FindByRemoteID(s.ctx, 123)
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal("Updated Title", found.Title)
}

func (s *PostgresIntegrationSuite) TestPostStore_SetAuthorAndCategory() {
	posts := NewPostStore(s.db)
	authors := NewAuthorStore(s.db)
	categories := NewCategoryStore(s.db)

	post := s.samplePost()
	_, err := posts.Create(s.ctx, post)
	s.Require().NoError(err)

	authorID, err := authors.Upsert(s.ctx, &domain.Author{RemoteID: 7, Name: "Lee", Slug: "lee"})
	s.Require().NoError(err)
	categoryID, err := categories.Upsert(s.ctx, &domain.Category{RemoteID: 3, Name: "News", Slug: "news"})
	s.Require().NoError(err)

	s.NoError(posts.SetAuthor(s.ctx, post.ID, authorID))
	s.NoError(posts.SetCategory(s.ctx, post.ID, categoryID))

	var got struct {
		AuthorID   int64 `db:"author_id"`
		CategoryID int64 `db:"category_id"`
	}
	err = s.db.GetContext(s.ctx, &got,
		"SELECT author_id, category_id FROM posts WHERE id = $1", post.ID)
	s.NoError(err)
	s.Equal(authorID, got.AuthorID)
	s.Equal(categoryID, got.CategoryID)
}

func (s *PostgresIntegrationSuite) TestAuthorStore_UpsertIsStable() {
	store := NewAuthorStore(s.db)

	id1, err := store.Upsert(s.ctx, &domain.Author{RemoteID: 7, Name: "Lee", Slug: "lee"})
	s.NoError(err)

	id2, err := store.Upsert(s.ctx, &domain.Author{RemoteID: 7, Name: "Lee O.", Slug: "lee"})
	s.NoError(err)
	s.Equal(id1, id2)

	var name string
	err = s.db.GetContext(s.ctx, &name, "SELECT name FROM authors WHERE id = $1", id1)
	s.NoError(err)
	s.Equal("Lee O.", name)
}

func (s *PostgresIntegrationSuite) TestTagStore_RelinkIsIdempotent() {
	posts := NewPostStore(s.db)
	tags := NewTagStore(s.db)

	post := s.samplePost()
	_, err := posts.Create(s.ctx, post)
	s.Require().NoError(err)

	tagSet := []domain.Tag{{RemoteID: 11, Name: "paper", Slug: "paper"}, {RemoteID: 12, Name: "print", Slug: "print"}}
	s.Require().NoError(tags.UpsertBatch(s.ctx, tagSet))
	s.Require().NoError(tags.LinkToPost(s.ctx, post.ID, []int64{11, 12}))
	s.Require().NoError(tags.LinkToPost(s.ctx, post.ID, []int64{11, 12}))

	linked, err := tags.GetByPostID(s.ctx, post.ID)
	s.NoError(err)
	s.Len(linked, 2)

	// relink with fewer tags drops the stale link
	s.Require().NoError(tags.LinkToPost(s.ctx, post.ID, []int64{11}))
	linked, err = tags.GetByPostID(s.ctx, post.ID)
	s.NoError(err)
	s.Len(linked, 1)
	s.Equal(int64(11), linked[0].RemoteID)
}

func (s *PostgresIntegrationSuite) TestTruncator_WipesEverything() {
	posts := NewPostStore(s.db)
	tags := NewTagStore(s.db)

	post := s.samplePost()
	_, err := posts.Create(s.ctx, post)
	s.Require().NoError(err)
	s.Require().NoError(tags.UpsertBatch(s.ctx, []domain.Tag{{RemoteID: 11, Name: "paper"}}))
	s.Require().NoError(tags.LinkToPost(s.ctx, post.ID, []int64{11}))

	s.NoError(NewTruncator(s.db).TruncateAll(s.ctx))

	for _, table := range []string{"posts", "authors", "categories", "tags", "post_tags"} {
		var count int
		err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM "+table)
		s.NoError(err)
		s.Equal(0, count, table)
	}
}

func (s *PostgresIntegrationSuite) TestImportStateStore_GetAndUpdate() {
	store := NewImportStateStore(s.db)

	state, err := store.Get(s.ctx, "posts")
	s.NoError(err)
	s.Require().NotNil(state)
	s.True(state.LastImportAt.IsZero())

	state.LastImportAt = time.Now().Truncate(time.Microsecond)
	state.LastRemoteID = 42
	state.TotalImported = 5
	s.NoError(store.Update(s.ctx, state))

	got, err := store.Get(s.ctx, "posts")
	s.NoError(err)
	s.Equal(int64(42), got.LastRemoteID)
	s.Equal(int64(5), got.TotalImported)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_RollsBack() {
	posts := NewPostStore(s.db)
	tm := NewTransactionManager(s.db)

	err := tm.WithTransaction(s.ctx, func(txCtx context.Context) error {
		if _, err := posts.Create(txCtx, s.samplePost()); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	found, err := posts.FindByRemoteID(s.ctx, 123)
	s.NoError(err)
	s.Nil(found)
}
