package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wp_importer/internal/domain"
	"wp_importer/internal/service/mocks"
	"wp_importer/internal/source/wordpress"
)

type ImporterTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source     *mocks.MockSource
	transform  *mocks.MockTransformer
	content    *mocks.MockContentProcessor
	posts      *mocks.MockPostStore
	authors    *mocks.MockAuthorStore
	categories *mocks.MockCategoryStore
	tags       *mocks.MockTagStore
	state      *mocks.MockImportStateStore
	truncator  *mocks.MockTruncator
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher

	importer *Importer
	logger   *slog.Logger
}

func (s *ImporterTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.transform = mocks.NewMockTransformer(s.ctrl)
	s.content = mocks.NewMockContentProcessor(s.ctrl)
	s.posts = mocks.NewMockPostStore(s.ctrl)
	s.authors = mocks.NewMockAuthorStore(s.ctrl)
	s.categories = mocks.NewMockCategoryStore(s.ctrl)
	s.tags = mocks.NewMockTagStore(s.ctrl)
	s.state = mocks.NewMockImportStateStore(s.ctrl)
	s.truncator = mocks.NewMockTruncator(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.importer = NewImporter(
		s.source,
		s.transform,
		s.content,
		s.posts,
		s.authors,
		s.categories,
		s.tags,
		s.state,
		s.truncator,
		s.txManager,
		s.publisher,
		s.logger,
	)
}

func (s *ImporterTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestImporterTestSuite(t *testing.T) {
	suite.Run(t, new(ImporterTestSuite))
}

func (s *ImporterTestSuite) expectTransaction(ctx context.Context) {
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (s *ImporterTestSuite) expectStateUpdate(ctx context.Context) {
	s.state.EXPECT().Get(ctx, "posts").Return(&domain.ImportState{Resource: "posts"}, nil)
	s.state.EXPECT().Update(ctx, gomock.Any()).Return(nil)
}

func (s *ImporterTestSuite) TestImport_NewPost() {
	ctx := context.Background()
	now := time.Now()

	raw := wordpress.RawPost{ID: 10}
	post := domain.Post{
		RemoteID:    10,
		Title:       "First Post",
		Content:     "raw content",
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
		Author:      domain.Author{RemoteID: 7, Name: "Lee"},
		Category:    domain.Category{RemoteID: 3, Name: "News"},
		Tags:        []domain.Tag{{RemoteID: 1, Name: "paper"}},
	}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return([]wordpress.RawPost{raw}, nil)
	s.transform.EXPECT().Transform(ctx, raw).Return(post, nil)

	s.content.EXPECT().MirrorImages(ctx, "raw content")
	s.content.EXPECT().Rewrite("raw content").Return("rewritten content")

	s.expectTransaction(ctx)

	s.posts.EXPECT().FindByRemoteID(ctx, int64(10)).Return(nil, nil)
	s.posts.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, p *domain.Post) (int64, error) {
			s.Equal("rewritten content", p.Content)
			p.ID = 100
			return 100, nil
		},
	)

	s.authors.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(5), nil)
	s.posts.EXPECT().SetAuthor(ctx, int64(100), int64(5)).Return(nil)
	s.categories.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(6), nil)
	s.posts.EXPECT().SetCategory(ctx, int64(100), int64(6)).Return(nil)
	s.tags.EXPECT().UpsertBatch(ctx, post.Tags).Return(nil)
	s.tags.EXPECT().LinkToPost(ctx, int64(100), []int64{1}).Return(nil)

	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(nil)

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.Imported)
	s.Equal(0, stats.Updated)
	s.Equal(0, stats.Unchanged)
	s.Equal(1, stats.Published)
}

func (s *ImporterTestSuite) TestImport_UpdatedPost() {
	ctx := context.Background()
	now := time.Now()
	older := now.Add(-1 * time.Hour)

	raw := wordpress.RawPost{ID: 10}
	post := domain.Post{
		RemoteID:  10,
		Title:     "Fresh Title",
		Content:   "raw content",
		UpdatedAt: now,
	}
	existing := &domain.Post{ID: 100, RemoteID: 10, Title: "Stale Title", UpdatedAt: older}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return([]wordpress.RawPost{raw}, nil)
	s.transform.EXPECT().Transform(ctx, raw).Return(post, nil)
	s.content.EXPECT().MirrorImages(ctx, "raw content")
	s.content.EXPECT().Rewrite("raw content").Return("rewritten content")

	s.expectTransaction(ctx)

	s.posts.EXPECT().FindByRemoteID(ctx, int64(10)).Return(existing, nil)
	s.posts.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, p *domain.Post) error {
			s.Equal(int64(100), p.ID)
			s.Equal("Fresh Title", p.Title)
			return nil
		},
	)
	s.tags.EXPECT().LinkToPost(ctx, int64(100), []int64{}).Return(nil)

	s.publisher.EXPECT().Publish(ctx, gomock.Any(), false).Return(nil)

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(0, stats.Imported)
	s.Equal(1, stats.Updated)
	s.Equal(0, stats.Unchanged)
	s.Equal(1, stats.Published)
}

// An unchanged post must not be updated or announced, but its associations
// are still relinked.
func (s *ImporterTestSuite) TestImport_UnchangedPostRelinks() {
	ctx := context.Background()
	now := time.Now()

	raw := wordpress.RawPost{ID: 10}
	post := domain.Post{
		RemoteID:  10,
		Content:   "raw content",
		UpdatedAt: now,
		Author:    domain.Author{RemoteID: 7},
		Tags:      []domain.Tag{{RemoteID: 1}},
	}
	existing := &domain.Post{ID: 100, RemoteID: 10, UpdatedAt: now}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return([]wordpress.RawPost{raw}, nil)
	s.transform.EXPECT().Transform(ctx, raw).Return(post, nil)
	s.content.EXPECT().MirrorImages(ctx, "raw content")
	s.content.EXPECT().Rewrite("raw content").Return("rewritten content")

	s.expectTransaction(ctx)

	s.posts.EXPECT().FindByRemoteID(ctx, int64(10)).Return(existing, nil)

	s.authors.EXPECT().Upsert(ctx, gomock.Any()).Return(int64(5), nil)
	s.posts.EXPECT().SetAuthor(ctx, int64(100), int64(5)).Return(nil)
	s.tags.EXPECT().UpsertBatch(ctx, post.Tags).Return(nil)
	s.tags.EXPECT().LinkToPost(ctx, int64(100), []int64{1}).Return(nil)

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(0, stats.Imported)
	s.Equal(0, stats.Updated)
	s.Equal(1, stats.Unchanged)
	s.Equal(0, stats.Published)
}

func (s *ImporterTestSuite) TestImport_TransformErrorSkipsRecord() {
	ctx := context.Background()

	raw := wordpress.RawPost{ID: 10, Date: "not-a-date"}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return([]wordpress.RawPost{raw}, nil)
	s.transform.EXPECT().Transform(ctx, raw).Return(domain.Post{}, errors.New("malformed date"))

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.Errors)
	s.Equal(0, stats.Imported)
}

func (s *ImporterTestSuite) TestImport_TruncateRunsFirst() {
	ctx := context.Background()

	truncated := s.truncator.EXPECT().TruncateAll(ctx).Return(nil)
	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return(nil, nil).After(truncated)

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{Truncate: true})

	s.NoError(err)
	s.Equal(0, stats.Fetched)
}

func (s *ImporterTestSuite) TestImport_TruncateErrorAborts() {
	ctx := context.Background()

	s.truncator.EXPECT().TruncateAll(ctx).Return(errors.New("db down"))

	stats, err := s.importer.Import(ctx, ImportOptions{Truncate: true})

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "truncate")
}

// A failed fetch degrades to "nothing to import" but the stats say so.
func (s *ImporterTestSuite) TestImport_FetchFailureIsRecorded() {
	ctx := context.Background()

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, true).Return(nil, errors.New("fetch page 3: retries exhausted"))

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{FetchAll: true})

	s.NoError(err)
	s.True(stats.FetchFailed)
	s.Equal(0, stats.Fetched)
}

func (s *ImporterTestSuite) TestImport_PublisherNil() {
	ctx := context.Background()
	now := time.Now()

	importer := NewImporter(
		s.source,
		s.transform,
		s.content,
		s.posts,
		s.authors,
		s.categories,
		s.tags,
		s.state,
		s.truncator,
		s.txManager,
		nil,
		s.logger,
	)

	raw := wordpress.RawPost{ID: 10}
	post := domain.Post{RemoteID: 10, Content: "c", UpdatedAt: now, CreatedAt: now}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return([]wordpress.RawPost{raw}, nil)
	s.transform.EXPECT().Transform(ctx, raw).Return(post, nil)
	s.content.EXPECT().MirrorImages(ctx, "c")
	s.content.EXPECT().Rewrite("c").Return("c")

	s.expectTransaction(ctx)

	s.posts.EXPECT().FindByRemoteID(ctx, int64(10)).Return(nil, nil)
	s.posts.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, p *domain.Post) (int64, error) {
			p.ID = 100
			return 100, nil
		},
	)
	s.tags.EXPECT().LinkToPost(ctx, int64(100), []int64{}).Return(nil)

	s.expectStateUpdate(ctx)

	stats, err := importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(1, stats.Imported)
	s.Equal(0, stats.Published)
}

func (s *ImporterTestSuite) TestImport_SyncErrorContinues() {
	ctx := context.Background()
	now := time.Now()

	raws := []wordpress.RawPost{{ID: 10}, {ID: 11}}
	bad := domain.Post{RemoteID: 10, Content: "a", UpdatedAt: now}
	good := domain.Post{RemoteID: 11, Content: "b", UpdatedAt: now, CreatedAt: now}

	s.source.EXPECT().FetchPosts(ctx, "posts", 1, 5, false).Return(raws, nil)

	s.transform.EXPECT().Transform(ctx, raws[0]).Return(bad, nil)
	s.content.EXPECT().MirrorImages(ctx, "a")
	s.content.EXPECT().Rewrite("a").Return("a")
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).Return(errors.New("deadlock"))

	s.transform.EXPECT().Transform(ctx, raws[1]).Return(good, nil)
	s.content.EXPECT().MirrorImages(ctx, "b")
	s.content.EXPECT().Rewrite("b").Return("b")
	s.expectTransaction(ctx)
	s.posts.EXPECT().FindByRemoteID(ctx, int64(11)).Return(nil, nil)
	s.posts.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, p *domain.Post) (int64, error) {
			p.ID = 101
			return 101, nil
		},
	)
	s.tags.EXPECT().LinkToPost(ctx, int64(101), []int64{}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(nil)

	s.expectStateUpdate(ctx)

	stats, err := s.importer.Import(ctx, ImportOptions{})

	s.NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.Imported)
}
