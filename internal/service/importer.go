package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wp_importer/internal/domain"
)

// ImportOptions parameterize one import run.
type ImportOptions struct {
	Resource string
	Page     int
	PerPage  int
	Truncate bool
	FetchAll bool
}

func (o *ImportOptions) setDefaults() {
	if o.Resource == "" {
		o.Resource = "posts"
	}
	if o.Page == 0 {
		o.Page = 1
	}
	if o.PerPage == 0 {
		o.PerPage = 5
	}
}

type syncOutcome int

const (
	outcomeUnchanged syncOutcome = iota
	outcomeImported
	outcomeUpdated
)

// Importer drives the whole pipeline: fetch pages, transform each raw post,
// sync it into the store, emit lifecycle events. Records are processed
// strictly sequentially; per-record failures never abort the run.
type Importer struct {
	source     Source
	transform  Transformer
	content    ContentProcessor
	posts      PostStore
	authors    AuthorStore
	categories CategoryStore
	tags       TagStore
	state      ImportStateStore
	truncator  Truncator
	txManager  TransactionManager
	publisher  Publisher
	logger     *slog.Logger
}

func NewImporter(
	source Source,
	transform Transformer,
	contentProc ContentProcessor,
	posts PostStore,
	authors AuthorStore,
	categories CategoryStore,
	tags TagStore,
	state ImportStateStore,
	truncator Truncator,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *Importer {
	return &Importer{
		source:     source,
		transform:  transform,
		content:    contentProc,
		posts:      posts,
		authors:    authors,
		categories: categories,
		tags:       tags,
		state:      state,
		truncator:  truncator,
		txManager:  txManager,
		publisher:  publisher,
		logger:     logger.With("component", "importer"),
	}
}

func (s *Importer) Import(ctx context.Context, opts ImportOptions) (*domain.ImportStats, error) {
	startTime := time.Now()
	opts.setDefaults()

	s.logger.Info("starting import",
		"resource", opts.Resource,
		"page", opts.Page,
		"per_page", opts.PerPage,
		"truncate", opts.Truncate,
		"fetch_all", opts.FetchAll,
	)

	if opts.Truncate {
		if err := s.truncator.TruncateAll(ctx); err != nil {
			return nil, fmt.Errorf("truncate: %w", err)
		}
		s.logger.Warn("truncated local posts, authors, categories and tags")
	}

	stats := &domain.ImportStats{Resource: opts.Resource}

	raws, err := s.source.FetchPosts(ctx, opts.Resource, opts.Page, opts.PerPage, opts.FetchAll)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// best-effort: a failed fetch degrades to "no more data" but is
		// recorded so callers can tell it from a clean end of data
		s.logger.Warn("fetch ended early", "error", err)
		stats.FetchFailed = true
	}

	stats.Fetched = len(raws)
	s.logger.Info("fetched posts from source", "count", len(raws))

	var lastRemoteID int64
	for i := range raws {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		post, err := s.transform.Transform(ctx, raws[i])
		if err != nil {
			s.logger.Warn("skipping post",
				"remote_id", raws[i].ID,
				"error", err,
			)
			stats.Errors++
			continue
		}

		outcome, err := s.syncPost(ctx, &post)
		if err != nil {
			s.logger.Error("sync post failed",
				"remote_id", post.RemoteID,
				"error", err,
			)
			stats.Errors++
			continue
		}

		if post.RemoteID > lastRemoteID {
			lastRemoteID = post.RemoteID
		}

		switch outcome {
		case outcomeImported:
			stats.Imported++
		case outcomeUpdated:
			stats.Updated++
		default:
			stats.Unchanged++
			continue
		}

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, &post, outcome == outcomeImported); err != nil {
				s.logger.Error("publish failed", "remote_id", post.RemoteID, "error", err)
				stats.Errors++
			} else {
				stats.Published++
			}
		}
	}

	if err := s.updateState(ctx, stats, lastRemoteID); err != nil {
		return stats, fmt.Errorf("update import state: %w", err)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("import completed",
		"imported", stats.Imported,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"errors", stats.Errors,
		"published", stats.Published,
		"fetch_failed", stats.FetchFailed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// syncPost applies one normalized record to the store. The post row is
// created when absent and updated only when the remote copy is strictly
// newer; author, category and tag links are refreshed either way.
func (s *Importer) syncPost(ctx context.Context, post *domain.Post) (syncOutcome, error) {
	author, category, tags := post.Author, post.Category, post.Tags

	// the image scan depends on legacy path shapes, so it runs before the
	// rewrite changes them
	s.content.MirrorImages(ctx, post.Content)
	post.Content = s.content.Rewrite(post.Content)

	outcome := outcomeUnchanged
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.posts.FindByRemoteID(txCtx, post.RemoteID)
		if err != nil {
			return fmt.Errorf("find post: %w", err)
		}

		isNew := current == nil
		if isNew {
			if _, err := s.posts.Create(txCtx, post); err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			current = post
		} else {
			post.ID = current.ID
		}

		// created_at == updated_at on the creation branch, so a freshly
		// created post never also counts as updated
		if post.UpdatedAt.After(current.UpdatedAt) {
			if err := s.posts.Update(txCtx, post); err != nil {
				return fmt.Errorf("update post: %w", err)
			}
			outcome = outcomeUpdated
		}

		if err := s.relink(txCtx, post.ID, author, category, tags); err != nil {
			return err
		}

		if isNew {
			outcome = outcomeImported
		}
		return nil
	})
	if err != nil {
		return outcomeUnchanged, err
	}

	return outcome, nil
}

func (s *Importer) relink(ctx context.Context, postID int64, author domain.Author, category domain.Category, tags []domain.Tag) error {
	if author.RemoteID != 0 {
		authorID, err := s.authors.Upsert(ctx, &author)
		if err != nil {
			return fmt.Errorf("upsert author: %w", err)
		}
		if err := s.posts.SetAuthor(ctx, postID, authorID); err != nil {
			return fmt.Errorf("set author: %w", err)
		}
	}

	if category.RemoteID != 0 {
		categoryID, err := s.categories.Upsert(ctx, &category)
		if err != nil {
			return fmt.Errorf("upsert category: %w", err)
		}
		if err := s.posts.SetCategory(ctx, postID, categoryID); err != nil {
			return fmt.Errorf("set category: %w", err)
		}
	}

	if len(tags) > 0 {
		if err := s.tags.UpsertBatch(ctx, tags); err != nil {
			return fmt.Errorf("upsert tags: %w", err)
		}
	}

	tagIDs := make([]int64, len(tags))
	for i, tag := range tags {
		tagIDs[i] = tag.RemoteID
	}
	if err := s.tags.LinkToPost(ctx, postID, tagIDs); err != nil {
		return fmt.Errorf("link tags: %w", err)
	}

	return nil
}

func (s *Importer) updateState(ctx context.Context, stats *domain.ImportStats, lastRemoteID int64) error {
	state, err := s.state.Get(ctx, stats.Resource)
	if err != nil {
		return err
	}

	state.Resource = stats.Resource
	state.LastImportAt = time.Now()
	if lastRemoteID > 0 {
		state.LastRemoteID = lastRemoteID
	}
	state.TotalImported += int64(stats.Imported + stats.Updated)

	return s.state.Update(ctx, state)
}
