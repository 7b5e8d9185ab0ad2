package transform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wp_importer/internal/content"
	"wp_importer/internal/domain"
	"wp_importer/internal/source/wordpress"
)

// wpDateLayout is the zoneless datetime format the WordPress REST API uses
// for date and modified fields.
const wpDateLayout = "2006-01-02T15:04:05"

// PostTransformer maps one raw WordPress post into the normalized local
// record, mirroring the featured image and flattening the embedded
// author/category/tag sub-resources.
type PostTransformer struct {
	mirror     content.ImageMirror
	authors    AuthorTransformer
	categories CategoryTransformer
	tags       TagTransformer
	logger     *slog.Logger
}

func NewPostTransformer(
	mirror content.ImageMirror,
	authors AuthorTransformer,
	categories CategoryTransformer,
	tags TagTransformer,
	logger *slog.Logger,
) *PostTransformer {
	return &PostTransformer{
		mirror:     mirror,
		authors:    authors,
		categories: categories,
		tags:       tags,
		logger:     logger.With("component", "transform"),
	}
}

func (t *PostTransformer) Transform(ctx context.Context, raw wordpress.RawPost) (domain.Post, error) {
	if raw.ID < 0 {
		return domain.Post{}, fmt.Errorf("%w: %d", ErrInvalidRemoteID, raw.ID)
	}

	publishedAt, err := parseDate(raw.Date)
	if err != nil {
		return domain.Post{}, fmt.Errorf("date field: %w", err)
	}
	updatedAt, err := parseDate(raw.Modified)
	if err != nil {
		return domain.Post{}, fmt.Errorf("modified field: %w", err)
	}

	post := domain.Post{
		RemoteID: raw.ID,
		Type:     raw.Type,
		Title:    raw.Title.Rendered,
		Slug:     raw.Slug,
		Link:     raw.Link,
		Sticky:   raw.Sticky,
		Excerpt:  raw.Excerpt.Rendered,
		Content:  raw.Content.Rendered,
		Status:   raw.Status,
		// import time == creation time: both take the publish date
		PublishedAt: publishedAt,
		CreatedAt:   publishedAt,
		UpdatedAt:   updatedAt,
	}

	if raw.Format != "" {
		format := raw.Format
		post.Format = &format
	}

	if filename, ok := t.featuredImage(ctx, raw); ok {
		post.FeaturedImage = &filename
	}

	post.Author = t.authors.Transform(raw)
	post.Category = t.categories.Transform(raw)
	post.Tags = t.tags.Transform(raw)

	return post, nil
}

func (t *PostTransformer) featuredImage(ctx context.Context, raw wordpress.RawPost) (string, bool) {
	if raw.Embedded == nil || len(raw.Embedded.FeaturedMedia) == 0 {
		return "", false
	}

	media := raw.Embedded.FeaturedMedia[0]
	if media.SourceURL == "" {
		return "", false
	}

	return t.mirror.Ensure(ctx, media.SourceURL)
}

func parseDate(value string) (time.Time, error) {
	if ts, err := time.Parse(wpDateLayout, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, value)
}
