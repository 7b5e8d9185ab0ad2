package transform

import (
	"fmt"
	"log/slog"

	"wp_importer/internal/config"
	"wp_importer/internal/content"
)

// The transformer variants are a closed set: configuration keys resolve to
// constructors here, once at startup. Unknown keys fail fast.

var authorRegistry = map[string]func() AuthorTransformer{
	"default": NewAuthorTransformer,
}

var categoryRegistry = map[string]func() CategoryTransformer{
	"default": NewCategoryTransformer,
}

var tagRegistry = map[string]func() TagTransformer{
	"default": NewTagTransformer,
}

// NewFromConfig resolves the configured transformer bindings and builds the
// post transformer with its sub-transformers injected.
func NewFromConfig(
	cfg config.TransformerConfig,
	mirror content.ImageMirror,
	logger *slog.Logger,
) (*PostTransformer, error) {
	if cfg.Post != "default" {
		return nil, fmt.Errorf("unknown post transformer %q", cfg.Post)
	}

	newAuthor, ok := authorRegistry[cfg.Author]
	if !ok {
		return nil, fmt.Errorf("unknown author transformer %q", cfg.Author)
	}
	newCategory, ok := categoryRegistry[cfg.Category]
	if !ok {
		return nil, fmt.Errorf("unknown category transformer %q", cfg.Category)
	}
	newTag, ok := tagRegistry[cfg.Tag]
	if !ok {
		return nil, fmt.Errorf("unknown tag transformer %q", cfg.Tag)
	}

	return NewPostTransformer(mirror, newAuthor(), newCategory(), newTag(), logger), nil
}
