package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"wp_importer/internal/service"
	"wp_importer/internal/storage/postgres"
)

// Entity store bindings are resolved by configuration key, once at startup.
// The variant sets are closed; unknown keys fail fast.

var postStores = map[string]func(*sqlx.DB) service.PostStore{
	"postgres": func(db *sqlx.DB) service.PostStore { return postgres.NewPostStore(db) },
}

var authorStores = map[string]func(*sqlx.DB) service.AuthorStore{
	"postgres": func(db *sqlx.DB) service.AuthorStore { return postgres.NewAuthorStore(db) },
}

var categoryStores = map[string]func(*sqlx.DB) service.CategoryStore{
	"postgres": func(db *sqlx.DB) service.CategoryStore { return postgres.NewCategoryStore(db) },
}

func NewPostStore(key string, db *sqlx.DB) (service.PostStore, error) {
	newStore, ok := postStores[key]
	if !ok {
		return nil, fmt.Errorf("unknown post store %q", key)
	}
	return newStore(db), nil
}

func NewAuthorStore(key string, db *sqlx.DB) (service.AuthorStore, error) {
	newStore, ok := authorStores[key]
	if !ok {
		return nil, fmt.Errorf("unknown author store %q", key)
	}
	return newStore(db), nil
}

func NewCategoryStore(key string, db *sqlx.DB) (service.CategoryStore, error) {
	newStore, ok := categoryStores[key]
	if !ok {
		return nil, fmt.Errorf("unknown category store %q", key)
	}
	return newStore(db), nil
}
