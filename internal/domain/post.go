package domain

import "time"

// Post is the normalized local record for one remote WordPress post.
// RemoteID is the WordPress post id and the idempotency key: at most one
// local post exists per RemoteID.
type Post struct {
	ID            int64
	RemoteID      int64
	Type          string
	Title         string
	Slug          string
	Link          string
	Sticky        bool
	Excerpt       string
	Content       string
	Format        *string
	Status        string
	FeaturedImage *string // local blob filename, nil when no usable media
	PublishedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Author   Author
	Category Category
	Tags     []Tag
}

type Author struct {
	ID       int64
	RemoteID int64
	Name     string
	Slug     string
}

type Category struct {
	ID       int64
	RemoteID int64
	Name     string
	Slug     string
}

type Tag struct {
	RemoteID int64
	Name     string
	Slug     string
}

type ImportState struct {
	ID            int64     `db:"id"`
	Resource      string    `db:"resource"`
	LastImportAt  time.Time `db:"last_import_at"`
	LastRemoteID  int64     `db:"last_remote_id"`
	TotalImported int64     `db:"total_imported"`
}
