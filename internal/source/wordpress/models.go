package wordpress

// RawPost is one post object as returned by the WordPress REST API with
// _embed=true. It is decoded fresh per fetch and never persisted as-is.
type RawPost struct {
	ID       int64     `json:"id"`
	Date     string    `json:"date"`
	Modified string    `json:"modified"`
	Slug     string    `json:"slug"`
	Status   string    `json:"status"`
	Type     string    `json:"type"`
	Link     string    `json:"link"`
	Title    Rendered  `json:"title"`
	Content  Rendered  `json:"content"`
	Excerpt  Rendered  `json:"excerpt"`
	Sticky   bool      `json:"sticky"`
	Format   string    `json:"format"`
	Embedded *Embedded `json:"_embedded"`
}

type Rendered struct {
	Rendered string `json:"rendered"`
}

// Embedded carries the related sub-resources the API inlines when asked to
// embed. wp:term is a list of term lists, one per taxonomy (categories
// first, then post tags).
type Embedded struct {
	Authors       []RawAuthor `json:"author"`
	FeaturedMedia []RawMedia  `json:"wp:featuredmedia"`
	Terms         [][]RawTerm `json:"wp:term"`
}

type RawAuthor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type RawMedia struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

type RawTerm struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
}

const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
)
