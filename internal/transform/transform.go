package transform

import (
	"errors"

	"wp_importer/internal/domain"
	"wp_importer/internal/source/wordpress"
)

// ErrMalformedDate marks a record whose timestamps cannot be parsed. The
// record is skipped, not the run.
var ErrMalformedDate = errors.New("malformed date")

// ErrInvalidRemoteID marks a record without a usable remote identifier.
var ErrInvalidRemoteID = errors.New("invalid remote id")

// Sub-transformers flatten the embedded author/category/tag sub-resources
// of one raw post. Each receives the whole raw post, mirroring how the
// embedded collections hang off the post itself.
type AuthorTransformer interface {
	Transform(raw wordpress.RawPost) domain.Author
}

type CategoryTransformer interface {
	Transform(raw wordpress.RawPost) domain.Category
}

type TagTransformer interface {
	Transform(raw wordpress.RawPost) []domain.Tag
}

type defaultAuthorTransformer struct{}

func NewAuthorTransformer() AuthorTransformer {
	return defaultAuthorTransformer{}
}

func (defaultAuthorTransformer) Transform(raw wordpress.RawPost) domain.Author {
	if raw.Embedded == nil || len(raw.Embedded.Authors) == 0 {
		return domain.Author{}
	}
	a := raw.Embedded.Authors[0]
	return domain.Author{
		RemoteID: a.ID,
		Name:     a.Name,
		Slug:     a.Slug,
	}
}

type defaultCategoryTransformer struct{}

func NewCategoryTransformer() CategoryTransformer {
	return defaultCategoryTransformer{}
}

// Transform picks the first embedded category term. WordPress posts carry
// exactly one primary category in this pipeline.
func (defaultCategoryTransformer) Transform(raw wordpress.RawPost) domain.Category {
	for _, term := range embeddedTerms(raw) {
		if term.Taxonomy == wordpress.TaxonomyCategory {
			return domain.Category{
				RemoteID: term.ID,
				Name:     term.Name,
				Slug:     term.Slug,
			}
		}
	}
	return domain.Category{}
}

type defaultTagTransformer struct{}

func NewTagTransformer() TagTransformer {
	return defaultTagTransformer{}
}

func (defaultTagTransformer) Transform(raw wordpress.RawPost) []domain.Tag {
	var tags []domain.Tag
	for _, term := range embeddedTerms(raw) {
		if term.Taxonomy == wordpress.TaxonomyTag {
			tags = append(tags, domain.Tag{
				RemoteID: term.ID,
				Name:     term.Name,
				Slug:     term.Slug,
			})
		}
	}
	return tags
}

func embeddedTerms(raw wordpress.RawPost) []wordpress.RawTerm {
	if raw.Embedded == nil {
		return nil
	}
	var terms []wordpress.RawTerm
	for _, group := range raw.Embedded.Terms {
		terms = append(terms, group...)
	}
	return terms
}
