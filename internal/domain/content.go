package domain

import (
	"time"
)

// Entity type names used in ledger back-references.
const (
	EntityTypeProduct  = "Product"
	EntityTypeBlogPost = "BlogPost"
	EntityTypeTopic    = "Topic"
	EntityTypeCategory = "Category"
)

// ImageOwner is the capability shared by every content type that carries
// images. The reconciler treats all implementations uniformly: direct
// image fields (thumbnail, gallery) are owned outright, while rich-text
// fields may embed references into the shared uploads/ pool.
type ImageOwner interface {
	// EntityType returns the type name used in ledger back-references.
	EntityType() string

	// EntityID returns the database ID of the record.
	EntityID() int64

	// ThumbnailPath returns the storage-relative thumbnail path, or ""
	// when the record has none.
	ThumbnailPath() string

	// GalleryPaths returns storage-relative paths of directly attached
	// images (product gallery, pattern swatches). May be empty.
	GalleryPaths() []string

	// RichTextFields returns the raw HTML of every rich-text field,
	// including localized variants. Empty fields may be included.
	RichTextFields() []string
}

// Category groups products and topics. Carries a thumbnail but no
// rich text.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) EntityType() string       { return EntityTypeCategory }
func (c *Category) EntityID() int64          { return c.ID }
func (c *Category) ThumbnailPath() string    { return c.Thumbnail }
func (c *Category) GalleryPaths() []string   { return nil }
func (c *Category) RichTextFields() []string { return nil }

// ProductImage is a gallery image attached to a product.
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Path      string `json:"path"`
	SortOrder int    `json:"sort_order"`
}

// ProductPattern is a pattern/finish swatch attached to a product.
type ProductPattern struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

// Product is a catalog item. Short and full descriptions are rich text
// and may embed uploaded images.
type Product struct {
	ID               int64            `json:"id"`
	CategoryID       int64            `json:"category_id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	PriceCents       int64            `json:"price_cents"`
	MetaDescription  string           `json:"meta_description"`
	Thumbnail        string           `json:"thumbnail,omitempty"`
	ShortDescription string           `json:"short_description"`
	FullDescription  string           `json:"full_description"`
	Images           []ProductImage   `json:"images,omitempty"`
	Patterns         []ProductPattern `json:"patterns,omitempty"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (p *Product) EntityType() string    { return EntityTypeProduct }
func (p *Product) EntityID() int64       { return p.ID }
func (p *Product) ThumbnailPath() string { return p.Thumbnail }

func (p *Product) GalleryPaths() []string {
	paths := make([]string, 0, len(p.Images)+len(p.Patterns))
	for _, img := range p.Images {
		if img.Path != "" {
			paths = append(paths, img.Path)
		}
	}
	for _, pat := range p.Patterns {
		if pat.Path != "" {
			paths = append(paths, pat.Path)
		}
	}
	return paths
}

func (p *Product) RichTextFields() []string {
	return []string{p.ShortDescription, p.FullDescription}
}

// BlogPost is an article with a thumbnail and rich-text body.
type BlogPost struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	MetaDescription  string    `json:"meta_description"`
	Thumbnail        string    `json:"thumbnail,omitempty"`
	ShortDescription string    `json:"short_description"`
	FullDescription  string    `json:"full_description"`
	IsPublished      bool      `json:"is_published"`
	PublishedAt      time.Time `json:"published_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (b *BlogPost) EntityType() string    { return EntityTypeBlogPost }
func (b *BlogPost) EntityID() int64       { return b.ID }
func (b *BlogPost) ThumbnailPath() string { return b.Thumbnail }
func (b *BlogPost) GalleryPaths() []string {
	return nil
}

func (b *BlogPost) RichTextFields() []string {
	return []string{b.ShortDescription, b.FullDescription}
}

// LocalizedText holds the translated variants of one rich-text field.
// The site ships Serbian Latin, Serbian Cyrillic and English content.
type LocalizedText struct {
	SrLatn string `json:"sr_latn"`
	SrCyrl string `json:"sr_cyrl,omitempty"`
	En     string `json:"en,omitempty"`
}

// Variants returns all non-empty translations.
func (t LocalizedText) Variants() []string {
	var out []string
	for _, s := range []string{t.SrLatn, t.SrCyrl, t.En} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Topic is a knowledge-base page. All rich-text fields exist in three
// locales and each variant may reference uploads independently.
type Topic struct {
	ID               int64         `json:"id"`
	CategoryID       int64         `json:"category_id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	MetaDescription  string        `json:"meta_description"`
	ShortDescription LocalizedText `json:"short_description"`
	FullDescription  LocalizedText `json:"full_description"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (t *Topic) EntityType() string     { return EntityTypeTopic }
func (t *Topic) EntityID() int64        { return t.ID }
func (t *Topic) ThumbnailPath() string  { return "" }
func (t *Topic) GalleryPaths() []string { return nil }

func (t *Topic) RichTextFields() []string {
	fields := t.ShortDescription.Variants()
	return append(fields, t.FullDescription.Variants()...)
}

// OwnedImagePaths collects every direct image path of an entity:
// thumbnail plus gallery. Rich-text references are not included; those
// go through the extractor.
func OwnedImagePaths(owner ImageOwner) []string {
	var paths []string
	if p := owner.ThumbnailPath(); p != "" {
		paths = append(paths, p)
	}
	return append(paths, owner.GalleryPaths()...)
}
