// Package htmlref extracts upload references from rich-text HTML.
// Saved HTML content is the durable source of truth for which uploads
// are in use; this package derives the referenced-path set from it.
package htmlref

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sonartis/panelshop/internal/storage"
)

// ExtractPaths returns the set of storage-relative upload paths
// referenced by img tags in the given HTML fragment. Each src attribute
// is normalized (leading slash and media root stripped); anything
// outside the uploads namespace is discarded.
//
// Deterministic and side-effect free. Malformed or empty HTML yields an
// empty set, never an error: a broken description must not block a save.
func ExtractPaths(html string) map[string]struct{} {
	paths := make(map[string]struct{})
	if strings.TrimSpace(html) == "" {
		return paths
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return paths
	}

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		if path, ok := storage.NormalizeUploadPath(src); ok {
			paths[path] = struct{}{}
		}
	})

	return paths
}

// ExtractFromFields unions the referenced paths of several rich-text
// fields, typically everything an entity's RichTextFields returns.
func ExtractFromFields(fields []string) map[string]struct{} {
	paths := make(map[string]struct{})
	for _, field := range fields {
		for p := range ExtractPaths(field) {
			paths[p] = struct{}{}
		}
	}
	return paths
}
