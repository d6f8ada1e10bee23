// Package domain contains the core business entities for panelshop.
package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Upload Ledger Errors
	// ===========================================

	// ErrUploadNotFound indicates no ledger row exists for the path.
	// Benign when marking-used a pre-tracking-era upload; callers create
	// the missing row instead of failing.
	ErrUploadNotFound = errors.New("tracked upload not found")

	// ErrDuplicateUpload indicates more than one ledger row exists for a
	// single path. Defensive: recovery keeps one row and deletes the rest.
	ErrDuplicateUpload = errors.New("duplicate ledger rows for upload path")

	// ErrPathOutsideUploads indicates a path outside the uploads/
	// namespace was offered to the ledger.
	ErrPathOutsideUploads = errors.New("path is outside the uploads namespace")

	// ===========================================
	// Content Errors
	// ===========================================

	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrBlogPostNotFound indicates the requested blog post does not exist.
	ErrBlogPostNotFound = errors.New("blog post not found")

	// ErrTopicNotFound indicates the requested topic does not exist.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrCategoryNotFound indicates the requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrSlugAlreadyExists indicates a record with the same slug exists.
	ErrSlugAlreadyExists = errors.New("slug already exists")

	// ===========================================
	// Blob Storage Errors
	// ===========================================

	// ErrBlobNotFound indicates the requested blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrStorageUnavailable indicates a transport-level storage failure.
	// Logged and swallowed by reconciliation; never aborts a save.
	ErrStorageUnavailable = errors.New("storage backend unavailable")
)
