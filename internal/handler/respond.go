// Package handler implements the HTTP API using chi.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/repository"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps known domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrBlogPostNotFound),
		errors.Is(err, domain.ErrTopicNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrUploadNotFound),
		errors.Is(err, domain.ErrBlobNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrSlugAlreadyExists):
		writeError(w, http.StatusConflict, "slug already exists")
	case errors.Is(err, domain.ErrPathOutsideUploads):
		writeError(w, http.StatusBadRequest, "invalid upload path")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
