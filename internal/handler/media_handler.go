package handler

import (
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/storage"
)

// MediaHandler serves stored media blobs.
type MediaHandler struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewMediaHandler creates a media handler.
func NewMediaHandler(backend storage.Backend, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		backend: backend,
		logger:  logger.With().Str("handler", "media").Logger(),
	}
}

// Serve streams the blob at /media/{path} to the client.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	p, ok := storage.NormalizeUploadPath(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid media path")
		return
	}

	reader, err := h.backend.Retrieve(r.Context(), p)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error().Err(err).Str("path", p).Msg("failed to retrieve blob")
		writeError(w, http.StatusBadGateway, "storage unavailable")
		return
	}
	defer reader.Close()

	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Debug().Err(err).Str("path", p).Msg("media stream aborted")
	}
}
