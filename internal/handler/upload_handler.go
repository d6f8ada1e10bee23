package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/service"
)

// sessionHeader carries the editing-session ID. The editor widget sends
// it with every upload so the first save of a new entity can sweep only
// that session's uploads.
const sessionHeader = "X-Session-ID"

// UploadHandler handles editor image uploads.
type UploadHandler struct {
	uploads       *service.UploadService
	maxUploadSize int64
	logger        zerolog.Logger
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(uploads *service.UploadService, maxUploadSize int64, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploads:       uploads,
		maxUploadSize: maxUploadSize,
		logger:        logger.With().Str("handler", "upload").Logger(),
	}
}

type uploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Upload accepts a multipart form with a "file" field, stores the blob
// and records it in the tracking ledger.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	out, err := h.uploads.StoreUpload(r.Context(), service.StoreUploadInput{
		SessionID:  sessionID(r),
		Filename:   header.Filename,
		Reader:     file,
		Size:       header.Size,
		UploadedBy: nil,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Path: out.Path,
		URL:  "/media/" + out.Path,
	})
}

// sessionID extracts the editing-session ID from the request, header
// first, cookie as fallback. Empty when the client sent neither.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie("panelshop_session"); err == nil {
		return c.Value
	}
	return ""
}
