package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/domain"
	"github.com/sonartis/panelshop/internal/service"
)

// BlogHandler exposes blog post and topic CRUD.
type BlogHandler struct {
	blog    *service.BlogService
	uploads *service.UploadService
	logger  zerolog.Logger
}

// NewBlogHandler creates a blog handler.
func NewBlogHandler(blog *service.BlogService, uploads *service.UploadService, logger zerolog.Logger) *BlogHandler {
	return &BlogHandler{
		blog:    blog,
		uploads: uploads,
		logger:  logger.With().Str("handler", "blog").Logger(),
	}
}

func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var b domain.BlogPost
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc, clear := saveContext(r, h.uploads)
	if err := h.blog.CreatePost(r.Context(), &b, sc); err != nil {
		writeDomainError(w, err)
		return
	}
	clear()
	writeJSON(w, http.StatusCreated, b)
}

func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := h.blog.GetPost(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var b domain.BlogPost
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.ID = id

	sc, _ := saveContext(r, h.uploads)
	if err := h.blog.UpdatePost(r.Context(), &b, sc); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.blog.DeletePost(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.ListPosts(r.Context(), listOptions(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *BlogHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var t domain.Topic
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc, clear := saveContext(r, h.uploads)
	if err := h.blog.CreateTopic(r.Context(), &t, sc); err != nil {
		writeDomainError(w, err)
		return
	}
	clear()
	writeJSON(w, http.StatusCreated, t)
}

func (h *BlogHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	t, err := h.blog.GetTopic(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *BlogHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var t domain.Topic
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t.ID = id

	sc, _ := saveContext(r, h.uploads)
	if err := h.blog.UpdateTopic(r.Context(), &t, sc); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *BlogHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.blog.DeleteTopic(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlogHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.blog.ListTopics(r.Context(), listOptions(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}
