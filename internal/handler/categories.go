package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/blogsite/internal/service"
)

type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: logger}
}

// HTTP: GET /categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// HandleDetail shows a category and every post filed under it.
//
// HTTP: GET /category/{id}
func (h *CategoryHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "category")
	if err != nil {
		writeError(w, err)
		return
	}
	detail, err := h.categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleDelete answers 409 while posts still use the category.
//
// HTTP: POST /category-delete/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "category")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.categories.Delete(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	seeOther(w, r, "/categories")
}
