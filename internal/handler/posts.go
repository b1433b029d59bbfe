package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/service"
)

// PostHandler serves the home page and the post pages.
type PostHandler struct {
	posts      *service.PostService
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewPostHandler(posts *service.PostService, categories *service.CategoryService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, categories: categories, logger: logger}
}

// postForm is the context for the create and edit pages.
type postForm struct {
	Post       *model.Post      `json:"post,omitempty"`
	Categories []model.Category `json:"categories"`
}

// HandleHome shows the three newest posts and categories.
//
// HTTP: GET /
func (h *PostHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.posts.Home(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

// HTTP: GET /all
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// HTTP: GET /post/{id}
func (h *PostHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "post")
	if err != nil {
		writeError(w, err)
		return
	}
	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// HandleCreateForm lists the existing categories to pick from.
//
// HTTP: GET /post-create
func (h *PostHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postForm{Categories: cats})
}

// HandleCreate publishes a post as the logged-in user.
//
// HTTP: POST /post-create
// FORM: title, content, image (URL, optional), category (name, optional)
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), callerOf(r), service.PostInput{
		Title:    in.get("title"),
		Content:  in.get("content"),
		ImageURL: in.get("image"),
		Category: in.get("category"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	seeOther(w, r, fmt.Sprintf("/post/%d", post.ID))
}

// HTTP: GET /post-update/{id}
func (h *PostHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "post")
	if err != nil {
		writeError(w, err)
		return
	}
	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	cats, err := h.categories.List(r.Context(), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postForm{Post: post, Categories: cats})
}

// HandleUpdate edits a post. Fields left out of the form keep their value.
//
// HTTP: POST /post-update/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "post")
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), callerOf(r), id, service.PostUpdate{
		Title:    in.opt("title"),
		Content:  in.opt("content"),
		ImageURL: in.opt("image"),
		Category: in.opt("category"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	seeOther(w, r, fmt.Sprintf("/post/%d", post.ID))
}

// HTTP: POST /post-delete/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "post")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.posts.Delete(r.Context(), callerOf(r), id); err != nil {
		writeError(w, err)
		return
	}
	seeOther(w, r, "/all")
}
