package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/curiouscoder/blogcms/internal/auth"
	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/middleware"
	"github.com/curiouscoder/blogcms/internal/search"
	"github.com/curiouscoder/blogcms/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxBodyBytes    = 5 << 20
)

type createdPostResponse struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
}

type likeResponse struct {
	ID    int `json:"id"`
	Likes int `json:"likes"`
}

type newCategoryRequest struct {
	Name string `json:"name"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	// public
	router.HandleFunc("/blog/posts/page/{page}/size/{size}", handler.handleGetPage).Methods("GET").Name("blog-posts-page")
	router.HandleFunc("/blog/posts/slug/{slug}", handler.handleGetBySlug).Methods("GET").Name("blog-post-by-slug")
	router.HandleFunc("/blog/posts/{id:[0-9]+}/related", handler.handleRelated).Methods("GET").Name("blog-post-related")
	router.HandleFunc("/blog/posts/{id:[0-9]+}/like", handler.handleLike).Methods("PATCH", "OPTIONS").Name("blog-post-like")
	router.HandleFunc("/blog/search", handler.handleSearch).Methods("GET").Name("blog-search")
	router.HandleFunc("/blog/categories", handler.handleCategories).Methods("GET").Name("blog-categories")
	router.HandleFunc("/blog/tags", handler.handleTags).Methods("GET").Name("blog-tags")

	// admin
	router.HandleFunc("/blog/preview", handler.handlePreview).Methods("POST", "OPTIONS").Name("blog-preview")
	router.HandleFunc("/blog/admin/posts", handler.handleAdminList).Methods("GET").Name("blog-admin-posts")
	router.HandleFunc("/blog/posts", handler.handleCreate).Methods("POST", "OPTIONS").Name("blog-post-create")
	router.HandleFunc("/blog/posts/{id:[0-9]+}", handler.handleGet).Methods("GET").Name("blog-post-get")
	router.HandleFunc("/blog/posts/{id:[0-9]+}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("blog-post-update")
	router.HandleFunc("/blog/posts/{id:[0-9]+}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("blog-post-delete")
	router.HandleFunc("/blog/posts/{id:[0-9]+}/publish", handler.handlePublish).Methods("POST", "OPTIONS").Name("blog-post-publish")
	router.HandleFunc("/blog/posts/{id:[0-9]+}/archive", handler.handleArchive).Methods("POST", "OPTIONS").Name("blog-post-archive")
	router.HandleFunc("/blog/posts/{id:[0-9]+}/unpublish", handler.handleUnpublish).Methods("POST", "OPTIONS").Name("blog-post-unpublish")
	router.HandleFunc("/blog/categories", handler.handleCreateCategory).Methods("POST", "OPTIONS").Name("blog-category-create")
}

func (handler *Handler) handleGetPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		http.Error(w, "invalid page (has to be a positive number)", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 || size > maxPageSize {
		http.Error(w, fmt.Sprintf("invalid size (has to be between 1 and %d)", maxPageSize), http.StatusBadRequest)
		return
	}

	log.Tracef("get blog posts - page %d size %d", page, size)

	posts, total, err := handler.service.ListPublished(r.Context(), page, size)
	if err != nil {
		log.Errorf("get blog posts page: %s", err)
		http.Error(w, "failed to get blog posts", http.StatusInternalServerError)
		return
	}

	handler.writePosts(w, posts, total)
}

func (handler *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	viewer := Viewer{
		IsAdmin:  auth.IsAdmin(r.Context()),
		Password: r.Header.Get(middleware.PostPasswordHeader),
	}

	postView, err := handler.service.GetPublished(r.Context(), slug, viewer)
	if err != nil {
		writeError(w, fmt.Sprintf("get post [%s]", slug), err)
		return
	}

	pkg.WriteJSON(w, postView, http.StatusOK)
}

func (handler *Handler) handleRelated(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	hits, err := handler.service.Related(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Sprintf("related posts of %d", id), err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}

	pkg.WriteJSON(w, hits, http.StatusOK)
}

func (handler *Handler) handleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	likes, err := handler.service.Like(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Sprintf("like post %d", id), err)
		return
	}

	pkg.WriteJSON(w, likeResponse{ID: id, Likes: likes}, http.StatusOK)
}

func (handler *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "error, query <q> empty", http.StatusBadRequest)
		return
	}

	result, err := handler.service.Search(r.Context(), query)
	if err != nil {
		writeError(w, "search posts", err)
		return
	}

	pkg.WriteJSON(w, result, http.StatusOK)
}

func (handler *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := handler.service.Categories(r.Context())
	if err != nil {
		writeError(w, "get categories", err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	pkg.WriteJSON(w, categories, http.StatusOK)
}

func (handler *Handler) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := handler.service.Tags(r.Context())
	if err != nil {
		writeError(w, "get tags", err)
		return
	}
	if tags == nil {
		tags = []Tag{}
	}
	pkg.WriteJSON(w, tags, http.StatusOK)
}

func (handler *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	var doc content.Document
	if err := decodeBody(w, r, &doc); err != nil {
		log.Errorf("preview, unmarshal document: %s", err)
		http.Error(w, "invalid document", http.StatusBadRequest)
		return
	}

	pkg.WriteJSON(w, handler.service.Preview(r.Context(), doc), http.StatusOK)
}

func (handler *Handler) handleAdminList(w http.ResponseWriter, r *http.Request) {
	page, size := 1, defaultPageSize
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}
	if s := r.URL.Query().Get("size"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > maxPageSize {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size = parsed
	}

	posts, total, err := handler.service.ListAll(r.Context(), page, size)
	if err != nil {
		log.Errorf("admin list posts: %s", err)
		http.Error(w, "failed to get blog posts", http.StatusInternalServerError)
		return
	}

	handler.writePosts(w, posts, total)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := handler.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Sprintf("get post %d", id), err)
		return
	}

	pkg.WriteJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input PostInput
	if err := decodeBody(w, r, &input); err != nil {
		log.Errorf("new post, unmarshal json params: %s", err)
		http.Error(w, "invalid post payload", http.StatusBadRequest)
		return
	}

	post, err := handler.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, "add new post", err)
		return
	}

	log.Tracef("new post %d: [%s] added", post.ID, post.Title)

	pkg.WriteJSON(w, createdPostResponse{ID: post.ID, Slug: post.Slug}, http.StatusCreated)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	var input PostInput
	if err := decodeBody(w, r, &input); err != nil {
		log.Errorf("update post %d, unmarshal json params: %s", id, err)
		http.Error(w, "invalid post payload", http.StatusBadRequest)
		return
	}

	post, err := handler.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, fmt.Sprintf("update post %d", id), err)
		return
	}

	pkg.WriteJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	if err := handler.service.Delete(r.Context(), id); err != nil {
		writeError(w, fmt.Sprintf("delete post %d", id), err)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%d", id))
}

func (handler *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.service.Publish)
}

func (handler *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.service.Archive)
}

func (handler *Handler) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	handler.handleTransition(w, r, handler.service.Unpublish)
}

func (handler *Handler) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, id int) (*Post, error),
) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := transition(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Sprintf("change status of post %d", id), err)
		return
	}

	pkg.WriteJSON(w, post, http.StatusOK)
}

func (handler *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req newCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "invalid category payload", http.StatusBadRequest)
		return
	}

	category, err := handler.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create category", err)
		return
	}

	pkg.WriteJSON(w, category, http.StatusCreated)
}

func (handler *Handler) writePosts(w http.ResponseWriter, posts []*Post, total int) {
	if posts == nil {
		posts = []*Post{}
	}
	pkg.WriteJSON(w, PostsResponse{Posts: posts, Total: total}, http.StatusOK)
}

func postID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeError maps service errors to status codes. Anything unexpected is
// logged and answered with a generic 500.
func writeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrPostNotFound):
		http.Error(w, "post not found", http.StatusNotFound)
	case errors.Is(err, ErrSlugExists), errors.Is(err, ErrCategoryExists), errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidPost):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrPasswordRequired):
		http.Error(w, "post password required", http.StatusUnauthorized)
	case errors.Is(err, search.ErrSearchDisabled):
		http.Error(w, "search is not available", http.StatusServiceUnavailable)
	default:
		log.Errorf("%s: %s", action, err)
		http.Error(w, fmt.Sprintf("%s failed", action), http.StatusInternalServerError)
	}
}
