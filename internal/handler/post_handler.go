// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibha/vtblogs/internal/model"
)

// ContentServiceInterface は公開コンテンツハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	ListPosts(ctx context.Context) ([]*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	GetPostsByTag(ctx context.Context, tag string) ([]*model.Post, error)
	SearchPosts(ctx context.Context, query string) ([]*model.Post, error)
	ListTags(ctx context.Context) ([]string, error)
	GetSettings(ctx context.Context) (*model.SiteSettings, error)
}

// SummarizerInterface は記事要約のインターフェース。
type SummarizerInterface interface {
	Summarize(ctx context.Context, post *model.Post) string
}

// PostHandler は公開コンテンツのHTTPハンドラー。
type PostHandler struct {
	service    ContentServiceInterface
	summarizer SummarizerInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service ContentServiceInterface, summarizer SummarizerInterface) *PostHandler {
	return &PostHandler{
		service:    service,
		summarizer: summarizer,
	}
}

// ListPosts は記事一覧・検索を処理する。
// GET /api/posts?slug=...&tag=...&q=...
//
// クエリパラメータの優先順位はslug > tag > q。複数指定された場合は
// 最優先のもの1つだけが解釈され、残りは無視される。
// slug指定は1件取得だが、レスポンス形状は常に配列で統一する。
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if slug := query.Get("slug"); slug != "" {
		post, err := h.service.GetPostBySlug(r.Context(), slug)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if post == nil {
			writeJSON(w, http.StatusOK, []postResponse{})
			return
		}
		writeJSON(w, http.StatusOK, []postResponse{toPostResponse(post)})
		return
	}

	if tag := query.Get("tag"); tag != "" {
		posts, err := h.service.GetPostsByTag(r.Context(), tag)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPostListResponse(posts))
		return
	}

	if q, ok := query["q"]; ok && len(q) > 0 {
		posts, err := h.service.SearchPosts(r.Context(), q[0])
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPostListResponse(posts))
		return
	}

	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostListResponse(posts))
}

// GetPost はslugで記事詳細を取得する。
// GET /api/posts/{slug}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.service.GetPostBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if post == nil {
		handleServiceError(w, model.NewPostNotFoundError(slug))
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// ListTags は全記事タグの和集合を返す。
// GET /api/tags
func (h *PostHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// Summarize は記事の要約を返す。
// GET /api/posts/{slug}/summary
//
// 要約サービスが使えない場合は記事の要約フィールドが返る。
func (h *PostHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.service.GetPostBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if post == nil {
		handleServiceError(w, model.NewPostNotFoundError(slug))
		return
	}

	summary := h.summarizer.Summarize(r.Context(), post)
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// GetSettings はサイト設定を返す。
// GET /api/settings
func (h *PostHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}
