package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vibha/vtblogs/internal/feedimport"
	"github.com/vibha/vtblogs/internal/metrics"
	"github.com/vibha/vtblogs/internal/model"
)

// AdminContentServiceInterface は管理ハンドラーが必要とするコンテンツ操作。
type AdminContentServiceInterface interface {
	CreatePost(ctx context.Context, draft *model.PostDraft) (*model.Post, error)
	UpdatePost(ctx context.Context, id string, patch *model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	SaveSettings(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error)
}

// ImporterInterface はフィードインポートのインターフェース。
type ImporterInterface interface {
	Import(ctx context.Context, feedURL string) (*feedimport.Result, error)
}

// AdminHandler は管理者専用操作のHTTPハンドラー。
// 認証はルーター側のセッションミドルウェアが担う。
type AdminHandler struct {
	content  AdminContentServiceInterface
	importer ImporterInterface
	metrics  metrics.MetricsCollector
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(
	content AdminContentServiceInterface,
	importer ImporterInterface,
	collector metrics.MetricsCollector,
) *AdminHandler {
	return &AdminHandler{
		content:  content,
		importer: importer,
		metrics:  collector,
	}
}

// createPostRequest は記事作成リクエストのボディ。
// slug・excerpt・coverImageは省略時にサーバー側で導出される。
type createPostRequest struct {
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Content        string     `json:"content"`
	Tags           []string   `json:"tags"`
	CoverImage     string     `json:"coverImage"`
	CoverImageHint string     `json:"coverImageHint"`
	Excerpt        string     `json:"excerpt"`
	Date           *time.Time `json:"date"`
}

// updatePostRequest は記事更新リクエストのボディ。nilフィールドは変更しない。
type updatePostRequest struct {
	Title          *string    `json:"title"`
	Author         *string    `json:"author"`
	Content        *string    `json:"content"`
	Tags           []string   `json:"tags"`
	CoverImage     *string    `json:"coverImage"`
	CoverImageHint *string    `json:"coverImageHint"`
	Excerpt        *string    `json:"excerpt"`
	Date           *time.Time `json:"date"`
}

// updateSettingsRequest はサイト設定更新リクエストのボディ。nilフィールドは変更しない。
type updateSettingsRequest struct {
	Name            *string `json:"name"`
	Bio             *string `json:"bio"`
	Content         *string `json:"content"`
	ImageURL        *string `json:"imageUrl"`
	TwitterURL      *string `json:"twitterUrl"`
	GithubURL       *string `json:"githubUrl"`
	LinkedinURL     *string `json:"linkedinUrl"`
	BackgroundColor *string `json:"backgroundColor"`
	BlogFontColor   *string `json:"blogFontColor"`
	GradientColor1  *string `json:"gradientColor1"`
	GradientColor2  *string `json:"gradientColor2"`
	GradientColor3  *string `json:"gradientColor3"`
	GradientColor4  *string `json:"gradientColor4"`
}

// importRequest はフィードインポートリクエストのボディ。
type importRequest struct {
	URL string `json:"url"`
}

// CreatePost は記事を新規作成する。
// POST /api/admin/posts
func (h *AdminHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	post, err := h.content.CreatePost(r.Context(), &model.PostDraft{
		Title:          req.Title,
		Author:         req.Author,
		Content:        req.Content,
		Tags:           req.Tags,
		CoverImage:     req.CoverImage,
		CoverImageHint: req.CoverImageHint,
		Excerpt:        req.Excerpt,
		Date:           req.Date,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// UpdatePost は記事を部分更新する。
// PUT /api/admin/posts/{id}
func (h *AdminHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	post, err := h.content.UpdatePost(r.Context(), id, &model.PostPatch{
		Title:          req.Title,
		Author:         req.Author,
		Content:        req.Content,
		Tags:           req.Tags,
		CoverImage:     req.CoverImage,
		CoverImageHint: req.CoverImageHint,
		Excerpt:        req.Excerpt,
		Date:           req.Date,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if post == nil {
		handleServiceError(w, model.NewPostNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// DeletePost は記事を削除する。
// DELETE /api/admin/posts/{id}
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.content.DeletePost(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings はサイト設定をマージ更新する。
// PUT /api/admin/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	settings, err := h.content.SaveSettings(r.Context(), &model.SettingsPatch{
		Name:            req.Name,
		Bio:             req.Bio,
		Content:         req.Content,
		ImageURL:        req.ImageURL,
		TwitterURL:      req.TwitterURL,
		GithubURL:       req.GithubURL,
		LinkedinURL:     req.LinkedinURL,
		BackgroundColor: req.BackgroundColor,
		BlogFontColor:   req.BlogFontColor,
		GradientColor1:  req.GradientColor1,
		GradientColor2:  req.GradientColor2,
		GradientColor3:  req.GradientColor3,
		GradientColor4:  req.GradientColor4,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// ImportFeed は外部フィードから記事を一括インポートする。
// POST /api/admin/import
func (h *AdminHandler) ImportFeed(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.importer.Import(r.Context(), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordImportResult(result.Imported, result.Skipped, result.Failed)
	writeJSON(w, http.StatusOK, result)
}
