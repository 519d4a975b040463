package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibha/vtblogs/internal/model"
)

// FeedbackServiceInterface はフィードバックハンドラーが必要とするサービスインターフェース。
type FeedbackServiceInterface interface {
	Submit(ctx context.Context, description string, fbType model.FeedbackType, screenshotURL string) (*model.Feedback, error)
	List(ctx context.Context) ([]*model.Feedback, error)
	Update(ctx context.Context, id string, patch *model.FeedbackPatch) (*model.Feedback, error)
	Delete(ctx context.Context, id string) error
}

// FeedbackHandler はフィードバックのHTTPハンドラー。
// Submitは公開、それ以外は管理者専用ルートに配置される。
type FeedbackHandler struct {
	service FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを生成する。
func NewFeedbackHandler(service FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// submitFeedbackRequest はフィードバック投稿リクエストのボディ。
type submitFeedbackRequest struct {
	Description   string `json:"description"`
	Type          string `json:"type"`
	ScreenshotURL string `json:"screenshotUrl"`
}

// updateFeedbackRequest は管理者によるフィードバック更新リクエストのボディ。
type updateFeedbackRequest struct {
	Status        *string `json:"status"`
	Comment       *string `json:"comment"`
	ScreenshotURL *string `json:"screenshotUrl"`
}

// Submit は公開フォームからのフィードバック投稿を処理する。
// POST /api/feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	fb, err := h.service.Submit(r.Context(), req.Description, model.FeedbackType(req.Type), req.ScreenshotURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFeedbackResponse(fb))
}

// List は全フィードバックを返す。
// GET /api/admin/feedback
func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]feedbackResponse, len(items))
	for i, fb := range items {
		out[i] = toFeedbackResponse(fb)
	}
	writeJSON(w, http.StatusOK, out)
}

// Update は管理者によるフィードバックの部分更新を処理する。
// PUT /api/admin/feedback/{id}
func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	patch := &model.FeedbackPatch{
		Comment:       req.Comment,
		ScreenshotURL: req.ScreenshotURL,
	}
	if req.Status != nil {
		status := model.FeedbackStatus(*req.Status)
		patch.Status = &status
	}

	fb, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if fb == nil {
		handleServiceError(w, model.NewFeedbackNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, toFeedbackResponse(fb))
}

// Delete はフィードバックを削除する。
// DELETE /api/admin/feedback/{id}
func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
