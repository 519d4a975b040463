// Package feedback はバグ報告・機能要望トラッカーのビジネスロジックを提供する。
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibha/vtblogs/internal/model"
	"github.com/vibha/vtblogs/internal/repository"
)

// URLValidator はスクリーンショットURLの検証インターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Sanitizer は投稿テキストのサニタイズインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service はフィードバックの投稿・管理を提供する。
type Service struct {
	feedbackRepo repository.FeedbackRepository
	urlValidator URLValidator
	sanitizer    Sanitizer
}

// NewService はServiceを生成する。
func NewService(feedbackRepo repository.FeedbackRepository, urlValidator URLValidator, sanitizer Sanitizer) *Service {
	return &Service{
		feedbackRepo: feedbackRepo,
		urlValidator: urlValidator,
		sanitizer:    sanitizer,
	}
}

// Submit は公開フォームからのフィードバックを受け付ける。
// statusは常にNewで作成され、投稿者がstatusやcommentを指定することはできない。
// 内容は書き込み時にサニタイズして保存する。
// スクリーンショットはhttp(s) URLまたはdata URIを受け付ける。
func (s *Service) Submit(ctx context.Context, description string, fbType model.FeedbackType, screenshotURL string) (*model.Feedback, error) {
	if strings.TrimSpace(description) == "" {
		return nil, model.NewValidationError("内容は必須です")
	}
	if !model.ValidFeedbackType(fbType) {
		return nil, model.NewValidationError("種別はbugまたはfeatureを指定してください")
	}
	if err := s.validateScreenshot(screenshotURL); err != nil {
		return nil, err
	}

	now := time.Now()
	fb := &model.Feedback{
		ID:            uuid.New().String(),
		Description:   s.sanitizer.Sanitize(strings.TrimSpace(description)),
		Type:          fbType,
		Status:        model.FeedbackStatusNew,
		ScreenshotURL: screenshotURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.feedbackRepo.Create(ctx, fb); err != nil {
		slog.Error("failed to create feedback", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("feedback submitted",
		slog.String("feedback_id", fb.ID),
		slog.String("type", string(fb.Type)),
	)
	return fb, nil
}

// List は全フィードバックをcreated_at降順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Feedback, error) {
	items, err := s.feedbackRepo.List(ctx)
	if err != nil {
		slog.Error("failed to list feedback", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}
	return items, nil
}

// Update は管理者によるstatus/comment/screenshotの部分更新を行う。
// descriptionとtypeは投稿後不変。対象が存在しない場合は(nil, nil)を返す。
func (s *Service) Update(ctx context.Context, id string, patch *model.FeedbackPatch) (*model.Feedback, error) {
	if patch.Status != nil && !model.ValidFeedbackStatus(*patch.Status) {
		return nil, model.NewValidationError("ステータスはNew、In Progress、Completedのいずれかを指定してください")
	}
	if patch.ScreenshotURL != nil {
		if err := s.validateScreenshot(*patch.ScreenshotURL); err != nil {
			return nil, err
		}
	}
	if patch.Comment != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Comment)
		patch.Comment = &sanitized
	}

	fb, err := s.feedbackRepo.Patch(ctx, id, patch)
	if err != nil {
		slog.Error("failed to update feedback",
			slog.String("feedback_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.ClassifyStoreError(err)
	}
	if fb == nil {
		return nil, nil
	}

	slog.Info("feedback updated", slog.String("feedback_id", id))
	return fb, nil
}

// Delete はフィードバックを物理削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.feedbackRepo.Delete(ctx, id); err != nil {
		slog.Error("failed to delete feedback",
			slog.String("feedback_id", id),
			slog.String("error", err.Error()),
		)
		return model.ClassifyStoreError(err)
	}

	slog.Info("feedback deleted", slog.String("feedback_id", id))
	return nil
}

// validateScreenshot はスクリーンショット欄を検証する。
// 空は省略、data URIは画像の埋め込みとしてそのまま受け付け、
// それ以外はSSRFガードを通したURL検証にかける。
func (s *Service) validateScreenshot(raw string) error {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "data:image/") {
		return nil
	}
	if err := s.urlValidator.ValidateURL(raw); err != nil {
		return model.NewInvalidURLError("スクリーンショットのURLが検証に失敗しました")
	}
	return nil
}
