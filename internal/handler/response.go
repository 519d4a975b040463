package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vibha/vtblogs/internal/middleware"
	"github.com/vibha/vtblogs/internal/model"
)

// postResponse は記事のAPIレスポンス。
// フィールド名はフロントエンドの期待するcamelCaseに合わせる。
type postResponse struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Author         string    `json:"author,omitempty"`
	Date           time.Time `json:"date"`
	CoverImage     string    `json:"coverImage"`
	CoverImageHint string    `json:"coverImageHint,omitempty"`
	Excerpt        string    `json:"excerpt"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// toPostResponse はドメインのPostをレスポンス型へ変換する。
func toPostResponse(p *model.Post) postResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return postResponse{
		ID:             p.ID,
		Slug:           p.Slug,
		Title:          p.Title,
		Author:         p.Author,
		Date:           p.Date,
		CoverImage:     p.CoverImage,
		CoverImageHint: p.CoverImageHint,
		Excerpt:        p.Excerpt,
		Content:        p.Content,
		Tags:           tags,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// toPostListResponse は記事スライスをレスポンス型へ変換する。
func toPostListResponse(posts []*model.Post) []postResponse {
	out := make([]postResponse, len(posts))
	for i, p := range posts {
		out[i] = toPostResponse(p)
	}
	return out
}

// settingsResponse はサイト設定のAPIレスポンス。
type settingsResponse struct {
	Name            string `json:"name"`
	Bio             string `json:"bio"`
	Content         string `json:"content"`
	ImageURL        string `json:"imageUrl"`
	TwitterURL      string `json:"twitterUrl"`
	GithubURL       string `json:"githubUrl"`
	LinkedinURL     string `json:"linkedinUrl"`
	BackgroundColor string `json:"backgroundColor"`
	BlogFontColor   string `json:"blogFontColor"`
	GradientColor1  string `json:"gradientColor1"`
	GradientColor2  string `json:"gradientColor2"`
	GradientColor3  string `json:"gradientColor3"`
	GradientColor4  string `json:"gradientColor4"`
}

// toSettingsResponse はドメインのSiteSettingsをレスポンス型へ変換する。
func toSettingsResponse(s *model.SiteSettings) settingsResponse {
	return settingsResponse{
		Name:            s.Name,
		Bio:             s.Bio,
		Content:         s.Content,
		ImageURL:        s.ImageURL,
		TwitterURL:      s.TwitterURL,
		GithubURL:       s.GithubURL,
		LinkedinURL:     s.LinkedinURL,
		BackgroundColor: s.BackgroundColor,
		BlogFontColor:   s.BlogFontColor,
		GradientColor1:  s.GradientColor1,
		GradientColor2:  s.GradientColor2,
		GradientColor3:  s.GradientColor3,
		GradientColor4:  s.GradientColor4,
	}
}

// feedbackResponse はフィードバックのAPIレスポンス。
type feedbackResponse struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Comment       string    `json:"comment,omitempty"`
	ScreenshotURL string    `json:"screenshotUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// toFeedbackResponse はドメインのFeedbackをレスポンス型へ変換する。
func toFeedbackResponse(fb *model.Feedback) feedbackResponse {
	return feedbackResponse{
		ID:            fb.ID,
		Description:   fb.Description,
		Type:          string(fb.Type),
		Status:        string(fb.Status),
		Comment:       fb.Comment,
		ScreenshotURL: fb.ScreenshotURL,
		CreatedAt:     fb.CreatedAt,
		UpdatedAt:     fb.UpdatedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeInvalidBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidBody(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Kind:     model.KindValidation,
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層のエラーを統一フォーマットで書き込む。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteAPIError(w, err)
}
