package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vibha/vtblogs/internal/metrics"
	"github.com/vibha/vtblogs/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	PostHandler     *PostHandler
	FeedbackHandler *FeedbackHandler
	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler
	LiveHandler     *LiveHandler
	SessionFinder   middleware.SessionFinder
	RateLimiter     *middleware.RateLimiter
	Logger          *slog.Logger
	Metrics         middleware.HTTPMetricsRecorder
	Gatherer        prometheus.Gatherer

	CORSAllowedOrigin string
}

// NewRouter はアプリケーションの全ルートを構築する。
//
// ルート構成:
//   - 公開API: 一般レート制限のみ
//   - /api/feedback: フィードバック専用の厳しいレート制限
//   - /auth/login: ログイン専用の厳しいレート制限
//   - /api/admin/*: セッション認証必須
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	// 運用エンドポイント（レート制限の対象外）
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// 公開API
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/posts", deps.PostHandler.ListPosts)
		r.Get("/api/posts/{slug}", deps.PostHandler.GetPost)
		r.Get("/api/posts/{slug}/summary", deps.PostHandler.Summarize)
		r.Get("/api/tags", deps.PostHandler.ListTags)
		r.Get("/api/settings", deps.PostHandler.GetSettings)
		r.Get("/api/live/posts", deps.LiveHandler.StreamPosts)

		r.With(deps.RateLimiter.FeedbackMiddleware()).Post("/api/feedback", deps.FeedbackHandler.Submit)

		r.With(deps.RateLimiter.LoginMiddleware()).Post("/auth/login", deps.AuthHandler.Login)
		r.Post("/auth/logout", deps.AuthHandler.Logout)
		r.Get("/auth/me", deps.AuthHandler.Me)
	})

	// 管理者API
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

		r.Post("/api/admin/posts", deps.AdminHandler.CreatePost)
		r.Put("/api/admin/posts/{id}", deps.AdminHandler.UpdatePost)
		r.Delete("/api/admin/posts/{id}", deps.AdminHandler.DeletePost)

		r.Put("/api/admin/settings", deps.AdminHandler.UpdateSettings)

		r.Get("/api/admin/feedback", deps.FeedbackHandler.List)
		r.Put("/api/admin/feedback/{id}", deps.FeedbackHandler.Update)
		r.Delete("/api/admin/feedback/{id}", deps.FeedbackHandler.Delete)

		r.Post("/api/admin/import", deps.AdminHandler.ImportFeed)
	})

	return r
}
