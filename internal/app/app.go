// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/vibha/vtblogs/internal/auth"
	"github.com/vibha/vtblogs/internal/config"
	"github.com/vibha/vtblogs/internal/content"
	"github.com/vibha/vtblogs/internal/database"
	"github.com/vibha/vtblogs/internal/feedback"
	"github.com/vibha/vtblogs/internal/feedimport"
	"github.com/vibha/vtblogs/internal/handler"
	"github.com/vibha/vtblogs/internal/live"
	"github.com/vibha/vtblogs/internal/logger"
	"github.com/vibha/vtblogs/internal/metrics"
	"github.com/vibha/vtblogs/internal/middleware"
	"github.com/vibha/vtblogs/internal/repository"
	"github.com/vibha/vtblogs/internal/security"
	"github.com/vibha/vtblogs/internal/summarize"
	"github.com/vibha/vtblogs/internal/worker/cleanup"
)

// セッションクリーンアップジョブの実行間隔
const sessionCleanupInterval = time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前のログのためにまずデフォルトレベルで初期化する
	logger.SetupDefault(w, "info")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// セッションクリーンアップジョブはバックグラウンドで定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. 変更通知リスナー
	notifier, err := live.NewPGNotifier(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to start change listener: %w", err)
	}
	defer notifier.Close()

	// 3. リポジトリの初期化
	postRepo := repository.NewPostgresPostRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)
	feedbackRepo := repository.NewPostgresFeedbackRepo(db)
	adminRepo := repository.NewPostgresAdminRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 4. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ドメインサービスの初期化
	contentService := content.NewService(postRepo, settingsRepo, sanitizer)
	feedbackService := feedback.NewService(feedbackRepo, ssrfGuard, sanitizer)
	authService := auth.NewService(adminRepo, sessionRepo, auth.ServiceConfig{
		AdminEmail:    cfg.AdminEmail,
		SessionMaxAge: cfg.SessionMaxAge,
	})

	summarizer := summarize.NewClient(
		ssrfGuard.NewSafeClient(cfg.SummarizeTimeout, 1<<20),
		slog.Default(),
		cfg.SummarizerURL,
		collector,
	)

	importer := feedimport.NewImporter(
		contentService, ssrfGuard, content.Slugify,
		slog.Default(), cfg.ImportTimeout, cfg.ImportMaxSize, cfg.ImportMaxPosts,
	)

	// 7. レートリミッターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレートはreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60)
	rateLimiterCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiterCfg.FeedbackRate = rate.Limit(float64(cfg.RateLimitFeedback) / 60)
	rateLimiterCfg.FeedbackBurst = cfg.RateLimitFeedback
	rateLimiterCfg.TrustProxyHeader = cfg.TrustProxyHeader
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	router := handler.NewRouter(handler.RouterDeps{
		PostHandler:     handler.NewPostHandler(contentService, summarizer),
		FeedbackHandler: handler.NewFeedbackHandler(feedbackService),
		AuthHandler: handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		}),
		AdminHandler:  handler.NewAdminHandler(contentService, importer, collector),
		LiveHandler:   handler.NewLiveHandler(contentService, notifier, collector),
		SessionFinder: sessionRepo,
		RateLimiter:   rateLimiter,
		Logger:        slog.Default(),
		Metrics:       collector,
		Gatherer:      registry,

		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	// 9. バックグラウンドジョブの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupJob := cleanup.NewJob(authService, slog.Default())
	go cleanupJob.Start(ctx, sessionCleanupInterval)

	// 10. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSEのためWriteTimeoutは設けない
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
