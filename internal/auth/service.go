// Package auth は管理者認証とセッション管理を提供する。
//
// 管理者は設定で固定された1つのメールアドレスのみ。パスワードはbcryptで保存し、
// アカウントが未作成の状態での初回ログインがそのまま登録になる。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibha/vtblogs/internal/model"
	"github.com/vibha/vtblogs/internal/repository"
)

// パスワードの最小文字数
const minPasswordLength = 6

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	AdminEmail    string // 管理を許可する唯一のメールアドレス
	SessionMaxAge int    // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// 設定された管理者メールアドレス以外は、存在の有無を漏らさず一律に失敗させる。
// 管理者アカウントが未作成の場合、このログインがアカウント登録を兼ねる。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードは必須です")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で入力してください", minPasswordLength))
	}

	if email != strings.ToLower(s.config.AdminEmail) {
		slog.Warn("login attempt with non-admin email", slog.String("email", email))
		return nil, model.NewLoginFailedError()
	}

	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to find admin", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	if admin == nil {
		// 初回ログイン: アカウントを登録する
		admin, err = s.provision(ctx, email, password)
		if err != nil {
			return nil, err
		}
	} else {
		if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
			slog.Warn("login failed: password mismatch", slog.String("admin_id", admin.ID))
			return nil, model.NewLoginFailedError()
		}
	}

	session, err := s.createSession(ctx, admin.ID)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("admin logged in", slog.String("admin_id", admin.ID))
	return session, nil
}

// provision は管理者アカウントを初回ログイン時に作成する。
func (s *Service) provision(ctx context.Context, email, password string) (*model.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.Admin{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		slog.Error("failed to create admin", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("admin account provisioned", slog.String("admin_id", admin.ID))
	return admin, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		slog.Error("failed to delete session", slog.String("error", err.Error()))
		return model.ClassifyStoreError(err)
	}

	slog.Info("admin logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentAdmin はセッションから現在の管理者を取得する。
// セッションが無効または期限切れの場合は未認証エラーを返す。
func (s *Service) GetCurrentAdmin(ctx context.Context, sessionID string) (*model.Admin, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, model.ClassifyStoreError(err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	admin, err := s.adminRepo.FindByEmail(ctx, strings.ToLower(s.config.AdminEmail))
	if err != nil {
		return nil, model.ClassifyStoreError(err)
	}
	if admin == nil || admin.ID != session.AdminID {
		return nil, model.NewUnauthorizedError()
	}

	return admin, nil
}

// CleanupExpiredSessions は期限切れセッションを削除し、削除件数を返す。
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, model.ClassifyStoreError(err)
	}
	if n > 0 {
		slog.Info("expired sessions removed", slog.Int64("count", n))
	}
	return n, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, adminID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		AdminID:   adminID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
