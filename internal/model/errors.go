package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// FailureKind は失敗の分類を表す。
// リポジトリとライブバインディングは未分類の例外を投げず、必ずこの分類付きで失敗を返す。
type FailureKind string

const (
	// KindNotFound はslug/idによる検索ミス。通常は空の結果として返し、エラーにはしない。
	KindNotFound FailureKind = "not_found"
	// KindPermissionDenied はストアが操作を拒否した状態。リトライしない。
	KindPermissionDenied FailureKind = "permission_denied"
	// KindUnavailable は一時的な接続障害。自動リトライせず、ユーザーの再操作に委ねる。
	KindUnavailable FailureKind = "unavailable"
	// KindValidation は入力検証の失敗。ストア呼び出し前に検出される。
	KindValidation FailureKind = "validation"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     FailureKind // 失敗分類
	Code     string      // エラーコード
	Message  string      // エラーメッセージ
	Category string      // カテゴリ: auth, validation, content, system
	Action   string      // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeFeedbackNotFound = "FEEDBACK_NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeImportFailed     = "IMPORT_FAILED"
)

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(slugOrID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", slugOrID),
		Category: "content",
		Action:   "URLまたは記事IDを確認してください。",
	}
}

// NewFeedbackNotFoundError はフィードバック未検出エラーを生成する。
func NewFeedbackNotFoundError(id string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeFeedbackNotFound,
		Message:  fmt.Sprintf("指定されたフィードバックが見つかりません: %s", id),
		Category: "content",
		Action:   "フィードバックIDを確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewPermissionDeniedError は権限拒否エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Kind:     KindPermissionDenied,
		Code:     ErrCodePermissionDenied,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者としてログインしているか確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Kind:     KindPermissionDenied,
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
// アカウントの存在有無を漏らさないよう、理由は区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeLoginFailed,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewStoreUnavailableError はストア接続障害エラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Kind:     KindUnavailable,
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアに接続できませんでした。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewImportFailedError はRSSインポート失敗エラーを生成する。
func NewImportFailedError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeImportFailed,
		Message:  fmt.Sprintf("フィードのインポートに失敗しました: %s", reason),
		Category: "content",
		Action:   "フィードURLが正しいか確認してください。",
	}
}

// ClassifyStoreError はストア操作のエラーを失敗分類付きのAPIErrorへ変換する。
// すでにAPIErrorの場合はそのまま返す。
// PostgreSQLのSQLSTATEクラスに基づいて分類し、権限系（クラス28, 42501）は
// permission_denied、それ以外の実行時エラーはunavailableとして扱う。
func ClassifyStoreError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if strings.HasPrefix(code, "28") || code == "42501" {
			return NewPermissionDeniedError()
		}
	}

	return NewStoreUnavailableError()
}
