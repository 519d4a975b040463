// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/vibha/vtblogs/internal/model"
)

// PostRepository は記事ドキュメントの永続化インターフェース。
// リポジトリは呼び出しをまたいでキャッシュを保持せず、読み取りのたびにストアへ問い合わせる。
type PostRepository interface {
	// List は全記事をdate降順（同値はid降順）で取得する。記事がない場合は空スライスを返す。
	List(ctx context.Context) ([]*model.Post, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindBySlug はslugの等価フィルタで記事を検索する。見つからない場合はnilを返す。
	// 同一slugのドキュメントが複数存在する場合（書き込み時に防止されないデータ不整合）、
	// ストアの既定順序であるid昇順の先頭1件を決定的に返す。
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)

	// ListByTag はtags配列に指定タグを含む記事をdate降順で取得する。
	// タグは呼び出し側で正規化済み（小文字）であること。
	ListByTag(ctx context.Context, tag string) ([]*model.Post, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事の可変フィールドを上書きする。id、slug、created_atは変更しない。
	Update(ctx context.Context, post *model.Post) error

	// Delete は指定IDの記事を物理削除する。対象が存在しない場合もエラーにしない。
	Delete(ctx context.Context, id string) error
}

// SettingsRepository はサイト設定シングルトンの永続化インターフェース。
type SettingsRepository interface {
	// Get は固定キーのシングルトンレコードを取得する。
	Get(ctx context.Context) (*model.SiteSettings, error)

	// Merge はパッチに含まれるフィールドのみを上書きするマージ書き込みを行い、
	// 更新後のレコードを返す。nilフィールドは既存値を維持する。
	Merge(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error)
}

// FeedbackRepository はフィードバックドキュメントの永続化インターフェース。
type FeedbackRepository interface {
	// List は全フィードバックをcreated_at降順で取得する。
	List(ctx context.Context) ([]*model.Feedback, error)

	// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Feedback, error)

	// Create はフィードバックを作成する。
	Create(ctx context.Context, fb *model.Feedback) error

	// Patch はstatus/comment/screenshot_urlの部分更新を行い、更新後のレコードを返す。
	// nilフィールドは既存値を維持する。対象が存在しない場合はnilを返す。
	Patch(ctx context.Context, id string, patch *model.FeedbackPatch) (*model.Feedback, error)

	// Delete は指定IDのフィードバックを物理削除する。
	Delete(ctx context.Context, id string) error
}

// AdminRepository は管理者アカウントの永続化インターフェース。
type AdminRepository interface {
	// FindByEmail はメールアドレスで管理者を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)

	// Create は管理者アカウントを作成する。
	Create(ctx context.Context, admin *model.Admin) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
