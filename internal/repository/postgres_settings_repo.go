package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibha/vtblogs/internal/model"
)

// settingsColumns は設定SELECTの共通カラムリスト。
const settingsColumns = `id, name, bio, content, image_url, twitter_url, github_url,
	        linkedin_url, background_color, blog_font_color,
	        gradient_color1, gradient_color2, gradient_color3, gradient_color4,
	        updated_at`

// PostgresSettingsRepo はPostgreSQLを使用したサイト設定リポジトリ。
// 設定は固定キーのシングルトンレコードで、保存は常にマージ（非破壊的合成）となる。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

func scanSettings(row interface {
	Scan(dest ...interface{}) error
}) (*model.SiteSettings, error) {
	s := &model.SiteSettings{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Bio, &s.Content, &s.ImageURL,
		&s.TwitterURL, &s.GithubURL, &s.LinkedinURL,
		&s.BackgroundColor, &s.BlogFontColor,
		&s.GradientColor1, &s.GradientColor2, &s.GradientColor3, &s.GradientColor4,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get は固定キーのシングルトンレコードを取得する。
// マイグレーションでレコードが用意されるため、通常は必ず存在する。
func (r *PostgresSettingsRepo) Get(ctx context.Context) (*model.SiteSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM settings WHERE id = $1`,
		model.SettingsID,
	))
	if err == sql.ErrNoRows {
		// レコード欠落時は空の設定として扱う
		return &model.SiteSettings{ID: model.SettingsID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サイト設定の取得に失敗しました: %w", err)
	}
	return s, nil
}

// Merge はパッチに含まれるフィールドのみを上書きするマージ書き込みを行う。
// COALESCEによりnilフィールドは既存値を維持する。
// 設定の保存はドキュメント全体の置き換えではなく、常に非破壊的な合成となる。
func (r *PostgresSettingsRepo) Merge(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx,
		`UPDATE settings SET
		    name = COALESCE($2, name),
		    bio = COALESCE($3, bio),
		    content = COALESCE($4, content),
		    image_url = COALESCE($5, image_url),
		    twitter_url = COALESCE($6, twitter_url),
		    github_url = COALESCE($7, github_url),
		    linkedin_url = COALESCE($8, linkedin_url),
		    background_color = COALESCE($9, background_color),
		    blog_font_color = COALESCE($10, blog_font_color),
		    gradient_color1 = COALESCE($11, gradient_color1),
		    gradient_color2 = COALESCE($12, gradient_color2),
		    gradient_color3 = COALESCE($13, gradient_color3),
		    gradient_color4 = COALESCE($14, gradient_color4),
		    updated_at = now()
		 WHERE id = $1
		 RETURNING `+settingsColumns,
		model.SettingsID,
		patch.Name, patch.Bio, patch.Content, patch.ImageURL,
		patch.TwitterURL, patch.GithubURL, patch.LinkedinURL,
		patch.BackgroundColor, patch.BlogFontColor,
		patch.GradientColor1, patch.GradientColor2, patch.GradientColor3, patch.GradientColor4,
	))
	if err != nil {
		return nil, fmt.Errorf("サイト設定のマージ書き込みに失敗しました: %w", err)
	}
	return s, nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
