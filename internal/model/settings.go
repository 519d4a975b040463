package model

import "time"

// SettingsID はサイト設定シングルトンレコードの固定キー。
const SettingsID = "about"

// SiteSettings はサイト設定のシングルトンレコードを表す。
// 著者紹介、ヒーローバナー、テーマカラー、ソーシャルリンクを保持する。
type SiteSettings struct {
	ID              string
	Name            string
	Bio             string
	Content         string
	ImageURL        string
	TwitterURL      string
	GithubURL       string
	LinkedinURL     string
	BackgroundColor string
	BlogFontColor   string
	GradientColor1  string
	GradientColor2  string
	GradientColor3  string
	GradientColor4  string
	UpdatedAt       time.Time
}

// SettingsPatch はサイト設定の部分更新を表す。
// nilフィールドは既存値を維持する。設定の保存は常にマージであり、
// ドキュメント全体の置き換えは行わない。
type SettingsPatch struct {
	Name            *string
	Bio             *string
	Content         *string
	ImageURL        *string
	TwitterURL      *string
	GithubURL       *string
	LinkedinURL     *string
	BackgroundColor *string
	BlogFontColor   *string
	GradientColor1  *string
	GradientColor2  *string
	GradientColor3  *string
	GradientColor4  *string
}
