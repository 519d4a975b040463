package model

import "time"

// Admin は唯一の管理者アカウントを表す。
// 設定で固定された管理者メールアドレスに対して、初回ログイン時に自動作成される。
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session は管理者のログインセッションを表す。
type Session struct {
	ID        string
	AdminID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
