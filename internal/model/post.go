// Package model はドメインモデルを定義する。
package model

import "time"

// Post はブログ記事1件を表す。
// IDはストアが払い出す不透明な識別子、SlugはURL向けの人間可読な識別子。
// Tagsの要素は書き込み時に小文字へ正規化される。
type Post struct {
	ID             string
	Slug           string
	Title          string
	Author         string
	Date           time.Time
	CoverImage     string // URLまたはdata URI
	CoverImageHint string
	Excerpt        string
	Content        string // 本文。#tagトークンはレンダリング時に解釈される
	Tags           []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostDraft は新規記事作成の入力を表す。
// Slugは常にTitleから導出され、Excerptが空の場合はContentの先頭150文字から合成される。
type PostDraft struct {
	Title          string
	Author         string
	Content        string
	Tags           []string
	CoverImage     string
	CoverImageHint string
	Excerpt        string
	Date           *time.Time // nilの場合は現在時刻
}

// PostPatch は記事の部分更新を表す。
// nilフィールドは変更しない。Slugは更新で再生成されない。
type PostPatch struct {
	Title          *string
	Author         *string
	Content        *string
	Tags           []string // nilは変更なし
	CoverImage     *string
	CoverImageHint *string
	Excerpt        *string
	Date           *time.Time
}
