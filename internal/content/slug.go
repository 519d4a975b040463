package content

import (
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace   = regexp.MustCompile(`\s+`)
	slugHyphenRuns   = regexp.MustCompile(`-+`)
)

// Slugify はタイトルからURL安全なslugを決定的に導出する。
// 小文字化 → 英数字・空白・ハイフン以外を除去 → 前後の空白を除去 →
// 空白をハイフンへ → 連続ハイフンを1つに畳む。
// slugは作成時に一度だけ導出され、以後の編集で再生成されない。
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphenRuns.ReplaceAllString(s, "-")
	return s
}

// SynthesizeExcerpt は本文の先頭150文字に省略記号を付けた要約を合成する。
// 文字数はrune単位で数える。
func SynthesizeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) > 150 {
		runes = runes[:150]
	}
	return string(runes) + "..."
}

// NormalizeTags はタグ集合を書き込み時の不変条件へ正規化する。
// 各要素を前後空白除去のうえ小文字化し、空要素を除去する。順序は保持する。
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		normalized = append(normalized, t)
	}
	return normalized
}
