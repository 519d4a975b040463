// Package feedimport はRSS/Atomフィードからのワンショットインポートを提供する。
// 管理者が既存ブログのフィードURLを指定すると、各エントリが記事として取り込まれる。
package feedimport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vibha/vtblogs/internal/model"
)

// PostWriter は記事作成処理のインターフェース。
// content.Serviceの部分集合として定義する。
type PostWriter interface {
	CreatePost(ctx context.Context, draft *model.PostDraft) (*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Slugger はタイトルからslugを導出する関数型。content.Slugifyを渡す。
type Slugger func(title string) string

// Result はインポート1回分の結果サマリ。
type Result struct {
	Total    int `json:"total"`    // フィードに含まれていたエントリ数
	Imported int `json:"imported"` // 取り込んだ記事数
	Skipped  int `json:"skipped"`  // 重複などで見送った記事数
	Failed   int `json:"failed"`   // 保存に失敗した記事数
}

// Importer はフィードのフェッチ・パース・記事への変換を行う。
type Importer struct {
	writer      PostWriter
	ssrfGuard   SSRFValidator
	slugify     Slugger
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
	maxPosts    int
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(
	writer PostWriter,
	ssrfGuard SSRFValidator,
	slugify Slugger,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	maxPosts int,
) *Importer {
	return &Importer{
		writer:      writer,
		ssrfGuard:   ssrfGuard,
		slugify:     slugify,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		maxPosts:    maxPosts,
	}
}

// Import はフィードURLから記事を取り込む。
// SSRF検証に失敗したURL、取得・パースできないフィードはエラーを返す。
// 個々のエントリの失敗はインポート全体を止めず、Resultに集計される。
// 同一slugの記事が既に存在するエントリは重複として見送る。
func (i *Importer) Import(ctx context.Context, feedURL string) (*Result, error) {
	if err := i.ssrfGuard.ValidateURL(feedURL); err != nil {
		i.logger.Warn("import rejected by SSRF validation",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewInvalidURLError("フィードURLが検証に失敗しました")
	}

	feed, err := i.fetch(ctx, feedURL)
	if err != nil {
		i.logger.Error("failed to fetch feed",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewImportFailedError("フィードを取得できませんでした")
	}

	result := &Result{Total: len(feed.Items)}

	items := feed.Items
	if len(items) > i.maxPosts {
		items = items[:i.maxPosts]
		result.Skipped += result.Total - i.maxPosts
	}

	for _, item := range items {
		switch err := i.importItem(ctx, item); {
		case err == nil:
			result.Imported++
		case err == errDuplicate || err == errEmptyItem:
			result.Skipped++
		default:
			i.logger.Warn("failed to import feed item",
				slog.String("item_title", item.Title),
				slog.String("error", err.Error()),
			)
			result.Failed++
		}
	}

	i.logger.Info("feed import finished",
		slog.String("feed_url", feedURL),
		slog.Int("total", result.Total),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

var (
	errDuplicate = fmt.Errorf("duplicate slug")
	errEmptyItem = fmt.Errorf("empty item")
)

// importItem はフィードエントリ1件を記事へ変換して保存する。
func (i *Importer) importItem(ctx context.Context, item *gofeed.Item) error {
	if item.Title == "" {
		return errEmptyItem
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}
	if content == "" {
		return errEmptyItem
	}

	slug := i.slugify(item.Title)
	if slug == "" {
		return errEmptyItem
	}

	existing, err := i.writer.GetPostBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if existing != nil {
		return errDuplicate
	}

	draft := &model.PostDraft{
		Title:   item.Title,
		Content: content,
		Excerpt: ExtractText(item.Description, 150),
		Tags:    item.Categories,
	}

	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		draft.Date = &published
	}
	if item.Author != nil {
		draft.Author = item.Author.Name
	}
	if item.Image != nil {
		draft.CoverImage = item.Image.URL
	}

	_, err = i.writer.CreatePost(ctx, draft)
	return err
}

// fetch はフィードを取得してパースする。
func (i *Importer) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	client := i.ssrfGuard.NewSafeClient(i.timeout, i.maxBodySize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "VTBlogs/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("フィードがステータス %d を返しました", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}
	return parsed, nil
}
