// Package summarize は外部要約サービスの呼び出しを提供する。
// 要約サービスが未設定または失敗した場合は記事の要約フィールドへフォールバックする。
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vibha/vtblogs/internal/model"
)

// maxResponseSize は要約サービスのレスポンスの最大サイズ。
const maxResponseSize = 1 << 20 // 1MiB

// FallbackRecorder は要約フォールバックの発生を記録する。
type FallbackRecorder interface {
	RecordSummarizerFallback()
}

// Client は外部要約サービスのクライアント。
// エンドポイントへ記事本文をPOSTし、生成された要約を受け取る。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // 空の場合、要約サービスは無効
	fallbacks  FallbackRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRF防止付きのクライアントを渡すこと。fallbacksはnil可。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string, fallbacks FallbackRecorder) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		fallbacks:  fallbacks,
	}
}

// summarizeRequest は要約サービスへのリクエストボディ。
type summarizeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// summarizeResponse は要約サービスのレスポンスボディ。
type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize は記事の要約を返す。
// 要約サービスが未設定、呼び出しが失敗、または空の要約が返った場合は、
// 記事の既存の要約フィールドへフォールバックする。要約の失敗は
// 閲覧体験を止める理由にならないため、このメソッドはエラーを返さない。
func (c *Client) Summarize(ctx context.Context, post *model.Post) string {
	if c.endpoint == "" {
		return post.Excerpt
	}

	summary, err := c.call(ctx, post)
	if err != nil {
		c.logger.Warn("summarizer call failed, falling back to excerpt",
			slog.String("slug", post.Slug),
			slog.String("error", err.Error()),
		)
		c.recordFallback()
		return post.Excerpt
	}
	if summary == "" {
		c.recordFallback()
		return post.Excerpt
	}
	return summary
}

func (c *Client) recordFallback() {
	if c.fallbacks != nil {
		c.fallbacks.RecordSummarizerFallback()
	}
}

// call は要約サービスを1回呼び出す。
func (c *Client) call(ctx context.Context, post *model.Post) (string, error) {
	payload, err := json.Marshal(summarizeRequest{
		Title:   post.Title,
		Content: post.Content,
	})
	if err != nil {
		return "", fmt.Errorf("リクエストボディの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VTBlogs/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("要約サービスがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result summarizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return result.Summary, nil
}
