// Package content は記事とサイト設定の取得・検索・書き込みを提供する。
//
// 取得系の操作はストアへの問い合わせ、または取得済みドキュメントに対する
// メモリ内フィルタに変換される。呼び出しをまたいだキャッシュは持たない。
// すべての失敗は分類付きのAPIErrorとして呼び出し側へ返る。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibha/vtblogs/internal/model"
	"github.com/vibha/vtblogs/internal/repository"
)

// Sanitizer はHTMLサニタイズのインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Service は記事とサイト設定に関するビジネスロジックを提供する。
type Service struct {
	postRepo     repository.PostRepository
	settingsRepo repository.SettingsRepository
	sanitizer    Sanitizer
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	settingsRepo repository.SettingsRepository,
	sanitizer Sanitizer,
) *Service {
	return &Service{
		postRepo:     postRepo,
		settingsRepo: settingsRepo,
		sanitizer:    sanitizer,
	}
}

// ListPosts は全記事をdate降順で返す。記事がない場合は空スライスを返す。
// 同一dateの記事はid降順で安定に並ぶ。
func (s *Service) ListPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		slog.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}
	return posts, nil
}

// GetPostBySlug はslugで記事を検索する。見つからない場合は(nil, nil)を返す。
// 未検出はエラーではなく不在の結果として扱う。
func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.postRepo.FindBySlug(ctx, slug)
	if err != nil {
		slog.Error("failed to find post by slug",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, model.ClassifyStoreError(err)
	}
	return post, nil
}

// GetPostsByTag は指定タグを含む記事をdate降順で返す。
// タグは大文字小文字を区別せず、フィルタ前に小文字へ正規化される。
func (s *Service) GetPostsByTag(ctx context.Context, tag string) ([]*model.Post, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return []*model.Post{}, nil
	}

	posts, err := s.postRepo.ListByTag(ctx, normalized)
	if err != nil {
		slog.Error("failed to list posts by tag",
			slog.String("tag", normalized),
			slog.String("error", err.Error()),
		)
		return nil, model.ClassifyStoreError(err)
	}
	return posts, nil
}

// SearchPosts はタイトル・要約・本文に対する大文字小文字を区別しない
// 部分一致検索（3フィールドの論理和）を行う。
// 空または空白のみのクエリは全件ではなく空の結果を返す。これは空入力で
// 全コーパスを返してしまう事故を避けるための意図的な契約である。
// フィルタは取得済み記事に対するメモリ内走査で行う。
func (s *Service) SearchPosts(ctx context.Context, query string) ([]*model.Post, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []*model.Post{}, nil
	}

	posts, err := s.postRepo.List(ctx)
	if err != nil {
		slog.Error("failed to search posts", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	matched := []*model.Post{}
	for _, post := range posts {
		if strings.Contains(strings.ToLower(post.Title), q) ||
			strings.Contains(strings.ToLower(post.Excerpt), q) ||
			strings.Contains(strings.ToLower(post.Content), q) {
			matched = append(matched, post)
		}
	}
	return matched, nil
}

// ListTags は全記事のタグの重複排除済みの和集合を返す。
// 順序は記事一覧（date降順）における初出順で安定。
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		slog.Error("failed to list tags", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	seen := make(map[string]struct{})
	tags := []string{}
	for _, post := range posts {
		for _, tag := range post.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// CreatePost は新規記事を作成する。
// slugはタイトルから導出され、要約が未指定の場合はサニタイズ済み本文の
// 先頭150文字から合成される。指定された要約も本文と同様にサニタイズされる。
// タグは小文字へ正規化され、カバー画像が未指定の場合はslugをシードとした
// プレースホルダURLが設定される。
func (s *Service) CreatePost(ctx context.Context, draft *model.PostDraft) (*model.Post, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, model.NewValidationError("本文は必須です")
	}

	slug := Slugify(draft.Title)
	if slug == "" {
		return nil, model.NewValidationError("タイトルからslugを導出できません")
	}

	now := time.Now()
	date := now
	if draft.Date != nil {
		date = *draft.Date
	}

	// 要約も保存対象のため、本文と同様にサニタイズ済みテキストから作る
	content := s.sanitizer.Sanitize(draft.Content)

	excerpt := draft.Excerpt
	if excerpt == "" {
		excerpt = SynthesizeExcerpt(content)
	} else {
		excerpt = s.sanitizer.Sanitize(excerpt)
	}

	coverImage := draft.CoverImage
	if coverImage == "" {
		coverImage = fmt.Sprintf("https://picsum.photos/seed/%s/1080/720", slug)
	}

	coverImageHint := draft.CoverImageHint
	if coverImageHint == "" {
		coverImageHint = "blog post"
	}

	post := &model.Post{
		ID:             uuid.New().String(),
		Slug:           slug,
		Title:          strings.TrimSpace(draft.Title),
		Author:         draft.Author,
		Date:           date,
		CoverImage:     coverImage,
		CoverImageHint: coverImageHint,
		Excerpt:        excerpt,
		Content:        content,
		Tags:           NormalizeTags(draft.Tags),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		slog.Error("failed to create post",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
	)
	return post, nil
}

// UpdatePost は記事の部分更新を行う。nilフィールドは変更されない。
// slugは再生成されない。対象が存在しない場合は(nil, nil)を返す。
func (s *Service) UpdatePost(ctx context.Context, id string, patch *model.PostPatch) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, model.ClassifyStoreError(err)
	}
	if post == nil {
		return nil, nil
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, model.NewValidationError("タイトルは必須です")
		}
		post.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Author != nil {
		post.Author = *patch.Author
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, model.NewValidationError("本文は必須です")
		}
		post.Content = s.sanitizer.Sanitize(*patch.Content)
	}
	if patch.Tags != nil {
		post.Tags = NormalizeTags(patch.Tags)
	}
	if patch.CoverImage != nil {
		post.CoverImage = *patch.CoverImage
	}
	if patch.CoverImageHint != nil {
		post.CoverImageHint = *patch.CoverImageHint
	}
	if patch.Excerpt != nil {
		post.Excerpt = s.sanitizer.Sanitize(*patch.Excerpt)
	}
	if patch.Date != nil {
		post.Date = *patch.Date
	}
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		slog.Error("failed to update post",
			slog.String("post_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("post updated", slog.String("post_id", id))
	return post, nil
}

// DeletePost は記事を物理削除する。トゥームストーンや取り消しはない。
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if err := s.postRepo.Delete(ctx, id); err != nil {
		slog.Error("failed to delete post",
			slog.String("post_id", id),
			slog.String("error", err.Error()),
		)
		return model.ClassifyStoreError(err)
	}

	slog.Info("post deleted", slog.String("post_id", id))
	return nil
}

// GetSettings はサイト設定のシングルトンレコードを返す。
func (s *Service) GetSettings(ctx context.Context) (*model.SiteSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		slog.Error("failed to get settings", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}
	return settings, nil
}

// SaveSettings はサイト設定のマージ書き込みを行い、更新後のレコードを返す。
// パッチに含まれるフィールドのみが上書きされ、他のフィールドは維持される。
func (s *Service) SaveSettings(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error) {
	if patch.Content != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Content)
		patch.Content = &sanitized
	}
	if patch.Bio != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Bio)
		patch.Bio = &sanitized
	}

	settings, err := s.settingsRepo.Merge(ctx, patch)
	if err != nil {
		slog.Error("failed to save settings", slog.String("error", err.Error()))
		return nil, model.ClassifyStoreError(err)
	}

	slog.Info("settings saved")
	return settings, nil
}
