package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vibha/vtblogs/internal/model"
)

// mockPostRepo はPostRepositoryのモック実装
type mockPostRepo struct {
	listFunc       func(ctx context.Context) ([]*model.Post, error)
	findByIDFunc   func(ctx context.Context, id string) (*model.Post, error)
	findBySlugFunc func(ctx context.Context, slug string) (*model.Post, error)
	listByTagFunc  func(ctx context.Context, tag string) ([]*model.Post, error)
	createFunc     func(ctx context.Context, post *model.Post) error
	updateFunc     func(ctx context.Context, post *model.Post) error
	deleteFunc     func(ctx context.Context, id string) error
}

func (m *mockPostRepo) List(ctx context.Context) ([]*model.Post, error) {
	return m.listFunc(ctx)
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return m.findBySlugFunc(ctx, slug)
}

func (m *mockPostRepo) ListByTag(ctx context.Context, tag string) ([]*model.Post, error) {
	return m.listByTagFunc(ctx, tag)
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	return m.createFunc(ctx, post)
}

func (m *mockPostRepo) Update(ctx context.Context, post *model.Post) error {
	return m.updateFunc(ctx, post)
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

// mockSettingsRepo はSettingsRepositoryのモック実装
type mockSettingsRepo struct {
	getFunc   func(ctx context.Context) (*model.SiteSettings, error)
	mergeFunc func(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error)
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*model.SiteSettings, error) {
	return m.getFunc(ctx)
}

func (m *mockSettingsRepo) Merge(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error) {
	return m.mergeFunc(ctx, patch)
}

// passthroughSanitizer はサニタイズを行わないテスト用実装
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(rawHTML string) string { return rawHTML }

// scriptStrippingSanitizer はscriptタグを丸ごと除去するテスト用実装
type scriptStrippingSanitizer struct{}

func (scriptStrippingSanitizer) Sanitize(rawHTML string) string {
	for {
		start := strings.Index(rawHTML, "<script>")
		if start < 0 {
			return rawHTML
		}
		end := strings.Index(rawHTML, "</script>")
		if end < 0 {
			return rawHTML[:start]
		}
		rawHTML = rawHTML[:start] + rawHTML[end+len("</script>"):]
	}
}

func testPosts() []*model.Post {
	d1 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return []*model.Post{
		{
			ID:      "id-2",
			Slug:    "go-routines",
			Title:   "Go Routines",
			Date:    d1,
			Excerpt: "Concurrency in Go",
			Content: "Goroutines are lightweight threads",
			Tags:    []string{"go", "concurrency"},
		},
		{
			ID:      "id-1",
			Slug:    "travel-notes",
			Title:   "Travel Notes",
			Date:    d2,
			Excerpt: "A trip to Kyoto",
			Content: "We visited temples and ate ramen",
			Tags:    []string{"travel", "food"},
		},
	}
}

// 記事一覧の取得を検証
func TestService_ListPosts(t *testing.T) {
	repo := &mockPostRepo{
		listFunc: func(ctx context.Context) ([]*model.Post, error) {
			return testPosts(), nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	posts, err := svc.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	if posts[0].Slug != "go-routines" {
		t.Errorf("posts[0].Slug = %q, want newest first", posts[0].Slug)
	}
}

// ストア障害時のエラー分類を検証
func TestService_ListPosts_StoreError(t *testing.T) {
	repo := &mockPostRepo{
		listFunc: func(ctx context.Context) ([]*model.Post, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	_, err := svc.ListPosts(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Kind != model.KindUnavailable {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, model.KindUnavailable)
	}
}

// slugによる取得と未検出時の(nil, nil)を検証
func TestService_GetPostBySlug(t *testing.T) {
	repo := &mockPostRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Post, error) {
			if slug == "go-routines" {
				return testPosts()[0], nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	post, err := svc.GetPostBySlug(context.Background(), "go-routines")
	if err != nil {
		t.Fatalf("GetPostBySlug() error = %v", err)
	}
	if post == nil || post.Title != "Go Routines" {
		t.Errorf("post = %+v, want Go Routines", post)
	}

	missing, err := svc.GetPostBySlug(context.Background(), "no-such-post")
	if err != nil {
		t.Fatalf("GetPostBySlug(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("missing post = %+v, want nil", missing)
	}
}

// タグ検索の小文字正規化を検証
func TestService_GetPostsByTag_CaseInsensitive(t *testing.T) {
	var gotTag string
	repo := &mockPostRepo{
		listByTagFunc: func(ctx context.Context, tag string) ([]*model.Post, error) {
			gotTag = tag
			return []*model.Post{testPosts()[1]}, nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	posts, err := svc.GetPostsByTag(context.Background(), "TRAVEL")
	if err != nil {
		t.Fatalf("GetPostsByTag() error = %v", err)
	}
	if gotTag != "travel" {
		t.Errorf("repo received tag %q, want lowercased %q", gotTag, "travel")
	}
	if len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
}

// 空タグで空結果を返すことを検証
func TestService_GetPostsByTag_Blank(t *testing.T) {
	svc := NewService(&mockPostRepo{}, &mockSettingsRepo{}, passthroughSanitizer{})

	posts, err := svc.GetPostsByTag(context.Background(), "   ")
	if err != nil {
		t.Fatalf("GetPostsByTag() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("len(posts) = %d, want 0", len(posts))
	}
}

// 部分一致検索を検証
func TestService_SearchPosts(t *testing.T) {
	repo := &mockPostRepo{
		listFunc: func(ctx context.Context) ([]*model.Post, error) {
			return testPosts(), nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	tests := []struct {
		name      string
		query     string
		wantSlugs []string
	}{
		{"title match case-insensitive", "GO ROUT", []string{"go-routines"}},
		{"content match", "ramen", []string{"travel-notes"}},
		{"excerpt match", "Kyoto", []string{"travel-notes"}},
		{"no match", "quantum", []string{}},
		{"blank query returns empty", "   ", []string{}},
		{"empty query returns empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := svc.SearchPosts(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("SearchPosts(%q) error = %v", tt.query, err)
			}
			if len(posts) != len(tt.wantSlugs) {
				t.Fatalf("len(posts) = %d, want %d", len(posts), len(tt.wantSlugs))
			}
			for i, slug := range tt.wantSlugs {
				if posts[i].Slug != slug {
					t.Errorf("posts[%d].Slug = %q, want %q", i, posts[i].Slug, slug)
				}
			}
		})
	}
}

// タグ和集合の重複排除と初出順を検証
func TestService_ListTags(t *testing.T) {
	posts := testPosts()
	posts[1].Tags = []string{"go", "food"}
	repo := &mockPostRepo{
		listFunc: func(ctx context.Context) ([]*model.Post, error) {
			return posts, nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	tags, err := svc.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}

	want := []string{"go", "concurrency", "food"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

// 記事作成のフィールド導出を検証
func TestService_CreatePost(t *testing.T) {
	var created *model.Post
	repo := &mockPostRepo{
		createFunc: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	draft := &model.PostDraft{
		Title:   "My First Post!",
		Author:  "Vibha",
		Content: strings.Repeat("x", 200),
		Tags:    []string{"Travel", " FOOD "},
	}

	post, err := svc.CreatePost(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if created == nil {
		t.Fatal("repo.Create was not called")
	}

	if post.Slug != "my-first-post" {
		t.Errorf("Slug = %q, want %q", post.Slug, "my-first-post")
	}
	if post.ID == "" {
		t.Error("ID should be generated")
	}
	wantExcerpt := strings.Repeat("x", 150) + "..."
	if post.Excerpt != wantExcerpt {
		t.Errorf("Excerpt length = %d, want %d", len(post.Excerpt), len(wantExcerpt))
	}
	if post.CoverImage != "https://picsum.photos/seed/my-first-post/1080/720" {
		t.Errorf("CoverImage = %q", post.CoverImage)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "travel" || post.Tags[1] != "food" {
		t.Errorf("Tags = %v, want [travel food]", post.Tags)
	}
	if post.Date.IsZero() {
		t.Error("Date should default to now")
	}
}

// 明示指定されたフィールドが導出で上書きされないことを検証
func TestService_CreatePost_ExplicitFields(t *testing.T) {
	repo := &mockPostRepo{
		createFunc: func(ctx context.Context, post *model.Post) error { return nil },
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	draft := &model.PostDraft{
		Title:      "Custom Post",
		Content:    "body",
		Excerpt:    "handwritten excerpt",
		CoverImage: "https://example.com/cover.jpg",
		Date:       &date,
	}

	post, err := svc.CreatePost(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if post.Excerpt != "handwritten excerpt" {
		t.Errorf("Excerpt = %q, should not be synthesized", post.Excerpt)
	}
	if post.CoverImage != "https://example.com/cover.jpg" {
		t.Errorf("CoverImage = %q, should keep explicit value", post.CoverImage)
	}
	if !post.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", post.Date, date)
	}
}

// 合成される要約がサニタイズ済み本文から作られることを検証
func TestService_CreatePost_ExcerptFromSanitizedContent(t *testing.T) {
	var created *model.Post
	repo := &mockPostRepo{
		createFunc: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, scriptStrippingSanitizer{})

	draft := &model.PostDraft{
		Title:   "Sanitized Excerpt",
		Content: "<script>alert('xss')</script>hello world",
	}

	if _, err := svc.CreatePost(context.Background(), draft); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if created.Content != "hello world" {
		t.Errorf("Content = %q, want %q", created.Content, "hello world")
	}
	if created.Excerpt != "hello world..." {
		t.Errorf("Excerpt = %q, want %q", created.Excerpt, "hello world...")
	}
	if strings.Contains(created.Excerpt, "<script>") {
		t.Error("Excerpt must not carry markup the sanitizer strips from content")
	}
}

// 明示指定された要約もサニタイズされることを検証
func TestService_CreatePost_SuppliedExcerptSanitized(t *testing.T) {
	var created *model.Post
	repo := &mockPostRepo{
		createFunc: func(ctx context.Context, post *model.Post) error {
			created = post
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, scriptStrippingSanitizer{})

	draft := &model.PostDraft{
		Title:   "Handwritten Excerpt",
		Content: "body",
		Excerpt: "<script>alert('xss')</script>short summary",
	}

	if _, err := svc.CreatePost(context.Background(), draft); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if created.Excerpt != "short summary" {
		t.Errorf("Excerpt = %q, want %q", created.Excerpt, "short summary")
	}
}

// 更新時の要約パッチがサニタイズされることを検証
func TestService_UpdatePost_ExcerptSanitized(t *testing.T) {
	existing := testPosts()[0]
	var updated *model.Post
	repo := &mockPostRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return existing, nil
		},
		updateFunc: func(ctx context.Context, post *model.Post) error {
			updated = post
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, scriptStrippingSanitizer{})

	excerpt := "<script>alert('xss')</script>patched summary"
	if _, err := svc.UpdatePost(context.Background(), "id-2", &model.PostPatch{Excerpt: &excerpt}); err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if updated.Excerpt != "patched summary" {
		t.Errorf("Excerpt = %q, want %q", updated.Excerpt, "patched summary")
	}
}

// 作成時のバリデーションを検証
func TestService_CreatePost_Validation(t *testing.T) {
	svc := NewService(&mockPostRepo{}, &mockSettingsRepo{}, passthroughSanitizer{})

	tests := []struct {
		name  string
		draft *model.PostDraft
	}{
		{"empty title", &model.PostDraft{Title: "", Content: "body"}},
		{"blank title", &model.PostDraft{Title: "   ", Content: "body"}},
		{"empty content", &model.PostDraft{Title: "Title", Content: ""}},
		{"unsluggable title", &model.PostDraft{Title: "!!!", Content: "body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), tt.draft)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Kind != model.KindValidation {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, model.KindValidation)
			}
		})
	}
}

// 部分更新がslugを維持することを検証
func TestService_UpdatePost_SlugStable(t *testing.T) {
	existing := testPosts()[0]
	var updated *model.Post
	repo := &mockPostRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return existing, nil
		},
		updateFunc: func(ctx context.Context, post *model.Post) error {
			updated = post
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	newTitle := "A Completely Different Title"
	post, err := svc.UpdatePost(context.Background(), "id-2", &model.PostPatch{Title: &newTitle})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if post.Slug != "go-routines" {
		t.Errorf("Slug = %q, must not be regenerated on title change", post.Slug)
	}
	if updated.Title != newTitle {
		t.Errorf("Title = %q, want %q", updated.Title, newTitle)
	}
	if updated.Content != existing.Content {
		t.Errorf("Content changed without patch field")
	}
}

// 未指定フィールドが維持されることを検証
func TestService_UpdatePost_PartialPatch(t *testing.T) {
	existing := testPosts()[1]
	repo := &mockPostRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return existing, nil
		},
		updateFunc: func(ctx context.Context, post *model.Post) error { return nil },
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	post, err := svc.UpdatePost(context.Background(), "id-1", &model.PostPatch{
		Tags: []string{"Kyoto", "japan"},
	})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if post.Title != "Travel Notes" {
		t.Errorf("Title = %q, should be unchanged", post.Title)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "kyoto" {
		t.Errorf("Tags = %v, want normalized [kyoto japan]", post.Tags)
	}
}

// 存在しない記事の更新で(nil, nil)を返すことを検証
func TestService_UpdatePost_NotFound(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	title := "x"
	post, err := svc.UpdatePost(context.Background(), "missing", &model.PostPatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if post != nil {
		t.Errorf("post = %+v, want nil", post)
	}
}

// 記事削除を検証
func TestService_DeletePost(t *testing.T) {
	var deletedID string
	repo := &mockPostRepo{
		deleteFunc: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(repo, &mockSettingsRepo{}, passthroughSanitizer{})

	if err := svc.DeletePost(context.Background(), "id-1"); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if deletedID != "id-1" {
		t.Errorf("deleted id = %q, want %q", deletedID, "id-1")
	}
}

// 設定のマージ書き込みがパッチのみをリポジトリへ渡すことを検証
func TestService_SaveSettings_Merge(t *testing.T) {
	var gotPatch *model.SettingsPatch
	settingsRepo := &mockSettingsRepo{
		mergeFunc: func(ctx context.Context, patch *model.SettingsPatch) (*model.SiteSettings, error) {
			gotPatch = patch
			return &model.SiteSettings{
				ID:   model.SettingsID,
				Name: "VT blogs",
				Bio:  "updated bio",
			}, nil
		},
	}
	svc := NewService(&mockPostRepo{}, settingsRepo, passthroughSanitizer{})

	bio := "updated bio"
	settings, err := svc.SaveSettings(context.Background(), &model.SettingsPatch{Bio: &bio})
	if err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if gotPatch.Name != nil {
		t.Error("Name should stay nil in patch")
	}
	if gotPatch.Bio == nil || *gotPatch.Bio != "updated bio" {
		t.Errorf("Bio patch = %v, want updated bio", gotPatch.Bio)
	}
	if settings.Name != "VT blogs" {
		t.Errorf("settings.Name = %q, unpatched fields must survive merge", settings.Name)
	}
}

// 設定取得を検証
func TestService_GetSettings(t *testing.T) {
	settingsRepo := &mockSettingsRepo{
		getFunc: func(ctx context.Context) (*model.SiteSettings, error) {
			return &model.SiteSettings{ID: model.SettingsID, Name: "VT blogs"}, nil
		},
	}
	svc := NewService(&mockPostRepo{}, settingsRepo, passthroughSanitizer{})

	settings, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings.ID != model.SettingsID {
		t.Errorf("ID = %q, want %q", settings.ID, model.SettingsID)
	}
}
