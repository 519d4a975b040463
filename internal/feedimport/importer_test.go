package feedimport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vibha/vtblogs/internal/model"
)

// mockPostWriter はPostWriterのモック実装
type mockPostWriter struct {
	createFunc     func(ctx context.Context, draft *model.PostDraft) (*model.Post, error)
	findBySlugFunc func(ctx context.Context, slug string) (*model.Post, error)
}

func (m *mockPostWriter) CreatePost(ctx context.Context, draft *model.PostDraft) (*model.Post, error) {
	return m.createFunc(ctx, draft)
}

func (m *mockPostWriter) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	if m.findBySlugFunc != nil {
		return m.findBySlugFunc(ctx, slug)
	}
	return nil, nil
}

// mockSSRFValidator は検証を通過させ、素のHTTPクライアントを返すモック
type mockSSRFValidator struct {
	validateErr error
}

func (m *mockSSRFValidator) ValidateURL(rawURL string) error {
	return m.validateErr
}

func (m *mockSSRFValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func testSlugify(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Old Blog</title>
    <item>
      <title>First Post</title>
      <description>&lt;p&gt;A short &lt;strong&gt;summary&lt;/strong&gt;&lt;/p&gt;</description>
      <content:encoded xmlns:content="http://purl.org/rss/1.0/modules/content/">&lt;p&gt;Full body&lt;/p&gt;</content:encoded>
      <category>travel</category>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>Second Post</title>
      <description>Another body</description>
    </item>
    <item>
      <title></title>
      <description>no title</description>
    </item>
  </channel>
</rss>`

func newImporter(writer *mockPostWriter, guard *mockSSRFValidator, maxPosts int) *Importer {
	return NewImporter(writer, guard, testSlugify, testLogger(), 5*time.Second, 1<<20, maxPosts)
}

// フィードからの取り込みを検証
func TestImporter_Import(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	var drafts []*model.PostDraft
	writer := &mockPostWriter{
		createFunc: func(ctx context.Context, draft *model.PostDraft) (*model.Post, error) {
			drafts = append(drafts, draft)
			return &model.Post{Slug: testSlugify(draft.Title)}, nil
		},
	}

	importer := newImporter(writer, &mockSSRFValidator{}, 50)

	result, err := importer.Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (empty title)", result.Skipped)
	}

	first := drafts[0]
	if first.Title != "First Post" {
		t.Errorf("Title = %q", first.Title)
	}
	if !strings.Contains(first.Content, "Full body") {
		t.Errorf("Content = %q, want content:encoded body", first.Content)
	}
	if strings.Contains(first.Excerpt, "<") {
		t.Errorf("Excerpt = %q, want tags stripped", first.Excerpt)
	}
	if len(first.Tags) != 1 || first.Tags[0] != "travel" {
		t.Errorf("Tags = %v, want [travel]", first.Tags)
	}
	if first.Date == nil {
		t.Error("Date should be taken from pubDate")
	}
}

// 既存slugとの重複見送りを検証
func TestImporter_Import_SkipsDuplicates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	writer := &mockPostWriter{
		createFunc: func(ctx context.Context, draft *model.PostDraft) (*model.Post, error) {
			return &model.Post{}, nil
		},
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Post, error) {
			if slug == "first-post" {
				return &model.Post{Slug: slug}, nil
			}
			return nil, nil
		},
	}

	importer := newImporter(writer, &mockSSRFValidator{}, 50)

	result, err := importer.Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if result.Imported != 1 {
		t.Errorf("Imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 (duplicate + empty title)", result.Skipped)
	}
}

// 取り込み上限を検証
func TestImporter_Import_MaxPosts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer ts.Close()

	var created int
	writer := &mockPostWriter{
		createFunc: func(ctx context.Context, draft *model.PostDraft) (*model.Post, error) {
			created++
			return &model.Post{}, nil
		},
	}

	importer := newImporter(writer, &mockSSRFValidator{}, 1)

	result, err := importer.Import(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2 beyond limit", result.Skipped)
	}
}

// SSRF検証に失敗したURLの拒否を検証
func TestImporter_Import_RejectsUnsafeURL(t *testing.T) {
	importer := newImporter(
		&mockPostWriter{},
		&mockSSRFValidator{validateErr: errors.New("blocked IP")},
		50,
	)

	_, err := importer.Import(context.Background(), "http://169.254.169.254/feed")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidURL {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidURL)
	}
}

// パースできないフィードの失敗を検証
func TestImporter_Import_UnparseableFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a feed</html>"))
	}))
	defer ts.Close()

	importer := newImporter(&mockPostWriter{}, &mockSSRFValidator{}, 50)

	_, err := importer.Import(context.Background(), ts.URL)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeImportFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeImportFailed)
	}
}

// HTMLからのテキスト抽出を検証
func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		max      int
		want     string
	}{
		{"plain tags", "<p>Hello <strong>world</strong></p>", 150, "Hello world"},
		{"script dropped", "<p>ok</p><script>alert(1)</script>", 150, "ok"},
		{"clipped", "<p>abcdefghij</p>", 5, "abcde"},
		{"empty", "", 150, ""},
		{"plain text passthrough", "no markup here", 150, "no markup here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.fragment, tt.max); got != tt.want {
				t.Errorf("ExtractText(%q) = %q, want %q", tt.fragment, got, tt.want)
			}
		})
	}
}
