package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/vibha/vtblogs/internal/model"
)

// postColumns は記事SELECTの共通カラムリスト。
const postColumns = `id, slug, title, author, date, cover_image, cover_image_hint,
	        excerpt, content, tags, created_at, updated_at`

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// scanPost は1行を*model.Postへ読み取る。
func scanPost(row interface {
	Scan(dest ...interface{}) error
}) (*model.Post, error) {
	post := &model.Post{}
	var tags pq.StringArray

	err := row.Scan(
		&post.ID, &post.Slug, &post.Title, &post.Author, &post.Date,
		&post.CoverImage, &post.CoverImageHint,
		&post.Excerpt, &post.Content, &tags,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Tags = []string(tags)
	return post, nil
}

// List は全記事をdate降順（同値はid降順）で取得する。
func (r *PostgresPostRepo) List(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM blogs
		 ORDER BY date DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("記事の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return post, nil
}

// FindBySlug はslugの等価フィルタで記事を検索する。見つからない場合はnilを返す。
// 重複slugの場合はid昇順の先頭1件を返す。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blogs WHERE slug = $1 ORDER BY id ASC LIMIT 1`,
		slug,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("slugによる記事の検索に失敗しました: %w", err)
	}
	return post, nil
}

// ListByTag はtags配列に指定タグを含む記事をdate降順で取得する。
func (r *PostgresPostRepo) ListByTag(ctx context.Context, tag string) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM blogs
		 WHERE $1 = ANY(tags)
		 ORDER BY date DESC, id DESC`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("タグによる記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("記事の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ別記事一覧の走査に失敗しました: %w", err)
	}

	return posts, nil
}

// Create は記事を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blogs (id, slug, title, author, date, cover_image, cover_image_hint,
		                    excerpt, content, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		post.ID, post.Slug, post.Title, post.Author, post.Date,
		post.CoverImage, post.CoverImageHint,
		post.Excerpt, post.Content, pq.Array(post.Tags),
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は記事の可変フィールドを上書きする。id、slug、created_atは変更しない。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE blogs SET
		    title = $2, author = $3, date = $4,
		    cover_image = $5, cover_image_hint = $6,
		    excerpt = $7, content = $8, tags = $9,
		    updated_at = $10
		 WHERE id = $1`,
		post.ID, post.Title, post.Author, post.Date,
		post.CoverImage, post.CoverImageHint,
		post.Excerpt, post.Content, pq.Array(post.Tags),
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの記事を物理削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blogs WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
