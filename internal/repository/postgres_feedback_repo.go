package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibha/vtblogs/internal/model"
)

const feedbackColumns = `id, description, type, status, comment, screenshot_url,
	        created_at, updated_at`

// PostgresFeedbackRepo はPostgreSQLを使用したフィードバックリポジトリ。
type PostgresFeedbackRepo struct {
	db *sql.DB
}

// NewPostgresFeedbackRepo はPostgresFeedbackRepoを生成する。
func NewPostgresFeedbackRepo(db *sql.DB) *PostgresFeedbackRepo {
	return &PostgresFeedbackRepo{db: db}
}

func scanFeedback(row interface {
	Scan(dest ...interface{}) error
}) (*model.Feedback, error) {
	fb := &model.Feedback{}
	var screenshot sql.NullString

	err := row.Scan(
		&fb.ID, &fb.Description, &fb.Type, &fb.Status, &fb.Comment,
		&screenshot, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if screenshot.Valid {
		fb.ScreenshotURL = screenshot.String
	}
	return fb, nil
}

// List は全フィードバックをcreated_at降順で取得する。
func (r *PostgresFeedbackRepo) List(ctx context.Context) ([]*model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feedbackColumns+`
		 FROM feedback
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("フィードバック一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	list := []*model.Feedback{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("フィードバックの読み取りに失敗しました: %w", err)
		}
		list = append(list, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フィードバック一覧の走査に失敗しました: %w", err)
	}

	return list, nil
}

// FindByID は指定IDのフィードバックを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedbackRepo) FindByID(ctx context.Context, id string) (*model.Feedback, error) {
	fb, err := scanFeedback(r.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードバックの取得に失敗しました: %w", err)
	}
	return fb, nil
}

// Create はフィードバックを作成する。created_atは以後変更されない。
func (r *PostgresFeedbackRepo) Create(ctx context.Context, fb *model.Feedback) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (id, description, type, status, comment, screenshot_url,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fb.ID, fb.Description, fb.Type, fb.Status, fb.Comment,
		nullString(fb.ScreenshotURL), fb.CreatedAt, fb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フィードバックの作成に失敗しました: %w", err)
	}
	return nil
}

// Patch はstatus/comment/screenshot_urlの部分更新を行い、更新後のレコードを返す。
// nilフィールドは既存値を維持する。対象が存在しない場合はnilを返す。
func (r *PostgresFeedbackRepo) Patch(ctx context.Context, id string, patch *model.FeedbackPatch) (*model.Feedback, error) {
	fb, err := scanFeedback(r.db.QueryRowContext(ctx,
		`UPDATE feedback SET
		    status = COALESCE($2, status),
		    comment = COALESCE($3, comment),
		    screenshot_url = COALESCE($4, screenshot_url),
		    updated_at = now()
		 WHERE id = $1
		 RETURNING `+feedbackColumns,
		id, patch.Status, patch.Comment, patch.ScreenshotURL,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードバックの更新に失敗しました: %w", err)
	}
	return fb, nil
}

// Delete は指定IDのフィードバックを物理削除する。
func (r *PostgresFeedbackRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM feedback WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("フィードバックの削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// compile-time interface check
var _ FeedbackRepository = (*PostgresFeedbackRepo)(nil)
