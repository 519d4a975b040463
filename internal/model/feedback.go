package model

import "time"

// FeedbackType はフィードバックの種別を表す。
type FeedbackType string

const (
	// FeedbackTypeBug はバグ報告。
	FeedbackTypeBug FeedbackType = "bug"
	// FeedbackTypeFeature は機能要望。
	FeedbackTypeFeature FeedbackType = "feature"
)

// ValidFeedbackType は既知のフィードバック種別かどうかを返す。
func ValidFeedbackType(t FeedbackType) bool {
	return t == FeedbackTypeBug || t == FeedbackTypeFeature
}

// FeedbackStatus はフィードバックの対応状況を表す。
// New → In Progress → Completed と進むことを想定するが、逆方向の遷移は禁止しない。
type FeedbackStatus string

const (
	// FeedbackStatusNew は未対応。公開投稿時の初期値。
	FeedbackStatusNew FeedbackStatus = "New"
	// FeedbackStatusInProgress は対応中。
	FeedbackStatusInProgress FeedbackStatus = "In Progress"
	// FeedbackStatusCompleted は対応完了。
	FeedbackStatusCompleted FeedbackStatus = "Completed"
)

// ValidFeedbackStatus は既知のステータスかどうかを返す。
func ValidFeedbackStatus(s FeedbackStatus) bool {
	switch s {
	case FeedbackStatusNew, FeedbackStatusInProgress, FeedbackStatusCompleted:
		return true
	}
	return false
}

// Feedback はバグ報告・機能要望の1件を表す。
// 公開投稿で作成され、管理者のみがstatus/comment/screenshotを変更できる。
// CreatedAtは作成後不変。
type Feedback struct {
	ID            string
	Description   string
	Type          FeedbackType
	Status        FeedbackStatus
	Comment       string // 管理者専用の自由記述
	ScreenshotURL string // URLまたはdata URI。省略可
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FeedbackPatch は管理者によるフィードバックの部分更新を表す。
// nilフィールドは変更しない。
type FeedbackPatch struct {
	Status        *FeedbackStatus
	Comment       *string
	ScreenshotURL *string
}
