// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Task は単一のタスクを表すモデルです。
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Project     string     `json:"project"`      // 所属プロジェクト名
	Title       string     `json:"title"`        // タスクのタイトル
	Description string     `json:"description"`  // タスクの説明
	StoryPoints int        `json:"story_points"` // ストーリーポイント
	Status      Status     `json:"status"`       // タスクの状態
	Tags        []string   `json:"tags"`         // タグ一覧
	Position    int        `json:"position"`     // プロジェクト内での手動並び順
	CreatedAt   time.Time  `json:"created_at"`   // 作成日時
	UpdatedAt   time.Time  `json:"updated_at"`   // 更新日時
	CompletedAt *time.Time `json:"completed_at"` // 完了日時（未完了の場合はnil）
}

// NewTask は新しいTaskインスタンスを作成します。
// IDはここで採番され、以後変更されません。
func NewTask(project, title string, storyPoints int) (*Task, error) {
	now := time.Now()
	t := &Task{
		ID:          uuid.New(),
		Project:     project,
		Title:       title,
		StoryPoints: storyPoints,
		Status:      StatusTodo,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTask は既存のTaskインスタンスを作成します。
func LoadTask(id uuid.UUID, project, title, description string, storyPoints int, status Status, tags []string, position int, createdAt, updatedAt time.Time, completedAt *time.Time) (*Task, error) {
	if id == uuid.Nil {
		return nil, NewValidationError("id is required for loaded task")
	}
	if tags == nil {
		tags = []string{}
	}
	t := &Task{
		ID:          id,
		Project:     project,
		Title:       title,
		Description: description,
		StoryPoints: storyPoints,
		Status:      status,
		Tags:        tags,
		Position:    position,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		CompletedAt: completedAt,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate はタスクのデータバリデーションを行います。
func (t *Task) Validate() error {
	if t.Project == "" {
		return NewValidationError("project is required")
	}
	if t.Title == "" {
		return NewValidationError("title is required")
	}
	if t.StoryPoints < 0 {
		return NewValidationError("story points cannot be negative")
	}
	if !t.Status.Valid() {
		return NewValidationError("invalid status: " + string(t.Status))
	}
	if t.CreatedAt.IsZero() {
		return NewValidationError("created_at is required")
	}
	for _, tag := range t.Tags {
		if tag == "" {
			return NewValidationError("tag cannot be empty")
		}
	}
	return nil
}

// Priority はストーリーポイントから導出される優先度を返します。
func (t *Task) Priority() Priority {
	return PriorityFromStoryPoints(t.StoryPoints)
}

// IsComplete はタスクが完了済みかどうかを返します。
func (t *Task) IsComplete() bool {
	return t.Status == StatusDone
}

// ToggleStatus はTodoとDoneの間で状態を直接切り替えます。
func (t *Task) ToggleStatus() {
	t.Status = t.Status.Toggle()
	t.touchCompletion()
}

// CycleStatus は状態をTodo→InProgress→Done→Todoの順に進めます。
func (t *Task) CycleStatus() {
	t.Status = t.Status.Cycle()
	t.touchCompletion()
}

// touchCompletion は状態変更に合わせて完了日時と更新日時を更新します。
func (t *Task) touchCompletion() {
	now := time.Now()
	if t.Status == StatusDone {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
}

// SortTasks はタスク一覧を表示順に並べ替えます。
// 未完了を先頭に、次にストーリーポイントの降順、
// 以降は手動並び順と作成日時で安定させます。
func SortTasks(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.IsComplete() != b.IsComplete() {
			return !a.IsComplete()
		}
		if a.StoryPoints != b.StoryPoints {
			return a.StoryPoints > b.StoryPoints
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
