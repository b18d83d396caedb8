// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import "time"

// DefaultProjectColor はTUI表示用のデフォルトアクセントカラーです。
const DefaultProjectColor = "#61afef"

// Project はプロジェクトエンティティを表すモデルです。
type Project struct {
	Name        string    `json:"name"`        // プロジェクト名（一意）
	Description string    `json:"description"` // プロジェクトの説明
	Color       string    `json:"color"`       // TUI表示用のアクセントカラー
	CreatedAt   time.Time `json:"created_at"`  // 作成日時
	UpdatedAt   time.Time `json:"updated_at"`  // 更新日時
}

// NewProject は新しいProjectインスタンスを作成します。
func NewProject(name, description string) (*Project, error) {
	now := time.Now()
	p := &Project{
		Name:        name,
		Description: description,
		Color:       DefaultProjectColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProject は既存のProjectインスタンスを作成します。
func LoadProject(name, description, color string, createdAt, updatedAt time.Time) (*Project, error) {
	if color == "" {
		color = DefaultProjectColor
	}
	p := &Project{
		Name:        name,
		Description: description,
		Color:       color,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate はプロジェクトのデータバリデーションを行います。
func (p *Project) Validate() error {
	if p.Name == "" {
		return NewValidationError("name is required")
	}
	if p.CreatedAt.IsZero() {
		return NewValidationError("created_at is required")
	}
	if p.UpdatedAt.IsZero() {
		return NewValidationError("updated_at is required")
	}
	return nil
}

// ProjectStats はプロジェクトのタスク集計を表します。
type ProjectStats struct {
	TotalTasks      int     `json:"total_tasks"`
	DoneTasks       int     `json:"done_tasks"`
	InProgressTasks int     `json:"in_progress_tasks"`
	TodoTasks       int     `json:"todo_tasks"`
	TotalPoints     int     `json:"total_points"`
	DonePoints      int     `json:"done_points"`
	CompletionPct   float64 `json:"completion_pct"`
}

// ComputeStats はタスク一覧からプロジェクトの集計を算出します。
// ポイント合計が0の場合、完了率は0になります。
func ComputeStats(tasks []*Task) ProjectStats {
	var s ProjectStats
	s.TotalTasks = len(tasks)
	for _, t := range tasks {
		s.TotalPoints += t.StoryPoints
		switch t.Status {
		case StatusDone:
			s.DoneTasks++
			s.DonePoints += t.StoryPoints
		case StatusInProgress:
			s.InProgressTasks++
		}
	}
	s.TodoTasks = s.TotalTasks - s.DoneTasks - s.InProgressTasks
	if s.TotalPoints > 0 {
		s.CompletionPct = float64(s.DonePoints) / float64(s.TotalPoints) * 100
	}
	return s
}
