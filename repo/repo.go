// Package repo は、ドメイン操作をストア呼び出しに変換するリポジトリ層を提供します。
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stsysd/tudu/model"
	"github.com/stsysd/tudu/store"
)

// Repo はプロジェクトとタスクに対するドメイン操作を提供します。
// 起動時に一度だけ構築され、CLIとTUIの両方から参照で渡されます。
type Repo struct {
	store store.Store
}

// New は新しいRepoインスタンスを作成します。
func New(s store.Store) *Repo {
	return &Repo{store: s}
}

// AddProject は新しいプロジェクトを作成します。
func (r *Repo) AddProject(ctx context.Context, name, description string) (*model.Project, error) {
	project, err := model.NewProject(name, description)
	if err != nil {
		return nil, err
	}
	if err := r.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject は指定された名前のプロジェクトを取得します。
func (r *Repo) GetProject(ctx context.Context, name string) (*model.Project, error) {
	return r.store.GetProject(ctx, name)
}

// GetOrCreateProject は指定された名前のプロジェクトを取得し、
// 存在しない場合は新規に作成します。
func (r *Repo) GetOrCreateProject(ctx context.Context, name string) (*model.Project, error) {
	project, err := r.store.GetProject(ctx, name)
	if err == nil {
		return project, nil
	}
	return r.AddProject(ctx, name, "")
}

// ListProjects はすべてのプロジェクトを取得します。
func (r *Repo) ListProjects(ctx context.Context) ([]*model.Project, error) {
	return r.store.ListProjects(ctx)
}

// RenameProject はプロジェクト名を変更します。所属タスクの参照も更新されます。
func (r *Repo) RenameProject(ctx context.Context, oldName, newName string) error {
	return r.store.RenameProject(ctx, oldName, newName)
}

// DeleteProject はプロジェクトと所属するすべてのタスクを削除します。
func (r *Repo) DeleteProject(ctx context.Context, name string) error {
	return r.store.DeleteProject(ctx, name)
}

// Stats は指定されたプロジェクトのタスク集計を返します。
func (r *Repo) Stats(ctx context.Context, name string) (model.ProjectStats, error) {
	tasks, err := r.store.ListTasks(ctx, name)
	if err != nil {
		return model.ProjectStats{}, err
	}
	return model.ComputeStats(tasks), nil
}

// AddTask は新しいタスクをプロジェクトに追加します。
// 参照先のプロジェクトが存在しない場合はmodel.ErrProjectNotFoundを返します。
func (r *Repo) AddTask(ctx context.Context, project, title string, storyPoints int, description string, tags []string) (*model.Task, error) {
	task, err := model.NewTask(project, title, storyPoints)
	if err != nil {
		return nil, err
	}
	task.Description = description
	if tags != nil {
		task.Tags = tags
	}

	// プロジェクト内の末尾に配置
	position, err := r.store.NextPosition(ctx, project)
	if err != nil {
		return nil, err
	}
	task.Position = position

	if err := r.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask は指定されたIDのタスクを取得します。
func (r *Repo) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return r.store.GetTask(ctx, id)
}

// EditTask はタスクの内容を更新します。
func (r *Repo) EditTask(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now()
	return r.store.UpdateTask(ctx, task)
}

// CycleTask はタスクの状態をTodo→InProgress→Done→Todoの順に進めます。
func (r *Repo) CycleTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.CycleStatus()
	if err := r.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ToggleTask はタスクの完了状態を直接切り替えます。
func (r *Repo) ToggleTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.ToggleStatus()
	if err := r.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MoveTask はタスクを別のプロジェクトに移動します。
func (r *Repo) MoveTask(ctx context.Context, id uuid.UUID, newProject string) (*model.Task, error) {
	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	position, err := r.store.NextPosition(ctx, newProject)
	if err != nil {
		return nil, err
	}
	task.Project = newProject
	task.Position = position
	task.UpdatedAt = time.Now()

	if err := r.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask は指定されたIDのタスクを削除します。
func (r *Repo) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return r.store.DeleteTask(ctx, id)
}

// ListTasks は指定されたプロジェクトのタスクを表示順で取得します。
// 未完了のタスクが先頭に、次にストーリーポイントの降順で並びます。
func (r *Repo) ListTasks(ctx context.Context, project string) ([]*model.Task, error) {
	tasks, err := r.store.ListTasks(ctx, project)
	if err != nil {
		return nil, err
	}
	model.SortTasks(tasks)
	return tasks, nil
}

// ListAllTasks はすべてのタスクを表示順で取得します。
func (r *Repo) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	tasks, err := r.store.ListAllTasks(ctx)
	if err != nil {
		return nil, err
	}
	model.SortTasks(tasks)
	return tasks, nil
}

// FindTasksByTitle はタイトルに部分一致するタスクを検索します。
// 照合は大文字小文字を区別しません。
func (r *Repo) FindTasksByTitle(ctx context.Context, query string) ([]*model.Task, error) {
	tasks, err := r.store.ListAllTasks(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var matches []*model.Task
	for _, task := range tasks {
		if strings.Contains(strings.ToLower(task.Title), q) {
			matches = append(matches, task)
		}
	}
	return matches, nil
}
