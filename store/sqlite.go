// Package store は、データの永続化機能を提供します。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stsysd/tudu/crypt"
	"github.com/stsysd/tudu/model"
)

// TaskStore はタスクの保存と取得を行うインターフェースです。
type TaskStore interface {
	// CreateTask は新しいタスクを作成します。
	// 参照先のプロジェクトが存在しない場合はmodel.ErrProjectNotFoundを返します。
	CreateTask(ctx context.Context, task *model.Task) error
	// GetTask は指定されたIDのタスクを取得します。
	GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error)
	// UpdateTask は指定されたIDのタスクを更新します。
	UpdateTask(ctx context.Context, task *model.Task) error
	// DeleteTask は指定されたIDのタスクを削除します。
	DeleteTask(ctx context.Context, id uuid.UUID) error
	// ListTasks は指定されたプロジェクトのタスクを取得します。
	ListTasks(ctx context.Context, project string) ([]*model.Task, error)
	// ListAllTasks はすべてのタスクを取得します。
	ListAllTasks(ctx context.Context) ([]*model.Task, error)
	// NextPosition は指定されたプロジェクト内の次の並び順番号を返します。
	NextPosition(ctx context.Context, project string) (int, error)
}

// ProjectStore はプロジェクトの保存と取得を行うインターフェースです。
type ProjectStore interface {
	// CreateProject は新しいプロジェクトを作成します。
	CreateProject(ctx context.Context, project *model.Project) error
	// GetProject は指定された名前のプロジェクトを取得します（大文字小文字は区別しません）。
	GetProject(ctx context.Context, name string) (*model.Project, error)
	// UpdateProject は指定されたプロジェクトを更新します。
	UpdateProject(ctx context.Context, project *model.Project) error
	// RenameProject はプロジェクト名を変更し、所属タスクの参照も更新します。
	RenameProject(ctx context.Context, oldName, newName string) error
	// DeleteProject はプロジェクトと所属するすべてのタスクを削除します。
	DeleteProject(ctx context.Context, name string) error
	// ListProjects はすべてのプロジェクトを取得します。
	ListProjects(ctx context.Context) ([]*model.Project, error)
}

// Store はアプリケーションが必要とする永続化機能をまとめたインターフェースです。
type Store interface {
	TaskStore
	ProjectStore
	// Close はストアの接続を閉じます。
	Close() error
}

// SQLiteStore はSQLiteを使用したStoreの実装です。
// 機微なテキストフィールド（タイトル、説明、タグなど）はFernetトークンとして
// 暗号化された上でdata列に保存されます。状態やストーリーポイントは
// インデックスとソートのために平文の列として保持します。
type SQLiteStore struct {
	conn  *sql.DB
	codec *crypt.Codec
}

// NewSQLiteStore は新しいSQLiteStoreを作成します。
func NewSQLiteStore(dataDir string, codec *crypt.Codec) (*SQLiteStore, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// SQLiteデータベースファイルのパス
	dbPath := filepath.Join(dataDir, "tudu.db")

	// SQLiteデータベースへの接続
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// テーブルの初期化
	if err := initTables(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return &SQLiteStore{
		conn:  conn,
		codec: codec,
	}, nil
}

// initTables はデータベーステーブルを初期化します。
func initTables(conn *sql.DB) error {
	// 外部キー制約を有効化
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			status TEXT NOT NULL,
			story_points INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			data BLOB NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (project) REFERENCES projects(name)
				ON DELETE CASCADE ON UPDATE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	`)
	return err
}

// Close はデータベース接続を閉じます。
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// taskPayload は暗号化して保存されるタスクのフィールドです。
type taskPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	UpdatedAt   string   `json:"updated_at"`
	CompletedAt *string  `json:"completed_at,omitempty"`
}

// projectPayload は暗号化して保存されるプロジェクトのフィールドです。
type projectPayload struct {
	Description string `json:"description"`
	Color       string `json:"color"`
	UpdatedAt   string `json:"updated_at"`
}

// encryptTask はタスクの機微フィールドを暗号化します。
func (s *SQLiteStore) encryptTask(task *model.Task) ([]byte, error) {
	payload := taskPayload{
		Title:       task.Title,
		Description: task.Description,
		Tags:        task.Tags,
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339Nano),
	}
	if task.CompletedAt != nil {
		completed := task.CompletedAt.Format(time.RFC3339Nano)
		payload.CompletedAt = &completed
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return s.codec.Encrypt(raw)
}

// decryptTaskRow はデータベースの1行からタスクを復元します。
func (s *SQLiteStore) decryptTaskRow(idStr, project, status string, storyPoints, position int64, data []byte, createdAtStr string) (*model.Task, error) {
	raw, err := s.codec.Decrypt(data)
	if err != nil {
		// 改ざんまたは鍵の不一致。該当レコードの読み出しのみ失敗させる
		return nil, fmt.Errorf("task %s: %w", idStr, err)
	}

	var payload taskPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	// UUIDの解析
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in database: %w", err)
	}

	// 状態の解析
	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	// 文字列から時間に変換
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, payload.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse task updated_at: %w", err)
	}
	var completedAt *time.Time
	if payload.CompletedAt != nil {
		t, err := time.Parse(time.RFC3339Nano, *payload.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse task completed_at: %w", err)
		}
		completedAt = &t
	}

	return model.LoadTask(id, project, payload.Title, payload.Description, int(storyPoints), st, payload.Tags, int(position), createdAt, updatedAt, completedAt)
}

// CreateTask は新しいタスクをデータベースに保存します。
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	// バリデーション
	if err := task.Validate(); err != nil {
		return err
	}

	// プロジェクトの存在確認（アプリケーションレベルでの整合性チェック）
	project, err := s.GetProject(ctx, task.Project)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrProjectNotFound, task.Project)
	}
	// 大文字小文字の揺れを正規化して保存
	task.Project = project.Name

	data, err := s.encryptTask(task)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO tasks (id, project, status, story_points, position, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(),
		task.Project,
		task.Status.String(),
		task.StoryPoints,
		task.Position,
		data,
		task.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask は指定されたIDのタスクを取得します。
func (s *SQLiteStore) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, project, status, story_points, position, data, created_at
		FROM tasks WHERE id = ?`, id.String())

	var (
		idStr, project, status, createdAt string
		storyPoints, position             int64
		data                              []byte
	)
	err := row.Scan(&idStr, &project, &status, &storyPoints, &position, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return s.decryptTaskRow(idStr, project, status, storyPoints, position, data, createdAt)
}

// UpdateTask は指定されたIDのタスクを更新します。
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *model.Task) error {
	// バリデーション
	if err := task.Validate(); err != nil {
		return err
	}

	// プロジェクトの存在確認（アプリケーションレベルでの整合性チェック）
	project, err := s.GetProject(ctx, task.Project)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrProjectNotFound, task.Project)
	}
	task.Project = project.Name

	data, err := s.encryptTask(task)
	if err != nil {
		return err
	}

	result, err := s.conn.ExecContext(ctx, `
		UPDATE tasks SET project = ?, status = ?, story_points = ?, position = ?, data = ?
		WHERE id = ?`,
		task.Project,
		task.Status.String(),
		task.StoryPoints,
		task.Position,
		data,
		task.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	// 更新された行数を確認
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrTaskNotFound, task.ID)
	}
	return nil
}

// DeleteTask は指定されたIDのタスクを削除します。
func (s *SQLiteStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrTaskNotFound, id)
	}
	return nil
}

// ListTasks は指定されたプロジェクトのタスクを取得します。
func (s *SQLiteStore) ListTasks(ctx context.Context, project string) ([]*model.Task, error) {
	// プロジェクト名を正規化
	p, err := s.GetProject(ctx, project)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, project, status, story_points, position, data, created_at
		FROM tasks WHERE project = ? ORDER BY created_at`, p.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanTasks(rows)
}

// ListAllTasks はすべてのタスクを取得します。
func (s *SQLiteStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, project, status, story_points, position, data, created_at
		FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanTasks(rows)
}

// scanTasks は検索結果の各行を復号してタスク一覧に変換します。
func (s *SQLiteStore) scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task
	for rows.Next() {
		var (
			idStr, project, status, createdAt string
			storyPoints, position             int64
			data                              []byte
		)
		if err := rows.Scan(&idStr, &project, &status, &storyPoints, &position, &data, &createdAt); err != nil {
			return nil, err
		}
		task, err := s.decryptTaskRow(idStr, project, status, storyPoints, position, data, createdAt)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// NextPosition は指定されたプロジェクト内の次の並び順番号を返します。
func (s *SQLiteStore) NextPosition(ctx context.Context, project string) (int, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE project = ?`, project)
	var next int
	if err := row.Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// encryptProject はプロジェクトの機微フィールドを暗号化します。
func (s *SQLiteStore) encryptProject(project *model.Project) ([]byte, error) {
	payload := projectPayload{
		Description: project.Description,
		Color:       project.Color,
		UpdatedAt:   project.UpdatedAt.Format(time.RFC3339Nano),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project payload: %w", err)
	}
	return s.codec.Encrypt(raw)
}

// decryptProjectRow はデータベースの1行からプロジェクトを復元します。
func (s *SQLiteStore) decryptProjectRow(name string, data []byte, createdAtStr string) (*model.Project, error) {
	raw, err := s.codec.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", name, err)
	}

	var payload projectPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project payload: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, payload.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project updated_at: %w", err)
	}

	return model.LoadProject(name, payload.Description, payload.Color, createdAt, updatedAt)
}

// CreateProject は新しいプロジェクトをデータベースに保存します。
func (s *SQLiteStore) CreateProject(ctx context.Context, project *model.Project) error {
	// バリデーション
	if err := project.Validate(); err != nil {
		return err
	}

	// 同名プロジェクトの存在確認（大文字小文字を区別しない）
	if _, err := s.GetProject(ctx, project.Name); err == nil {
		return fmt.Errorf("project already exists: %s", project.Name)
	}

	data, err := s.encryptProject(project)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO projects (name, data, created_at) VALUES (?, ?, ?)`,
		project.Name,
		data,
		project.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetProject は指定された名前のプロジェクトを取得します。
// 名前の照合は大文字小文字を区別しません。
func (s *SQLiteStore) GetProject(ctx context.Context, name string) (*model.Project, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT name, data, created_at FROM projects WHERE name = ? COLLATE NOCASE`, name)

	var (
		storedName, createdAt string
		data                  []byte
	)
	err := row.Scan(&storedName, &data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrProjectNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	return s.decryptProjectRow(storedName, data, createdAt)
}

// UpdateProject は指定されたプロジェクトを更新します。
func (s *SQLiteStore) UpdateProject(ctx context.Context, project *model.Project) error {
	// バリデーション
	if err := project.Validate(); err != nil {
		return err
	}

	data, err := s.encryptProject(project)
	if err != nil {
		return err
	}

	result, err := s.conn.ExecContext(ctx, `
		UPDATE projects SET data = ? WHERE name = ? COLLATE NOCASE`,
		data, project.Name)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrProjectNotFound, project.Name)
	}
	return nil
}

// RenameProject はプロジェクト名を変更し、所属タスクの参照も更新します。
func (s *SQLiteStore) RenameProject(ctx context.Context, oldName, newName string) error {
	if newName == "" {
		return model.NewValidationError("name is required")
	}

	// 変更前のプロジェクトを取得（正規化された名前を得る）
	project, err := s.GetProject(ctx, oldName)
	if err != nil {
		return err
	}

	// 変更後の名前が既に使われていないか確認
	if existing, err := s.GetProject(ctx, newName); err == nil && existing.Name != project.Name {
		return fmt.Errorf("project already exists: %s", newName)
	}

	// トランザクションの開始
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// トランザクションをロールバックするための遅延関数
	defer func() {
		if tx != nil {
			tx.Rollback() // 成功した場合は既にnilになっているためエラーは無視
		}
	}()

	// タスク側の参照を先に更新してからプロジェクト名を変更する
	if _, err := tx.ExecContext(ctx, `
		PRAGMA defer_foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to defer foreign keys: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET project = ? WHERE project = ?`, newName, project.Name); err != nil {
		return fmt.Errorf("failed to update task references: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET name = ? WHERE name = ?`, newName, project.Name); err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}

	// トランザクションのコミット
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil // コミットが成功したのでnilにして遅延関数でのロールバックを防ぐ

	return nil
}

// DeleteProject はプロジェクトと所属するすべてのタスクを削除します。
func (s *SQLiteStore) DeleteProject(ctx context.Context, name string) error {
	// プロジェクトの存在確認（正規化された名前を得る）
	project, err := s.GetProject(ctx, name)
	if err != nil {
		return err
	}

	// トランザクションの開始
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// トランザクションをロールバックするための遅延関数
	defer func() {
		if tx != nil {
			tx.Rollback() // 成功した場合は既にnilになっているためエラーは無視
		}
	}()

	// 所属タスクを先に削除（アプリケーションレベルでのカスケード削除）
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tasks WHERE project = ?`, project.Name); err != nil {
		return fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM projects WHERE name = ?`, project.Name); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	// トランザクションのコミット
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil // コミットが成功したのでnilにして遅延関数でのロールバックを防ぐ

	return nil
}

// ListProjects はすべてのプロジェクトを取得します。
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT name, data, created_at FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var (
			name, createdAt string
			data            []byte
		)
		if err := rows.Scan(&name, &data, &createdAt); err != nil {
			return nil, err
		}
		project, err := s.decryptProjectRow(name, data, createdAt)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}
