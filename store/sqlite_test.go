package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stsysd/tudu/crypt"
	"github.com/stsysd/tudu/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// テスト用の一時ディレクトリに鍵とデータベースを作成
	dataDir := t.TempDir()
	key, err := crypt.LoadOrCreateKey(dataDir)
	if err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}

	store, err := NewSQLiteStore(dataDir, crypt.NewCodec(key))
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// createTestProject is a helper that creates a project in the store
func createTestProject(t *testing.T, store *SQLiteStore, name string) *model.Project {
	t.Helper()
	project, err := model.NewProject(name, "Test project")
	if err != nil {
		t.Fatalf("Failed to create project model: %v", err)
	}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return project
}

// createTestTask is a helper that creates a task in the store
func createTestTask(t *testing.T, store *SQLiteStore, project, title string, points int) *model.Task {
	t.Helper()
	task, err := model.NewTask(project, title, points)
	if err != nil {
		t.Fatalf("Failed to create task model: %v", err)
	}
	if err := store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}

func TestCreateAndGetProject(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := createTestProject(t, store, "Tudu")

	got, err := store.GetProject(ctx, "Tudu")
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if got.Name != created.Name {
		t.Errorf("Expected name %s, got %s", created.Name, got.Name)
	}
	// 説明は暗号化されて保存され、読み出し時に復号される
	if got.Description != created.Description {
		t.Errorf("Expected description %s, got %s", created.Description, got.Description)
	}
	if got.Color != created.Color {
		t.Errorf("Expected color %s, got %s", created.Color, got.Color)
	}
}

func TestGetProjectCaseInsensitive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")

	// 大文字小文字の違いを無視して照合される
	got, err := store.GetProject(ctx, "tudu")
	if err != nil {
		t.Fatalf("Failed to get project: %v", err)
	}
	if got.Name != "Tudu" {
		t.Errorf("Expected canonical name Tudu, got %s", got.Name)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetProject(context.Background(), "missing")
	if !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
}

func TestCreateProjectDuplicate(t *testing.T) {
	store := setupTestStore(t)

	createTestProject(t, store, "Tudu")

	// 大文字小文字だけが異なる名前も重複とみなす
	project, err := model.NewProject("TUDU", "")
	if err != nil {
		t.Fatalf("Failed to create project model: %v", err)
	}
	if err := store.CreateProject(context.Background(), project); err == nil {
		t.Error("Expected error for duplicate project, got nil")
	}
}

func TestCreateTaskRequiresProject(t *testing.T) {
	store := setupTestStore(t)

	task, err := model.NewTask("missing", "Create app", 4)
	if err != nil {
		t.Fatalf("Failed to create task model: %v", err)
	}

	err = store.CreateTask(context.Background(), task)
	if !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	created := createTestTask(t, store, "Tudu", "Create app", 4)

	got, err := store.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}

	if got.ID != created.ID {
		t.Errorf("Expected ID %s, got %s", created.ID, got.ID)
	}
	if got.Title != created.Title {
		t.Errorf("Expected title %s, got %s", created.Title, got.Title)
	}
	if got.StoryPoints != created.StoryPoints {
		t.Errorf("Expected story points %d, got %d", created.StoryPoints, got.StoryPoints)
	}
	if got.Status != model.StatusTodo {
		t.Errorf("Expected status %s, got %s", model.StatusTodo, got.Status)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Expected CreatedAt %v, got %v", created.CreatedAt, got.CreatedAt)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetTask(context.Background(), uuid.New())
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestUpdateTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	task := createTestTask(t, store, "Tudu", "Create app", 4)

	task.Title = "Create the app"
	task.StoryPoints = 8
	task.CycleStatus()
	if err := store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Title != "Create the app" {
		t.Errorf("Expected updated title, got %s", got.Title)
	}
	if got.StoryPoints != 8 {
		t.Errorf("Expected story points 8, got %d", got.StoryPoints)
	}
	if got.Status != model.StatusInProgress {
		t.Errorf("Expected status %s, got %s", model.StatusInProgress, got.Status)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	task, err := model.NewTask("Tudu", "Create app", 4)
	if err != nil {
		t.Fatalf("Failed to create task model: %v", err)
	}

	// 保存されていないタスクの更新は失敗する
	err = store.UpdateTask(ctx, task)
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	task := createTestTask(t, store, "Tudu", "Create app", 4)

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}

	_, err := store.GetTask(ctx, task.ID)
	if !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound after delete, got %v", err)
	}

	// 削除済みタスクの再削除も失敗する
	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, model.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound for double delete, got %v", err)
	}
}

func TestListTasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	createTestProject(t, store, "Other")
	createTestTask(t, store, "Tudu", "Create app", 4)
	createTestTask(t, store, "Tudu", "Write tests", 3)
	createTestTask(t, store, "Other", "Unrelated", 1)

	tasks, err := store.ListTasks(ctx, "Tudu")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.Project != "Tudu" {
			t.Errorf("Expected project Tudu, got %s", task.Project)
		}
	}
}

func TestNextPosition(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")

	// タスクがない場合は0から始まる
	next, err := store.NextPosition(ctx, "Tudu")
	if err != nil {
		t.Fatalf("Failed to get next position: %v", err)
	}
	if next != 0 {
		t.Errorf("Expected position 0, got %d", next)
	}

	task := createTestTask(t, store, "Tudu", "Create app", 4)
	task.Position = 5
	if err := store.UpdateTask(ctx, task); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	next, err = store.NextPosition(ctx, "Tudu")
	if err != nil {
		t.Fatalf("Failed to get next position: %v", err)
	}
	if next != 6 {
		t.Errorf("Expected position 6, got %d", next)
	}
}

func TestDeleteProjectCascade(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	createTestProject(t, store, "Other")
	taskA := createTestTask(t, store, "Tudu", "Create app", 4)
	taskB := createTestTask(t, store, "Tudu", "Write tests", 3)
	kept := createTestTask(t, store, "Other", "Unrelated", 1)

	if err := store.DeleteProject(ctx, "Tudu"); err != nil {
		t.Fatalf("Failed to delete project: %v", err)
	}

	// プロジェクトとその所属タスクがすべて削除されている
	if _, err := store.GetProject(ctx, "Tudu"); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
	for _, id := range []uuid.UUID{taskA.ID, taskB.ID} {
		if _, err := store.GetTask(ctx, id); !errors.Is(err, model.ErrTaskNotFound) {
			t.Errorf("Expected ErrTaskNotFound for cascaded task, got %v", err)
		}
	}

	// 他のプロジェクトのタスクは残っている
	if _, err := store.GetTask(ctx, kept.ID); err != nil {
		t.Errorf("Expected unrelated task to survive, got %v", err)
	}
}

func TestRenameProject(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	task := createTestTask(t, store, "Tudu", "Create app", 4)

	if err := store.RenameProject(ctx, "Tudu", "Tudu2"); err != nil {
		t.Fatalf("Failed to rename project: %v", err)
	}

	// 旧名では見つからず、新名で取得できる
	if _, err := store.GetProject(ctx, "Tudu"); !errors.Is(err, model.ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound for old name, got %v", err)
	}
	if _, err := store.GetProject(ctx, "Tudu2"); err != nil {
		t.Fatalf("Failed to get renamed project: %v", err)
	}

	// タスクの参照も更新されている
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Project != "Tudu2" {
		t.Errorf("Expected task project Tudu2, got %s", got.Project)
	}
}

func TestRenameProjectConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	createTestProject(t, store, "Other")

	if err := store.RenameProject(ctx, "Tudu", "Other"); err == nil {
		t.Error("Expected error when renaming to an existing name, got nil")
	}
}

func TestTamperedCiphertextFailsRead(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestProject(t, store, "Tudu")
	task := createTestTask(t, store, "Tudu", "Create app", 4)

	// 保存された暗号文を直接改ざんする
	var data []byte
	row := store.conn.QueryRow(`SELECT data FROM tasks WHERE id = ?`, task.ID.String())
	if err := row.Scan(&data); err != nil {
		t.Fatalf("Failed to read raw ciphertext: %v", err)
	}
	data[len(data)/2] ^= 0x01
	if _, err := store.conn.Exec(`UPDATE tasks SET data = ? WHERE id = ?`, data, task.ID.String()); err != nil {
		t.Fatalf("Failed to write tampered ciphertext: %v", err)
	}

	// 改ざんされたレコードの読み出しはErrDecryptionで失敗する
	_, err := store.GetTask(ctx, task.ID)
	if !errors.Is(err, crypt.ErrDecryption) {
		t.Errorf("Expected ErrDecryption, got %v", err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	key, err := crypt.LoadOrCreateKey(dataDir)
	if err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}

	first, err := NewSQLiteStore(dataDir, crypt.NewCodec(key))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	project, err := model.NewProject("Tudu", "persisted")
	if err != nil {
		t.Fatalf("Failed to create project model: %v", err)
	}
	if err := first.CreateProject(ctx, project); err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	task, err := model.NewTask("Tudu", "Create app", 4)
	if err != nil {
		t.Fatalf("Failed to create task model: %v", err)
	}
	if err := first.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	first.Close()

	// 同じデータディレクトリから鍵を導出し直してストアを開き直す
	key2, err := crypt.LoadOrCreateKey(dataDir)
	if err != nil {
		t.Fatalf("Failed to reload key: %v", err)
	}
	second, err := NewSQLiteStore(dataDir, crypt.NewCodec(key2))
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer second.Close()

	got, err := second.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("Failed to get task after reopen: %v", err)
	}
	if got.Title != "Create app" {
		t.Errorf("Expected title 'Create app', got %s", got.Title)
	}
}
