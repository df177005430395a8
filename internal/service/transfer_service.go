package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"todoapp/internal/model"
	"todoapp/internal/transfer"
)

// TransferService exports the task list to a file and imports it back.
type TransferService struct {
	tasks *TaskService
	now   func() time.Time
}

func NewTransferService(tasks *TaskService, now func() time.Time) *TransferService {
	if now == nil {
		now = time.Now
	}
	return &TransferService{tasks: tasks, now: now}
}

// Export writes every task, in due-date order, to path. The file is written
// under a temporary name and renamed into place.
func (s *TransferService) Export(ctx context.Context, path string) (int, error) {
	tasks, err := s.tasks.GetAllTasks(ctx, true)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".todoapp-export-*")
	if err != nil {
		return 0, fmt.Errorf("export tasks: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := transfer.Encode(tmp, tasks, transfer.FormatFromPath(path)); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("export tasks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("export tasks: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("export tasks: %w", err)
	}
	return len(tasks), nil
}

// Import reads path and upserts its tasks by id. Nothing is written unless
// the whole file parses; on failure the result is empty.
func (s *TransferService) Import(ctx context.Context, path string) ([]model.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return []model.Task{}, fmt.Errorf("import tasks: %w", err)
	}
	defer f.Close()

	tasks, err := transfer.Decode(f, transfer.FormatFromPath(path), model.DateOf(s.now()))
	if err != nil {
		return []model.Task{}, fmt.Errorf("import tasks: %w", err)
	}

	if err := s.tasks.ImportTasks(ctx, tasks); err != nil {
		return []model.Task{}, fmt.Errorf("import tasks: %w", err)
	}
	return tasks, nil
}
