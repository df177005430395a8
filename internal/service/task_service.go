package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"todoapp/internal/live"
	"todoapp/internal/model"
	"todoapp/internal/repository"
)

// ErrInvalidTask is wrapped by every ValidationError.
var ErrInvalidTask = errors.New("invalid task")

// ValidationError reports user input rejected before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTask
}

// TaskStore is the task repository as the use cases see it.
type TaskStore interface {
	GetAll(ctx context.Context, sortByDueDate bool) ([]model.Task, error)
	GetActive(ctx context.Context, sortByDueDate bool) ([]model.Task, error)
	GetCompleted(ctx context.Context) ([]model.Task, error)
	GetFavorites(ctx context.Context, sortByDueDate bool) ([]model.Task, error)
	GetByCategory(ctx context.Context, category model.Category) ([]model.Task, error)
	Search(ctx context.Context, query string) ([]model.Task, error)
	GetByDueDate(ctx context.Context, date model.Date) ([]model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Insert(ctx context.Context, task *model.Task) (int64, error)
	InsertMany(ctx context.Context, tasks []model.Task) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, task *model.Task) error
	DeleteByID(ctx context.Context, id int64) error
	DeleteAllCompleted(ctx context.Context) (int64, error)

	WatchAll(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task]
	WatchActive(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task]
	WatchCompleted(ctx context.Context) *live.Subscription[[]model.Task]
	WatchFavorites(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task]
	WatchByCategory(ctx context.Context, category model.Category) *live.Subscription[[]model.Task]
	WatchSearch(ctx context.Context, query string) *live.Subscription[[]model.Task]
	WatchByDueDate(ctx context.Context, date model.Date) *live.Subscription[[]model.Task]
}

// ReminderHook is told about every committed task mutation made through
// TaskService.
type ReminderHook interface {
	TaskSaved(ctx context.Context, task model.Task)
	TaskDeleted(ctx context.Context, taskID int64)
}

// TaskInput represents the user-editable fields of a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     model.Date
	DueTime     *model.TimeOfDay
	Priority    model.Priority
	Category    model.Category
	IsFavorite  bool
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store TaskStore
	hook  ReminderHook
	now   func() time.Time
}

func NewTaskService(store TaskStore, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{store: store, now: now}
}

// SetReminderHook installs the hook called after each committed mutation.
func (s *TaskService) SetReminderHook(hook ReminderHook) {
	s.hook = hook
}

func (s *TaskService) today() model.Date {
	return model.DateOf(s.now())
}

func (s *TaskService) saved(ctx context.Context, task model.Task) {
	if s.hook != nil {
		s.hook.TaskSaved(ctx, task)
	}
}

func (s *TaskService) deleted(ctx context.Context, id int64) {
	if s.hook != nil {
		s.hook.TaskDeleted(ctx, id)
	}
}

func (s *TaskService) GetAllTasks(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return s.store.GetAll(ctx, sortByDueDate)
}

func (s *TaskService) GetActiveTasks(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return s.store.GetActive(ctx, sortByDueDate)
}

func (s *TaskService) GetCompletedTasks(ctx context.Context) ([]model.Task, error) {
	return s.store.GetCompleted(ctx)
}

func (s *TaskService) GetFavoriteTasks(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return s.store.GetFavorites(ctx, sortByDueDate)
}

func (s *TaskService) GetTasksByCategory(ctx context.Context, category model.Category) ([]model.Task, error) {
	return s.store.GetByCategory(ctx, category)
}

func (s *TaskService) SearchTasks(ctx context.Context, query string) ([]model.Task, error) {
	return s.store.Search(ctx, query)
}

func (s *TaskService) GetTasksByDueDate(ctx context.Context, date model.Date) ([]model.Task, error) {
	return s.store.GetByDueDate(ctx, date)
}

// GetTaskByID returns nil without error when the task does not exist.
func (s *TaskService) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	return s.store.GetByID(ctx, id)
}

func (s *TaskService) WatchAllTasks(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return s.store.WatchAll(ctx, sortByDueDate)
}

func (s *TaskService) WatchActiveTasks(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return s.store.WatchActive(ctx, sortByDueDate)
}

func (s *TaskService) WatchCompletedTasks(ctx context.Context) *live.Subscription[[]model.Task] {
	return s.store.WatchCompleted(ctx)
}

func (s *TaskService) WatchFavoriteTasks(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return s.store.WatchFavorites(ctx, sortByDueDate)
}

func (s *TaskService) WatchTasksByCategory(ctx context.Context, category model.Category) *live.Subscription[[]model.Task] {
	return s.store.WatchByCategory(ctx, category)
}

func (s *TaskService) WatchSearch(ctx context.Context, query string) *live.Subscription[[]model.Task] {
	return s.store.WatchSearch(ctx, query)
}

func (s *TaskService) WatchTasksByDueDate(ctx context.Context, date model.Date) *live.Subscription[[]model.Task] {
	return s.store.WatchByDueDate(ctx, date)
}

// normalize validates input and fills in defaults. A missing due date means
// today.
func (s *TaskService) normalize(input TaskInput) (TaskInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)

	if input.Title == "" {
		return input, &ValidationError{Field: "title", Message: "Title cannot be empty"}
	}

	if input.DueDate == "" {
		input.DueDate = s.today()
	} else {
		date, err := model.ParseDate(string(input.DueDate))
		if err != nil {
			return input, &ValidationError{Field: "dueDate", Message: err.Error()}
		}
		input.DueDate = date
	}

	if input.DueTime != nil {
		tod, err := model.ParseTimeOfDay(string(*input.DueTime))
		if err != nil {
			return input, &ValidationError{Field: "dueTime", Message: err.Error()}
		}
		input.DueTime = &tod
	}

	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	} else {
		p, err := model.ParsePriority(string(input.Priority))
		if err != nil {
			return input, &ValidationError{Field: "priority", Message: err.Error()}
		}
		input.Priority = p
	}

	if input.Category == "" {
		input.Category = model.CategoryPersonal
	} else {
		c, err := model.ParseCategory(string(input.Category))
		if err != nil {
			return input, &ValidationError{Field: "category", Message: err.Error()}
		}
		input.Category = c
	}

	return input, nil
}

// AddTask validates input and stores a new active task created today.
func (s *TaskService) AddTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	today := s.today()
	task := model.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		DueTime:      input.DueTime,
		Priority:     input.Priority,
		Category:     input.Category,
		IsFavorite:   input.IsFavorite,
		CreatedDate:  today,
		ModifiedDate: today,
	}

	if _, err := s.store.Insert(ctx, &task); err != nil {
		return nil, err
	}
	s.saved(ctx, task)
	return &task, nil
}

// UpdateTask replaces the editable fields of an existing task. The created
// date and completion flag are kept.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, input TaskInput) (*model.Task, error) {
	input, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("update task %d: %w", id, repository.ErrTaskNotFound)
	}

	task := *existing
	task.Title = input.Title
	task.Description = input.Description
	task.DueDate = input.DueDate
	task.DueTime = input.DueTime
	task.Priority = input.Priority
	task.Category = input.Category
	task.IsFavorite = input.IsFavorite
	task.ModifiedDate = laterDate(s.today(), existing.ModifiedDate)

	if err := s.store.Update(ctx, &task); err != nil {
		return nil, err
	}
	s.saved(ctx, task)
	return &task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, task model.Task) error {
	if err := s.store.Delete(ctx, &task); err != nil {
		return err
	}
	s.deleted(ctx, task.ID)
	return nil
}

// DeleteTaskByID removes a task. A missing id is not an error.
func (s *TaskService) DeleteTaskByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.deleted(ctx, id)
	return nil
}

// ToggleTaskCompletion flips the completion flag. It does nothing when the
// task does not exist.
func (s *TaskService) ToggleTaskCompletion(ctx context.Context, id int64) error {
	return s.toggle(ctx, id, func(task *model.Task) {
		task.IsCompleted = !task.IsCompleted
	})
}

// ToggleTaskFavorite flips the favorite flag. It does nothing when the task
// does not exist.
func (s *TaskService) ToggleTaskFavorite(ctx context.Context, id int64) error {
	return s.toggle(ctx, id, func(task *model.Task) {
		task.IsFavorite = !task.IsFavorite
	})
}

func (s *TaskService) toggle(ctx context.Context, id int64, flip func(*model.Task)) error {
	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return nil
	}

	flip(task)
	task.ModifiedDate = laterDate(s.today(), task.ModifiedDate)

	if err := s.store.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			// deleted between read and write
			return nil
		}
		return err
	}
	s.saved(ctx, *task)
	return nil
}

// DeleteAllCompletedTasks purges completed tasks and reports how many went.
func (s *TaskService) DeleteAllCompletedTasks(ctx context.Context) (int64, error) {
	completed, err := s.store.GetCompleted(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteAllCompleted(ctx)
	if err != nil {
		return 0, err
	}
	for _, task := range completed {
		s.deleted(ctx, task.ID)
	}
	return removed, nil
}

// ImportTasks upserts tasks in one batch.
func (s *TaskService) ImportTasks(ctx context.Context, tasks []model.Task) error {
	if err := s.store.InsertMany(ctx, tasks); err != nil {
		return err
	}
	for _, task := range tasks {
		s.saved(ctx, task)
	}
	return nil
}

func laterDate(a, b model.Date) model.Date {
	if b.After(a) {
		return b
	}
	return a
}
