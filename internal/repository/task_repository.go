package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todoapp/internal/live"
	"todoapp/internal/model"
)

// ErrTaskNotFound is returned by Update when no row has the task's id.
var ErrTaskNotFound = errors.New("task not found")

// priorityOrder ranks rows HIGH, MEDIUM, LOW using the model's lookup table.
var priorityOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE priority")
	for _, p := range model.Priorities() {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" END ASC")
	return b.String()
}()

// TaskRepository is the durable task table. Every list query has a Watch
// variant that re-emits whenever a committed write changes its result.
type TaskRepository struct {
	db  *gorm.DB
	hub live.Hub
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func ordered(q *gorm.DB, sortByDueDate bool) *gorm.DB {
	if sortByDueDate {
		return q.Order("due_date ASC").Order("id ASC")
	}
	return q.Order(priorityOrder).Order("id ASC")
}

func (r *TaskRepository) find(ctx context.Context, build func(*gorm.DB) *gorm.DB) ([]model.Task, error) {
	var tasks []model.Task
	if err := build(r.db.WithContext(ctx).Model(&model.Task{})).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetAll(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return ordered(q, sortByDueDate)
	})
}

func (r *TaskRepository) GetActive(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return ordered(q.Where("is_completed = ?", false), sortByDueDate)
	})
}

// GetCompleted returns completed tasks, most recently modified first.
func (r *TaskRepository) GetCompleted(ctx context.Context) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("is_completed = ?", true).Order("modified_date DESC").Order("id DESC")
	})
}

func (r *TaskRepository) GetFavorites(ctx context.Context, sortByDueDate bool) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return ordered(q.Where("is_favorite = ? AND is_completed = ?", true, false), sortByDueDate)
	})
}

func (r *TaskRepository) GetByCategory(ctx context.Context, category model.Category) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("category = ? AND is_completed = ?", category, false)
	})
}

// Search matches query as a literal, case-insensitive substring of the title
// or description of active tasks. SQLite's LOWER only folds ASCII, so the
// match runs in Go. A blank query matches nothing.
func (r *TaskRepository) Search(ctx context.Context, query string) ([]model.Task, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Task{}, nil
	}
	active, err := r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("is_completed = ?", false).Order("id ASC")
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(active))
	for _, task := range active {
		if task.MatchesQuery(query) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *TaskRepository) GetByDueDate(ctx context.Context, date model.Date) ([]model.Task, error) {
	return r.find(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("due_date = ? AND is_completed = ?", date, false)
	})
}

// GetByID returns nil without error when no task has the id.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

func upsert(tx *gorm.DB, task *model.Task) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(task).Error
}

// Insert stores task, replacing any row with the same id. A zero id is
// assigned by the database. The stored id is returned and set on task.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) (int64, error) {
	if err := upsert(r.db.WithContext(ctx), task); err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	r.hub.Publish()
	return task.ID, nil
}

// InsertMany upserts every task in one transaction.
func (r *TaskRepository) InsertMany(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tasks {
			if err := upsert(tx, &tasks[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	r.hub.Publish()
	return nil
}

// Update replaces the row matching task.ID. It returns ErrTaskNotFound and
// leaves the table untouched when the id does not exist.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if task.ID == 0 {
		return ErrTaskNotFound
	}
	res := r.db.WithContext(ctx).Model(task).Select("*").Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	r.hub.Publish()
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, task *model.Task) error {
	return r.DeleteByID(ctx, task.ID)
}

// DeleteByID removes a task. Deleting a missing id is not an error.
func (r *TaskRepository) DeleteByID(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.hub.Publish()
	}
	return nil
}

// DeleteAllCompleted removes every completed task and reports how many went.
func (r *TaskRepository) DeleteAllCompleted(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("is_completed = ?", true).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.hub.Publish()
	}
	return res.RowsAffected, nil
}

// Refresh wakes every live query. Results that did not change are not
// re-emitted.
func (r *TaskRepository) Refresh() {
	r.hub.Publish()
}

func (r *TaskRepository) WatchAll(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.GetAll(ctx, sortByDueDate)
	})
}

func (r *TaskRepository) WatchActive(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.GetActive(ctx, sortByDueDate)
	})
}

func (r *TaskRepository) WatchCompleted(ctx context.Context) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, r.GetCompleted)
}

func (r *TaskRepository) WatchFavorites(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.GetFavorites(ctx, sortByDueDate)
	})
}

func (r *TaskRepository) WatchByCategory(ctx context.Context, category model.Category) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.GetByCategory(ctx, category)
	})
}

func (r *TaskRepository) WatchSearch(ctx context.Context, query string) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.Search(ctx, query)
	})
}

func (r *TaskRepository) WatchByDueDate(ctx context.Context, date model.Date) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &r.hub, func(ctx context.Context) ([]model.Task, error) {
		return r.GetByDueDate(ctx, date)
	})
}
