// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sort"
	"sync"

	"todoapp/internal/live"
	"todoapp/internal/model"
	"todoapp/internal/repository"
)

// FakeTaskStore is an in-memory task store with the same ordering and
// filtering rules as the SQLite repository.
type FakeTaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]model.Task
	nextID int64
	hub    live.Hub

	// Error injection for testing
	GetErr    error
	InsertErr error
	UpdateErr error
	DeleteErr error
}

func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{tasks: make(map[int64]model.Task), nextID: 1}
}

// Seed stores tasks directly, assigning ids to those without one.
func (f *FakeTaskStore) Seed(tasks ...model.Task) []model.Task {
	f.mu.Lock()
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		f.put(&task)
		out = append(out, task)
	}
	f.mu.Unlock()
	f.hub.Publish()
	return out
}

// Len reports how many tasks are stored.
func (f *FakeTaskStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.tasks)
}

func (f *FakeTaskStore) put(task *model.Task) {
	if task.ID == 0 {
		task.ID = f.nextID
	}
	if task.ID >= f.nextID {
		f.nextID = task.ID + 1
	}
	f.tasks[task.ID] = cloneTask(*task)
}

func cloneTask(task model.Task) model.Task {
	if task.DueTime != nil {
		t := *task.DueTime
		task.DueTime = &t
	}
	return task
}

func (f *FakeTaskStore) filter(keep func(model.Task) bool) []model.Task {
	out := []model.Task{}
	for _, task := range f.tasks {
		if keep(task) {
			out = append(out, cloneTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeTaskStore) list(keep func(model.Task) bool, sortByDueDate bool) ([]model.Task, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := f.filter(keep)
	sort.SliceStable(out, func(i, j int) bool {
		if sortByDueDate {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out, nil
}

func (f *FakeTaskStore) unordered(keep func(model.Task) bool) ([]model.Task, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter(keep), nil
}

func (f *FakeTaskStore) GetAll(_ context.Context, sortByDueDate bool) ([]model.Task, error) {
	return f.list(func(model.Task) bool { return true }, sortByDueDate)
}

func (f *FakeTaskStore) GetActive(_ context.Context, sortByDueDate bool) ([]model.Task, error) {
	return f.list(func(t model.Task) bool { return !t.IsCompleted }, sortByDueDate)
}

func (f *FakeTaskStore) GetCompleted(context.Context) ([]model.Task, error) {
	out, err := f.unordered(func(t model.Task) bool { return t.IsCompleted })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModifiedDate != out[j].ModifiedDate {
			return out[i].ModifiedDate.After(out[j].ModifiedDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *FakeTaskStore) GetFavorites(_ context.Context, sortByDueDate bool) ([]model.Task, error) {
	return f.list(func(t model.Task) bool { return t.IsFavorite && !t.IsCompleted }, sortByDueDate)
}

func (f *FakeTaskStore) GetByCategory(_ context.Context, category model.Category) ([]model.Task, error) {
	return f.unordered(func(t model.Task) bool { return t.Category == category && !t.IsCompleted })
}

func (f *FakeTaskStore) Search(_ context.Context, query string) ([]model.Task, error) {
	return f.unordered(func(t model.Task) bool {
		return !t.IsCompleted && t.MatchesQuery(query)
	})
}

func (f *FakeTaskStore) GetByDueDate(_ context.Context, date model.Date) ([]model.Task, error) {
	return f.unordered(func(t model.Task) bool { return t.DueDate == date && !t.IsCompleted })
}

func (f *FakeTaskStore) GetByID(_ context.Context, id int64) (*model.Task, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	task = cloneTask(task)
	return &task, nil
}

func (f *FakeTaskStore) Insert(_ context.Context, task *model.Task) (int64, error) {
	if f.InsertErr != nil {
		return 0, f.InsertErr
	}
	f.mu.Lock()
	f.put(task)
	f.mu.Unlock()
	f.hub.Publish()
	return task.ID, nil
}

func (f *FakeTaskStore) InsertMany(_ context.Context, tasks []model.Task) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	if len(tasks) == 0 {
		return nil
	}
	f.mu.Lock()
	for i := range tasks {
		f.put(&tasks[i])
	}
	f.mu.Unlock()
	f.hub.Publish()
	return nil
}

func (f *FakeTaskStore) Update(_ context.Context, task *model.Task) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	if _, ok := f.tasks[task.ID]; !ok {
		f.mu.Unlock()
		return repository.ErrTaskNotFound
	}
	f.tasks[task.ID] = cloneTask(*task)
	f.mu.Unlock()
	f.hub.Publish()
	return nil
}

func (f *FakeTaskStore) Delete(ctx context.Context, task *model.Task) error {
	return f.DeleteByID(ctx, task.ID)
}

func (f *FakeTaskStore) DeleteByID(_ context.Context, id int64) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	_, ok := f.tasks[id]
	delete(f.tasks, id)
	f.mu.Unlock()
	if ok {
		f.hub.Publish()
	}
	return nil
}

func (f *FakeTaskStore) DeleteAllCompleted(context.Context) (int64, error) {
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	f.mu.Lock()
	var removed int64
	for id, task := range f.tasks {
		if task.IsCompleted {
			delete(f.tasks, id)
			removed++
		}
	}
	f.mu.Unlock()
	if removed > 0 {
		f.hub.Publish()
	}
	return removed, nil
}

func (f *FakeTaskStore) watch(ctx context.Context, load func(context.Context) ([]model.Task, error)) *live.Subscription[[]model.Task] {
	return live.Watch(ctx, &f.hub, load)
}

func (f *FakeTaskStore) WatchAll(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.GetAll(ctx, sortByDueDate) })
}

func (f *FakeTaskStore) WatchActive(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.GetActive(ctx, sortByDueDate) })
}

func (f *FakeTaskStore) WatchCompleted(ctx context.Context) *live.Subscription[[]model.Task] {
	return f.watch(ctx, f.GetCompleted)
}

func (f *FakeTaskStore) WatchFavorites(ctx context.Context, sortByDueDate bool) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.GetFavorites(ctx, sortByDueDate) })
}

func (f *FakeTaskStore) WatchByCategory(ctx context.Context, category model.Category) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.GetByCategory(ctx, category) })
}

func (f *FakeTaskStore) WatchSearch(ctx context.Context, query string) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.Search(ctx, query) })
}

func (f *FakeTaskStore) WatchByDueDate(ctx context.Context, date model.Date) *live.Subscription[[]model.Task] {
	return f.watch(ctx, func(ctx context.Context) ([]model.Task, error) { return f.GetByDueDate(ctx, date) })
}
