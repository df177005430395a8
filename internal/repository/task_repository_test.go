package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/live"
	"todoapp/internal/model"
)

func setupTaskRepo(t *testing.T) *TaskRepository {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := CloseDB(db); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	return NewTaskRepository(db)
}

func newTask(title string, due model.Date, p model.Priority) model.Task {
	return model.Task{
		Title:        title,
		DueDate:      due,
		Priority:     p,
		Category:     model.CategoryPersonal,
		CreatedDate:  "2026-10-01",
		ModifiedDate: "2026-10-01",
	}
}

func insertAll(t *testing.T, repo *TaskRepository, tasks ...model.Task) []model.Task {
	t.Helper()
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		id, err := repo.Insert(context.Background(), &task)
		require.NoError(t, err)
		require.NotZero(t, id)
		out = append(out, task)
	}
	return out
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestTaskRepository_InsertAndGetByIDRoundTrip(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	dueTime := model.TimeOfDay("14:30")
	task := model.Task{
		Title:        "Pay rent",
		Description:  "transfer before noon",
		DueDate:      "2026-11-01",
		DueTime:      &dueTime,
		Priority:     model.PriorityHigh,
		Category:     model.CategoryWork,
		IsCompleted:  true,
		IsFavorite:   true,
		CreatedDate:  "2026-10-01",
		ModifiedDate: "2026-10-02",
	}

	id, err := repo.Insert(ctx, &task)
	require.NoError(t, err)
	require.Equal(t, task.ID, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task, *got)
}

func TestTaskRepository_GetByIDMissing(t *testing.T) {
	repo := setupTaskRepo(t)

	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskRepository_InsertUpsertsOnExistingID(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	stored := insertAll(t, repo, newTask("first", "2026-10-20", model.PriorityLow))[0]

	replacement := stored
	replacement.Title = "replaced"
	replacement.IsCompleted = false
	replacement.Priority = model.PriorityHigh
	id, err := repo.Insert(ctx, &replacement)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, id)

	all, err := repo.GetAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "replaced", all[0].Title)
	assert.Equal(t, model.PriorityHigh, all[0].Priority)
}

func TestTaskRepository_IDsAreNotReused(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	first := insertAll(t, repo, newTask("a", "2026-10-20", model.PriorityLow))[0]
	require.NoError(t, repo.DeleteByID(ctx, first.ID))

	second := insertAll(t, repo, newTask("b", "2026-10-20", model.PriorityLow))[0]
	assert.Greater(t, second.ID, first.ID)
}

func TestTaskRepository_InsertMany(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	existing := insertAll(t, repo, newTask("keep id", "2026-10-20", model.PriorityLow))[0]
	existing.Title = "overwritten"

	batch := []model.Task{
		existing,
		newTask("new one", "2026-10-21", model.PriorityMedium),
		newTask("new two", "2026-10-22", model.PriorityHigh),
	}
	require.NoError(t, repo.InsertMany(ctx, batch))

	all, err := repo.GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"overwritten", "new one", "new two"}, titles(all))
	for _, task := range batch {
		assert.NotZero(t, task.ID)
	}
}

func TestTaskRepository_GetAllOrdering(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	insertAll(t, repo,
		newTask("low-early", "2026-10-18", model.PriorityLow),
		newTask("high-late", "2026-10-25", model.PriorityHigh),
		newTask("medium-mid", "2026-10-20", model.PriorityMedium),
		newTask("high-early", "2026-10-19", model.PriorityHigh),
	)

	byDue, err := repo.GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"low-early", "high-early", "medium-mid", "high-late"}, titles(byDue))
	for i := 1; i < len(byDue); i++ {
		assert.False(t, byDue[i].DueDate.Before(byDue[i-1].DueDate))
	}

	byPriority, err := repo.GetAll(ctx, false)
	require.NoError(t, err)
	// ties keep storage order
	assert.Equal(t, []string{"high-late", "high-early", "medium-mid", "low-early"}, titles(byPriority))
}

func TestTaskRepository_ActiveAndCompletedPartitions(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	done1 := newTask("done old", "2026-10-18", model.PriorityLow)
	done1.IsCompleted = true
	done1.ModifiedDate = "2026-10-03"
	done2 := newTask("done recent", "2026-10-18", model.PriorityLow)
	done2.IsCompleted = true
	done2.ModifiedDate = "2026-10-09"

	insertAll(t, repo, done1, newTask("open", "2026-10-19", model.PriorityHigh), done2)

	active, err := repo.GetActive(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, titles(active))
	for _, task := range active {
		assert.False(t, task.IsCompleted)
	}

	completed, err := repo.GetCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"done recent", "done old"}, titles(completed))
	for _, task := range completed {
		assert.True(t, task.IsCompleted)
	}
}

func TestTaskRepository_FilteredQueries(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	fav := newTask("favorite open", "2026-10-20", model.PriorityMedium)
	fav.IsFavorite = true
	favDone := newTask("favorite done", "2026-10-20", model.PriorityMedium)
	favDone.IsFavorite = true
	favDone.IsCompleted = true
	work := newTask("work item", "2026-10-21", model.PriorityLow)
	work.Category = model.CategoryWork
	workDone := newTask("work done", "2026-10-21", model.PriorityLow)
	workDone.Category = model.CategoryWork
	workDone.IsCompleted = true

	insertAll(t, repo, fav, favDone, work, workDone)

	favorites, err := repo.GetFavorites(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"favorite open"}, titles(favorites))

	byCategory, err := repo.GetByCategory(ctx, model.CategoryWork)
	require.NoError(t, err)
	assert.Equal(t, []string{"work item"}, titles(byCategory))

	byDate, err := repo.GetByDueDate(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, []string{"favorite open"}, titles(byDate))
}

func TestTaskRepository_Search(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	milk := newTask("Buy MILK", "2026-10-20", model.PriorityLow)
	report := newTask("Quarterly report", "2026-10-20", model.PriorityLow)
	report.Description = "include 100% of sales_totals"
	doneMilk := newTask("milk the budget", "2026-10-20", model.PriorityLow)
	doneMilk.IsCompleted = true
	apples := newTask("Äpfel kaufen", "2026-10-20", model.PriorityLow)
	russian := newTask("Купить молоко", "2026-10-20", model.PriorityLow)

	insertAll(t, repo, milk, report, doneMilk, apples, russian)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "case insensitive title", query: "milk", want: []string{"Buy MILK"}},
		{name: "description match", query: "SALES", want: []string{"Quarterly report"}},
		{name: "percent is literal", query: "100%", want: []string{"Quarterly report"}},
		{name: "underscore is literal", query: "s_t", want: []string{"Quarterly report"}},
		{name: "wildcard does not match everything", query: "%", want: []string{"Quarterly report"}},
		{name: "accented exact", query: "Äpfel", want: []string{"Äpfel kaufen"}},
		{name: "accented folded", query: "äpfel", want: []string{"Äpfel kaufen"}},
		{name: "cyrillic exact", query: "Купить", want: []string{"Купить молоко"}},
		{name: "cyrillic folded", query: "купить", want: []string{"Купить молоко"}},
		{name: "cyrillic upper query", query: "МОЛОКО", want: []string{"Купить молоко"}},
		{name: "blank query", query: "   ", want: []string{}},
		{name: "no match", query: "dentist", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestTaskRepository_Update(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	stored := insertAll(t, repo, newTask("draft", "2026-10-20", model.PriorityLow))[0]
	dueTime := model.TimeOfDay("09:00")
	stored.Title = "final"
	stored.DueTime = &dueTime
	require.NoError(t, repo.Update(ctx, &stored))

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, *got)

	// clearing optional fields persists too
	stored.DueTime = nil
	stored.Description = ""
	require.NoError(t, repo.Update(ctx, &stored))
	got, err = repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueTime)
}

func TestTaskRepository_UpdateMissingID(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	insertAll(t, repo, newTask("only", "2026-10-20", model.PriorityLow))

	ghost := newTask("ghost", "2026-10-20", model.PriorityLow)
	ghost.ID = 999
	require.ErrorIs(t, repo.Update(ctx, &ghost), ErrTaskNotFound)

	unsaved := newTask("unsaved", "2026-10-20", model.PriorityLow)
	require.ErrorIs(t, repo.Update(ctx, &unsaved), ErrTaskNotFound)

	all, err := repo.GetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, titles(all))
}

func TestTaskRepository_DeleteIsIdempotent(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	stored := insertAll(t, repo, newTask("temp", "2026-10-20", model.PriorityLow))[0]

	require.NoError(t, repo.Delete(ctx, &stored))
	require.NoError(t, repo.Delete(ctx, &stored))
	require.NoError(t, repo.DeleteByID(ctx, 12345))

	got, err := repo.GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskRepository_DeleteAllCompleted(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx := context.Background()

	done := newTask("done", "2026-10-20", model.PriorityLow)
	done.IsCompleted = true
	insertAll(t, repo, done, newTask("open a", "2026-10-20", model.PriorityLow), done, newTask("open b", "2026-10-21", model.PriorityHigh))

	before, err := repo.GetActive(ctx, true)
	require.NoError(t, err)

	removed, err := repo.DeleteAllCompleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	removed, err = repo.DeleteAllCompleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed)

	completed, err := repo.GetCompleted(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)

	after, err := repo.GetActive(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func receive[T any](t *testing.T, sub *live.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed: %v", sub.Err())
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	var zero T
	return zero
}

func assertQuiet[T any](t *testing.T, sub *live.Subscription[T]) {
	t.Helper()
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected emission: %v", v)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTaskRepository_WatchActive(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := repo.WatchActive(ctx, true)
	assert.Empty(t, receive(t, sub))

	stored := insertAll(t, repo, newTask("watched", "2026-10-20", model.PriorityLow))[0]
	assert.Equal(t, []string{"watched"}, titles(receive(t, sub)))

	stored.IsCompleted = true
	require.NoError(t, repo.Update(ctx, &stored))
	assert.Empty(t, receive(t, sub))

	cancel()
	for range sub.C() {
	}
	assert.NoError(t, sub.Err())
}

func TestTaskRepository_WatchIgnoresUnrelatedWrites(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := repo.WatchByCategory(ctx, model.CategoryHealth)
	assert.Empty(t, receive(t, sub))

	insertAll(t, repo, newTask("not health", "2026-10-20", model.PriorityLow))
	assertQuiet(t, sub)

	health := newTask("dentist", "2026-10-20", model.PriorityLow)
	health.Category = model.CategoryHealth
	insertAll(t, repo, health)
	assert.Equal(t, []string{"dentist"}, titles(receive(t, sub)))
}

func TestTaskRepository_WatchSearch(t *testing.T) {
	repo := setupTaskRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := repo.WatchSearch(ctx, "äpfel")
	assert.Empty(t, receive(t, sub))

	insertAll(t, repo, newTask("Birnen kaufen", "2026-10-20", model.PriorityLow))
	assertQuiet(t, sub)

	apples := insertAll(t, repo, newTask("Äpfel kaufen", "2026-10-20", model.PriorityLow))[0]
	assert.Equal(t, []string{"Äpfel kaufen"}, titles(receive(t, sub)))

	apples.IsCompleted = true
	require.NoError(t, repo.Update(ctx, &apples))
	assert.Empty(t, receive(t, sub))
}

func TestTaskRepository_RefreshSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *TaskRepository {
		db, err := NewDB(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = CloseDB(db) })
		return NewTaskRepository(db)
	}
	reader, writer := open(), open()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := reader.WatchActive(ctx, true)
	assert.Empty(t, receive(t, sub))

	insertAll(t, writer, newTask("written elsewhere", "2026-10-18", model.PriorityHigh))
	assertQuiet(t, sub)

	reader.Refresh()
	assert.Equal(t, []string{"written elsewhere"}, titles(receive(t, sub)))

	// nothing changed since the last emission
	reader.Refresh()
	assertQuiet(t, sub)
}
