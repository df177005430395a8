package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
	"todoapp/internal/notify"
	"todoapp/internal/testutil"
)

type reminderFixture struct {
	store     *testutil.FakeTaskStore
	tasks     *TaskService
	prefs     *testutil.FakePreferences
	alarms    *testutil.FakeAlarms
	notifier  *testutil.FakeNotifier
	clock     *testutil.Clock
	scheduler *ReminderScheduler
}

func setupReminders(t *testing.T) *reminderFixture {
	t.Helper()
	f := &reminderFixture{
		store:    testutil.NewFakeTaskStore(),
		prefs:    testutil.NewFakePreferences(),
		alarms:   testutil.NewFakeAlarms(),
		notifier: &testutil.FakeNotifier{},
		clock:    testutil.NewClock(fixedNow),
	}
	f.tasks = NewTaskService(f.store, f.clock.Now)
	f.scheduler = NewReminderScheduler(f.tasks, f.prefs, f.alarms, f.notifier, f.clock.Now)
	return f
}

func timeOfDay(s string) *model.TimeOfDay {
	t := model.TimeOfDay(s)
	return &t
}

func reminderTask(title string, due model.Date, at *model.TimeOfDay) model.Task {
	return model.Task{
		Title:        title,
		DueDate:      due,
		DueTime:      at,
		Priority:     model.PriorityMedium,
		Category:     model.CategoryPersonal,
		CreatedDate:  "2026-10-01",
		ModifiedDate: "2026-10-01",
	}
}

func clockAt(hour, minute int) time.Time {
	return time.Date(2026, 10, 17, hour, minute, 0, 0, time.UTC)
}

func TestNotificationTime(t *testing.T) {
	prefs := model.DefaultPreferences()

	tests := []struct {
		name string
		task model.Task
		now  time.Time
		want time.Time
	}{
		{
			name: "one hour before due time",
			task: reminderTask("a", "2026-10-17", timeOfDay("14:00")),
			now:  clockAt(8, 0),
			want: clockAt(13, 0),
		},
		{
			name: "inside the last hour fires in a minute",
			task: reminderTask("a", "2026-10-17", timeOfDay("14:00")),
			now:  clockAt(13, 30),
			want: clockAt(13, 31),
		},
		{
			name: "one hour mark crosses midnight",
			task: reminderTask("a", "2026-10-18", timeOfDay("00:30")),
			now:  clockAt(20, 0),
			want: clockAt(23, 30),
		},
		{
			name: "preferred time on a later due date",
			task: reminderTask("a", "2026-10-18", nil),
			now:  clockAt(20, 0),
			want: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "preferred time later today",
			task: reminderTask("a", "2026-10-17", nil),
			now:  clockAt(7, 0),
			want: clockAt(8, 0),
		},
		{
			name: "preferred time already passed today",
			task: reminderTask("a", "2026-10-17", nil),
			now:  clockAt(9, 15),
			want: clockAt(9, 16),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NotificationTime(tt.task, prefs, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestNotificationTime_UsesPreferredTime(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.NotificationHour = 18
	prefs.NotificationMinute = 45

	got, err := NotificationTime(reminderTask("a", "2026-10-20", nil), prefs, clockAt(8, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 20, 18, 45, 0, 0, time.UTC), got)
}

func TestReminderScheduler_ScheduleTaskReminder(t *testing.T) {
	f := setupReminders(t)
	task := f.store.Seed(reminderTask("dentist", "2026-10-17", timeOfDay("14:00")))[0]

	require.NoError(t, f.scheduler.ScheduleTaskReminder(context.Background(), task))

	at, ok := f.alarms.At(task.ID)
	require.True(t, ok)
	assert.Equal(t, clockAt(13, 0), at)
	assert.Equal(t, map[int64]time.Time{task.ID: clockAt(13, 0)}, f.scheduler.Pending())
}

func TestReminderScheduler_SkipRules(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *reminderFixture) model.Task
	}{
		{
			name: "completed task",
			setup: func(f *reminderFixture) model.Task {
				task := reminderTask("done", "2026-10-18", nil)
				task.IsCompleted = true
				return task
			},
		},
		{
			name: "due date in the past",
			setup: func(f *reminderFixture) model.Task {
				return reminderTask("late", "2026-10-16", timeOfDay("23:00"))
			},
		},
		{
			name: "notifications disabled",
			setup: func(f *reminderFixture) model.Task {
				prefs := model.DefaultPreferences()
				prefs.NotificationsEnabled = false
				f.prefs.Set(prefs)
				return reminderTask("quiet", "2026-10-18", nil)
			},
		},
		{
			name: "exact alarms unavailable",
			setup: func(f *reminderFixture) model.Task {
				f.alarms.Exact = false
				return reminderTask("inexact", "2026-10-18", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupReminders(t)
			task := f.store.Seed(tt.setup(f))[0]

			require.NoError(t, f.scheduler.ScheduleTaskReminder(context.Background(), task))
			assert.Zero(t, f.alarms.Len())
			assert.Empty(t, f.scheduler.Pending())
		})
	}
}

func TestReminderScheduler_ScheduleReplacesPrevious(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	task := f.store.Seed(reminderTask("moved", "2026-10-18", nil))[0]

	require.NoError(t, f.scheduler.ScheduleTaskReminder(ctx, task))
	task.DueTime = timeOfDay("12:00")
	require.NoError(t, f.scheduler.ScheduleTaskReminder(ctx, task))

	at, ok := f.alarms.At(task.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC), at)
	assert.Equal(t, 1, f.alarms.Len())
}

func TestReminderScheduler_ScheduleAllTaskReminders(t *testing.T) {
	f := setupReminders(t)
	done := reminderTask("done", "2026-10-18", nil)
	done.IsCompleted = true
	seeded := f.store.Seed(
		reminderTask("today", "2026-10-17", timeOfDay("15:00")),
		reminderTask("tomorrow", "2026-10-18", nil),
		reminderTask("overdue", "2026-10-10", nil),
		done,
	)

	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(context.Background()))

	assert.Equal(t, 2, f.alarms.Len())
	_, ok := f.alarms.At(seeded[0].ID)
	assert.True(t, ok)
	_, ok = f.alarms.At(seeded[1].ID)
	assert.True(t, ok)
}

func TestReminderScheduler_ScheduleAllSkippedWhenDisabled(t *testing.T) {
	f := setupReminders(t)
	prefs := model.DefaultPreferences()
	prefs.NotificationsEnabled = false
	f.prefs.Set(prefs)
	f.store.Seed(reminderTask("tomorrow", "2026-10-18", nil))

	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(context.Background()))
	assert.Zero(t, f.alarms.Len())
}

func TestReminderScheduler_ScheduleAllPropagatesErrors(t *testing.T) {
	f := setupReminders(t)
	f.store.Seed(reminderTask("tomorrow", "2026-10-18", nil))
	f.alarms.Err = errors.New("alarm service down")

	err := f.scheduler.ScheduleAllTaskReminders(context.Background())
	require.ErrorIs(t, err, f.alarms.Err)
}

func TestReminderScheduler_HandleAlarm(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	done := reminderTask("finished", "2026-10-17", nil)
	done.IsCompleted = true
	seeded := f.store.Seed(reminderTask("Water plants", "2026-10-17", nil), done)

	require.NoError(t, f.scheduler.HandleAlarm(ctx, seeded[0].ID))
	require.NoError(t, f.scheduler.HandleAlarm(ctx, seeded[1].ID))
	require.NoError(t, f.scheduler.HandleAlarm(ctx, 999))

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.ReminderTitle, sent[0].Title)
	assert.Equal(t, "Water plants", sent[0].Body)
	assert.Equal(t, seeded[0].ID, sent[0].TaskID)
}

func TestReminderScheduler_AlarmFires(t *testing.T) {
	f := setupReminders(t)
	task := f.store.Seed(reminderTask("Take pills", "2026-10-17", timeOfDay("20:00")))[0]
	require.NoError(t, f.scheduler.ScheduleTaskReminder(context.Background(), task))

	require.True(t, f.alarms.Fire(task.ID))

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Take pills", sent[0].Body)
	assert.Empty(t, f.scheduler.Pending())
}

func TestReminderScheduler_AlarmForCompletedTaskIsSilent(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	task := f.store.Seed(reminderTask("Take pills", "2026-10-17", timeOfDay("20:00")))[0]
	require.NoError(t, f.scheduler.ScheduleTaskReminder(ctx, task))

	// completed behind the scheduler's back
	task.IsCompleted = true
	require.NoError(t, f.store.Update(ctx, &task))

	require.True(t, f.alarms.Fire(task.ID))
	assert.Empty(t, f.notifier.Sent())
}

func TestReminderScheduler_Sync(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	seeded := f.store.Seed(
		reminderTask("unchanged", "2026-10-18", nil),
		reminderTask("moved", "2026-10-18", nil),
		reminderTask("removed", "2026-10-18", nil),
		reminderTask("fired", "2026-10-17", timeOfDay("09:00")),
	)
	unchanged, moved, removed, fired := seeded[0], seeded[1], seeded[2], seeded[3]

	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(ctx))
	require.Equal(t, 4, f.alarms.Len())
	require.True(t, f.alarms.Fire(fired.ID))

	// writes from another process
	moved.DueTime = timeOfDay("16:00")
	require.NoError(t, f.store.Update(ctx, &moved))
	require.NoError(t, f.store.DeleteByID(ctx, removed.ID))
	added := f.store.Seed(reminderTask("added", "2026-10-19", nil))[0]

	f.alarms.Cancels = nil
	require.NoError(t, f.scheduler.Sync(ctx))

	at, ok := f.alarms.At(moved.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC), at)

	_, ok = f.alarms.At(added.ID)
	assert.True(t, ok)
	_, ok = f.alarms.At(unchanged.ID)
	assert.True(t, ok)
	_, ok = f.alarms.At(removed.ID)
	assert.False(t, ok)
	_, ok = f.alarms.At(fired.ID)
	assert.False(t, ok, "a fired reminder is not re-armed")

	assert.Contains(t, f.alarms.Cancels, removed.ID)
	assert.NotContains(t, f.alarms.Cancels, unchanged.ID)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestReminderScheduler_SyncCancelsAllWhenDisabled(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	f.store.Seed(reminderTask("a", "2026-10-18", nil), reminderTask("b", "2026-10-19", nil))
	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(ctx))
	require.Equal(t, 2, f.alarms.Len())

	require.NoError(t, f.prefs.UpdateNotificationsEnabled(ctx, false))
	require.NoError(t, f.scheduler.Sync(ctx))
	assert.Zero(t, f.alarms.Len())
	assert.Empty(t, f.scheduler.Pending())
}

func TestReminderScheduler_SyncReArmsOnPreferredTimeChange(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	seeded := f.store.Seed(
		reminderTask("no due time", "2026-10-18", nil),
		reminderTask("with due time", "2026-10-18", timeOfDay("10:00")),
	)
	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(ctx))

	require.NoError(t, f.prefs.UpdateNotificationTime(ctx, 19, 30))
	f.alarms.Cancels = nil
	require.NoError(t, f.scheduler.Sync(ctx))

	at, ok := f.alarms.At(seeded[0].ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 19, 30, 0, 0, time.UTC), at)

	at, ok = f.alarms.At(seeded[1].ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), at)
}

func TestReminderScheduler_AsTaskServiceHook(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	f.tasks.SetReminderHook(f.scheduler)

	task, err := f.tasks.AddTask(ctx, TaskInput{Title: "hooked", DueDate: "2026-10-18"})
	require.NoError(t, err)
	_, ok := f.alarms.At(task.ID)
	require.True(t, ok)

	require.NoError(t, f.tasks.ToggleTaskCompletion(ctx, task.ID))
	_, ok = f.alarms.At(task.ID)
	assert.False(t, ok)

	require.NoError(t, f.tasks.ToggleTaskCompletion(ctx, task.ID))
	_, ok = f.alarms.At(task.ID)
	assert.True(t, ok)

	require.NoError(t, f.tasks.DeleteTaskByID(ctx, task.ID))
	_, ok = f.alarms.At(task.ID)
	assert.False(t, ok)
}
