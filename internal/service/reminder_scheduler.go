package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"todoapp/internal/model"
	"todoapp/internal/notify"
)

const alarmTimeout = 30 * time.Second

// TaskReader is what reminders need from the task use cases.
type TaskReader interface {
	GetActiveTasks(ctx context.Context, sortByDueDate bool) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
}

// PreferencesReader returns the current settings record.
type PreferencesReader interface {
	Get(ctx context.Context) (model.UserPreferences, error)
}

// NotificationTime computes when a task's reminder fires. A task with a due
// time fires one hour before it; otherwise it fires at the preferred
// notification time on the due date. Either way, a moment that has already
// passed becomes one minute from now.
func NotificationTime(task model.Task, prefs model.UserPreferences, now time.Time) (time.Time, error) {
	loc := now.Location()

	if task.DueTime != nil {
		due, err := task.DueTime.On(task.DueDate, loc)
		if err != nil {
			return time.Time{}, err
		}
		at := due.Add(-time.Hour)
		if at.Before(now) {
			return now.Add(time.Minute), nil
		}
		return at, nil
	}

	at, err := prefs.NotificationTime().On(task.DueDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	if task.DueDate == model.DateOf(now) && now.After(at) {
		return now.Add(time.Minute), nil
	}
	return at, nil
}

type registration struct {
	fingerprint string
	at          time.Time
	fired       bool
}

// ReminderScheduler keeps one alarm per active task and posts a reminder
// when it fires.
type ReminderScheduler struct {
	tasks    TaskReader
	prefs    PreferencesReader
	alarms   AlarmManager
	notifier notify.Notifier
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	regs map[int64]registration
}

func NewReminderScheduler(tasks TaskReader, prefs PreferencesReader, alarms AlarmManager, notifier notify.Notifier, now func() time.Time) *ReminderScheduler {
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{
		tasks:    tasks,
		prefs:    prefs,
		alarms:   alarms,
		notifier: notifier,
		now:      now,
		logger:   slog.Default(),
		regs:     make(map[int64]registration),
	}
}

// WithLogger replaces the default logger.
func (s *ReminderScheduler) WithLogger(logger *slog.Logger) *ReminderScheduler {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// fingerprint captures the inputs that decide a task's fire time.
func fingerprint(task model.Task, prefs model.UserPreferences) string {
	if task.DueTime != nil {
		return fmt.Sprintf("%s|%s", task.DueDate, *task.DueTime)
	}
	return fmt.Sprintf("%s|pref %s", task.DueDate, prefs.NotificationTime())
}

// ScheduleTaskReminder registers (or replaces) the reminder for task.
func (s *ReminderScheduler) ScheduleTaskReminder(ctx context.Context, task model.Task) error {
	prefs, err := s.prefs.Get(ctx)
	if err != nil {
		return err
	}
	return s.schedule(task, prefs, s.now())
}

func (s *ReminderScheduler) schedule(task model.Task, prefs model.UserPreferences, now time.Time) error {
	switch {
	case !prefs.NotificationsEnabled, task.IsCompleted, task.DueDate.Before(model.DateOf(now)):
		s.CancelTaskReminder(task.ID)
		return nil
	case !s.alarms.CanScheduleExact():
		s.CancelTaskReminder(task.ID)
		s.logger.Debug("exact alarms unavailable, reminder skipped", "task_id", task.ID)
		return nil
	}

	at, err := NotificationTime(task, prefs, now)
	if err != nil {
		return fmt.Errorf("reminder time for task %d: %w", task.ID, err)
	}

	id := task.ID
	if err := s.alarms.ScheduleAt(id, at, func() { s.fire(id) }); err != nil {
		return fmt.Errorf("schedule reminder for task %d: %w", id, err)
	}

	s.mu.Lock()
	s.regs[id] = registration{fingerprint: fingerprint(task, prefs), at: at}
	s.mu.Unlock()

	s.logger.Debug("reminder scheduled", "task_id", id, "at", at)
	return nil
}

// CancelTaskReminder drops the reminder for taskID. Unknown ids are ignored.
func (s *ReminderScheduler) CancelTaskReminder(taskID int64) {
	s.alarms.Cancel(taskID)
	s.mu.Lock()
	delete(s.regs, taskID)
	s.mu.Unlock()
}

// CancelAll drops every reminder this scheduler registered.
func (s *ReminderScheduler) CancelAll() {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.regs))
	for id := range s.regs {
		ids = append(ids, id)
	}
	s.regs = make(map[int64]registration)
	s.mu.Unlock()

	for _, id := range ids {
		s.alarms.Cancel(id)
	}
}

// ScheduleAllTaskReminders registers a reminder for every active task. It is
// the boot pass: pending alarms do not survive a restart.
func (s *ReminderScheduler) ScheduleAllTaskReminders(ctx context.Context) error {
	prefs, err := s.prefs.Get(ctx)
	if err != nil {
		return err
	}
	if !prefs.NotificationsEnabled {
		return nil
	}

	tasks, err := s.tasks.GetActiveTasks(ctx, true)
	if err != nil {
		return err
	}

	now := s.now()
	var errs []error
	for _, task := range tasks {
		if err := s.schedule(task, prefs, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sync reconciles registered reminders with the current active tasks. Tasks
// whose schedule inputs are unchanged keep their alarm, including one that
// already fired. Tasks no longer active lose theirs.
func (s *ReminderScheduler) Sync(ctx context.Context) error {
	prefs, err := s.prefs.Get(ctx)
	if err != nil {
		return err
	}
	if !prefs.NotificationsEnabled {
		s.CancelAll()
		return nil
	}

	tasks, err := s.tasks.GetActiveTasks(ctx, true)
	if err != nil {
		return err
	}

	now := s.now()
	active := make(map[int64]struct{}, len(tasks))
	var errs []error
	for _, task := range tasks {
		active[task.ID] = struct{}{}

		s.mu.Lock()
		reg, ok := s.regs[task.ID]
		s.mu.Unlock()
		if ok && reg.fingerprint == fingerprint(task, prefs) {
			continue
		}
		if err := s.schedule(task, prefs, now); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	var stale []int64
	for id := range s.regs {
		if _, ok := active[id]; !ok {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()
	for _, id := range stale {
		s.CancelTaskReminder(id)
	}

	return errors.Join(errs...)
}

// Pending returns the fire time of every reminder that has not fired yet.
func (s *ReminderScheduler) Pending() map[int64]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]time.Time, len(s.regs))
	for id, reg := range s.regs {
		if !reg.fired {
			out[id] = reg.at
		}
	}
	return out
}

func (s *ReminderScheduler) fire(taskID int64) {
	s.mu.Lock()
	if reg, ok := s.regs[taskID]; ok {
		reg.fired = true
		s.regs[taskID] = reg
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), alarmTimeout)
	defer cancel()

	if err := s.HandleAlarm(ctx, taskID); err != nil {
		s.logger.Error("failed to handle reminder", "task_id", taskID, "error", err)
	}
}

// HandleAlarm posts the reminder for taskID. A task that was deleted or
// completed in the meantime produces nothing.
func (s *ReminderScheduler) HandleAlarm(ctx context.Context, taskID int64) error {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil || task.IsCompleted {
		s.logger.Debug("reminder dropped", "task_id", taskID)
		return nil
	}
	return s.notifier.Notify(ctx, notify.NewReminder(task.ID, task.Title))
}

// TaskSaved implements ReminderHook.
func (s *ReminderScheduler) TaskSaved(ctx context.Context, task model.Task) {
	if err := s.ScheduleTaskReminder(ctx, task); err != nil {
		s.logger.Error("failed to schedule reminder", "task_id", task.ID, "error", err)
	}
}

// TaskDeleted implements ReminderHook.
func (s *ReminderScheduler) TaskDeleted(_ context.Context, taskID int64) {
	s.CancelTaskReminder(taskID)
}
