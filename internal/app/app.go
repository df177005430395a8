// Package app is the composition root: it builds the stores, services and
// reminder machinery from a Config and runs the reminder daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"todoapp/internal/config"
	"todoapp/internal/model"
	"todoapp/internal/notify"
	"todoapp/internal/repository"
	"todoapp/internal/service"
)

const jobTimeout = 30 * time.Second

// App holds every wired component.
type App struct {
	Config      config.Config
	Tasks       *service.TaskService
	Preferences *service.PreferencesService
	Categories  *service.CategoryService
	Transfer    *service.TransferService
	Digest      *service.DigestService
	Reminders   *service.ReminderScheduler
	Scheduler   *service.SchedulerService
	Notifier    notify.Notifier

	db         *gorm.DB
	taskRepo   *repository.TaskRepository
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
	now        func() time.Time

	digestMu    sync.Mutex
	digestAt    model.TimeOfDay
	digestEntry cron.EntryID
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock replaces the wall clock used for dates and reminder times.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithNotifier sends reminders and digests to n instead of the dispatcher.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.Notifier = n }
}

// New opens the stores named by cfg and wires the services.
func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if a.now == nil {
		a.now = func() time.Time { return time.Now().In(loc) }
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	prefsRepo, err := repository.OpenPreferences(cfg.PreferencesPath)
	if err != nil {
		_ = repository.CloseDB(db)
		return nil, fmt.Errorf("preferences: %w", err)
	}
	a.db = db

	a.dispatcher = notify.NewDispatcher(a.logger, notify.NewLog(a.logger))
	if a.Notifier == nil {
		a.Notifier = a.dispatcher
	}

	a.taskRepo = repository.NewTaskRepository(db)
	a.Tasks = service.NewTaskService(a.taskRepo, a.now)
	a.Preferences = service.NewPreferencesService(prefsRepo)
	a.Categories = service.NewCategoryService(a.Tasks)
	a.Transfer = service.NewTransferService(a.Tasks, a.now)
	a.Digest = service.NewDigestService(a.Tasks)
	a.Scheduler = service.NewSchedulerService(loc)
	a.Reminders = service.NewReminderScheduler(a.Tasks, prefsRepo, a.Scheduler, a.Notifier, a.now).
		WithLogger(a.logger)

	return a, nil
}

// EnableTelegram adds the Telegram sink when a bot token is configured.
func (a *App) EnableTelegram() error {
	if !a.Config.TelegramEnabled() {
		return nil
	}
	sender, err := notify.NewTelegram(a.Config.TelegramToken, a.Config.TelegramChatID)
	if err != nil {
		return err
	}
	a.dispatcher.Register(sender)
	return nil
}

// Now is the clock the services use.
func (a *App) Now() time.Time {
	return a.now()
}

// Refresh re-runs every live task query so that writes committed by other
// processes reach local subscribers.
func (a *App) Refresh() {
	a.taskRepo.Refresh()
}

func (a *App) Close() error {
	return repository.CloseDB(a.db)
}

// RunDaemon registers reminders for every active task, keeps them in step
// with the store and sends the daily digest until ctx is done.
func (a *App) RunDaemon(ctx context.Context) error {
	a.Tasks.SetReminderHook(a.Reminders)
	a.Preferences.OnNotificationChange(a.Reminders.Sync)

	if err := a.Reminders.ScheduleAllTaskReminders(ctx); err != nil {
		a.logger.Error("boot reminder pass failed", "error", err)
	}
	if err := a.syncDigest(ctx); err != nil {
		a.logger.Error("failed to schedule daily digest", "error", err)
	}

	if _, err := a.Scheduler.ScheduleInterval(a.Config.ReminderSyncInterval, a.syncTick); err != nil {
		return fmt.Errorf("schedule reminder sync: %w", err)
	}

	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	a.logger.Info("reminder daemon running",
		"pending", len(a.Reminders.Pending()), "sync_interval", a.Config.ReminderSyncInterval)
	<-ctx.Done()
	return nil
}

func (a *App) syncTick() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := a.Reminders.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("reminder sync failed", "error", err)
	}
	if err := a.syncDigest(ctx); err != nil {
		a.logger.Error("failed to schedule daily digest", "error", err)
	}
}

// syncDigest keeps the daily digest job at the preferred notification time,
// or removes it while notifications are off.
func (a *App) syncDigest(ctx context.Context) error {
	prefs, err := a.Preferences.Get(ctx)
	if err != nil {
		return err
	}
	var want model.TimeOfDay
	if prefs.NotificationsEnabled {
		want = prefs.NotificationTime()
	}

	a.digestMu.Lock()
	defer a.digestMu.Unlock()

	if want == a.digestAt {
		return nil
	}
	if a.digestEntry != 0 {
		a.Scheduler.Remove(a.digestEntry)
		a.digestEntry = 0
	}
	a.digestAt = ""
	if want == "" {
		return nil
	}

	id, err := a.Scheduler.ScheduleDaily(string(want), a.sendDigest)
	if err != nil {
		return err
	}
	a.digestEntry = id
	a.digestAt = want
	a.logger.Debug("daily digest scheduled", "at", want)
	return nil
}

func (a *App) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := a.Digest.SendDailySummary(ctx, a.Notifier, a.now()); err != nil {
		a.logger.Error("failed to send daily digest", "error", err)
	}
}
