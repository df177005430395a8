package testutil

import (
	"context"
	"sync"
	"time"

	"todoapp/internal/live"
	"todoapp/internal/model"
	"todoapp/internal/notify"
)

// FakeAlarms records alarms instead of waiting for them. Fire runs one.
type FakeAlarms struct {
	mu      sync.Mutex
	at      map[int64]time.Time
	fns     map[int64]func()
	Exact   bool
	Err     error
	Cancels []int64
}

func NewFakeAlarms() *FakeAlarms {
	return &FakeAlarms{
		at:    make(map[int64]time.Time),
		fns:   make(map[int64]func()),
		Exact: true,
	}
}

func (f *FakeAlarms) ScheduleAt(key int64, at time.Time, fire func()) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at[key] = at
	f.fns[key] = fire
	return nil
}

func (f *FakeAlarms) Cancel(key int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.at, key)
	delete(f.fns, key)
	f.Cancels = append(f.Cancels, key)
}

func (f *FakeAlarms) CanScheduleExact() bool {
	return f.Exact
}

// At returns the registered fire time for key.
func (f *FakeAlarms) At(key int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.at[key]
	return at, ok
}

// Len reports how many alarms are registered.
func (f *FakeAlarms) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.at)
}

// Fire runs and removes the alarm for key. It reports whether one existed.
func (f *FakeAlarms) Fire(key int64) bool {
	f.mu.Lock()
	fn, ok := f.fns[key]
	delete(f.at, key)
	delete(f.fns, key)
	f.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// FakeNotifier records every notification.
type FakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	Err  error
}

func (f *FakeNotifier) Notify(_ context.Context, n notify.Notification) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *FakeNotifier) Sent() []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Notification, len(f.sent))
	copy(out, f.sent)
	return out
}

// FakePreferences holds the settings record in memory.
type FakePreferences struct {
	mu    sync.Mutex
	prefs model.UserPreferences
	hub   live.Hub

	GetErr error
}

func NewFakePreferences() *FakePreferences {
	return &FakePreferences{prefs: model.DefaultPreferences()}
}

// Set replaces the whole record.
func (f *FakePreferences) Set(prefs model.UserPreferences) {
	f.mu.Lock()
	f.prefs = prefs
	f.mu.Unlock()
	f.hub.Publish()
}

func (f *FakePreferences) update(apply func(*model.UserPreferences)) error {
	f.mu.Lock()
	apply(&f.prefs)
	f.mu.Unlock()
	f.hub.Publish()
	return nil
}

func (f *FakePreferences) Get(context.Context) (model.UserPreferences, error) {
	if f.GetErr != nil {
		return model.DefaultPreferences(), f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs, nil
}

func (f *FakePreferences) UpdateThemeMode(_ context.Context, mode model.ThemeMode) error {
	return f.update(func(p *model.UserPreferences) { p.ThemeMode = model.ParseThemeMode(string(mode)) })
}

func (f *FakePreferences) UpdateSortOrder(_ context.Context, sortByDueDate bool) error {
	return f.update(func(p *model.UserPreferences) { p.SortByDueDate = sortByDueDate })
}

func (f *FakePreferences) UpdateNotificationsEnabled(_ context.Context, enabled bool) error {
	return f.update(func(p *model.UserPreferences) { p.NotificationsEnabled = enabled })
}

func (f *FakePreferences) UpdateNotificationTime(_ context.Context, hour, minute int) error {
	if _, err := model.NewTimeOfDay(hour, minute); err != nil {
		return err
	}
	return f.update(func(p *model.UserPreferences) {
		p.NotificationHour = hour
		p.NotificationMinute = minute
	})
}

func (f *FakePreferences) Watch(ctx context.Context) *live.Subscription[model.UserPreferences] {
	return live.Watch(ctx, &f.hub, f.Get)
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
