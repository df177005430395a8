package service

import (
	"context"

	"todoapp/internal/live"
	"todoapp/internal/model"
)

// PreferencesStore is the settings record as the services see it.
type PreferencesStore interface {
	Get(ctx context.Context) (model.UserPreferences, error)
	UpdateThemeMode(ctx context.Context, mode model.ThemeMode) error
	UpdateSortOrder(ctx context.Context, sortByDueDate bool) error
	UpdateNotificationsEnabled(ctx context.Context, enabled bool) error
	UpdateNotificationTime(ctx context.Context, hour, minute int) error
	Watch(ctx context.Context) *live.Subscription[model.UserPreferences]
}

// PreferencesService applies settings changes and keeps reminders in step
// with the notification settings.
type PreferencesService struct {
	store  PreferencesStore
	resync func(ctx context.Context) error
}

func NewPreferencesService(store PreferencesStore) *PreferencesService {
	return &PreferencesService{store: store}
}

// OnNotificationChange installs the callback run after the notification
// switch or time changes.
func (s *PreferencesService) OnNotificationChange(resync func(ctx context.Context) error) {
	s.resync = resync
}

func (s *PreferencesService) Get(ctx context.Context) (model.UserPreferences, error) {
	return s.store.Get(ctx)
}

func (s *PreferencesService) Watch(ctx context.Context) *live.Subscription[model.UserPreferences] {
	return s.store.Watch(ctx)
}

func (s *PreferencesService) SetThemeMode(ctx context.Context, mode model.ThemeMode) error {
	return s.store.UpdateThemeMode(ctx, mode)
}

func (s *PreferencesService) SetSortByDueDate(ctx context.Context, sortByDueDate bool) error {
	return s.store.UpdateSortOrder(ctx, sortByDueDate)
}

func (s *PreferencesService) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.UpdateNotificationsEnabled(ctx, enabled); err != nil {
		return err
	}
	return s.notificationsChanged(ctx)
}

// SetNotificationTime stores the preferred reminder time for tasks without
// a due time.
func (s *PreferencesService) SetNotificationTime(ctx context.Context, t model.TimeOfDay) error {
	parsed, err := model.ParseTimeOfDay(string(t))
	if err != nil {
		return &ValidationError{Field: "notificationTime", Message: err.Error()}
	}
	hour, minute := parsed.Clock()
	if err := s.store.UpdateNotificationTime(ctx, hour, minute); err != nil {
		return err
	}
	return s.notificationsChanged(ctx)
}

func (s *PreferencesService) notificationsChanged(ctx context.Context) error {
	if s.resync == nil {
		return nil
	}
	return s.resync(ctx)
}
