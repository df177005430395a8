package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"todoapp/internal/live"
	"todoapp/internal/model"
)

const (
	prefsBucket = "user_preferences"

	keyThemeMode            = "theme_mode"
	keySortByDueDate        = "sort_by_due_date"
	keyNotificationsEnabled = "notifications_enabled"
	keyNotificationHour     = "notification_hour"
	keyNotificationMinute   = "notification_minute"
)

// PreferencesRepository persists the settings record as key/value pairs.
// Missing keys read as their defaults. The file is opened per operation so
// the CLI and the reminder daemon can share it.
type PreferencesRepository struct {
	path string
	mu   sync.Mutex
	hub  live.Hub
}

// OpenPreferences creates the preferences file at path if needed.
func OpenPreferences(path string) (*PreferencesRepository, error) {
	if path == "" {
		path = "todoapp_prefs.db"
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create preferences dir %q: %w", dir, err)
		}
	}

	r := &PreferencesRepository{path: path}
	if err := r.update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(prefsBucket))
		return err
	}); err != nil {
		return nil, fmt.Errorf("init preferences: %w", err)
	}
	return r, nil
}

func (r *PreferencesRepository) open(readOnly bool) (*bbolt.DB, error) {
	db, err := bbolt.Open(r.path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	return db, nil
}

func (r *PreferencesRepository) view(fn func(*bbolt.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (r *PreferencesRepository) update(fn func(*bbolt.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(false)
	if err != nil {
		return err
	}
	if err := db.Update(fn); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

// Get reads the current settings record.
func (r *PreferencesRepository) Get(ctx context.Context) (model.UserPreferences, error) {
	prefs := model.DefaultPreferences()
	if err := ctx.Err(); err != nil {
		return prefs, err
	}

	err := r.view(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(prefsBucket))
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(keyThemeMode)); v != nil {
			prefs.ThemeMode = model.ParseThemeMode(string(v))
		}
		if v := b.Get([]byte(keySortByDueDate)); v != nil {
			if parsed, err := strconv.ParseBool(string(v)); err == nil {
				prefs.SortByDueDate = parsed
			}
		}
		if v := b.Get([]byte(keyNotificationsEnabled)); v != nil {
			if parsed, err := strconv.ParseBool(string(v)); err == nil {
				prefs.NotificationsEnabled = parsed
			}
		}
		if v := b.Get([]byte(keyNotificationHour)); v != nil {
			if parsed, err := strconv.Atoi(string(v)); err == nil {
				prefs.NotificationHour = parsed
			}
		}
		if v := b.Get([]byte(keyNotificationMinute)); v != nil {
			if parsed, err := strconv.Atoi(string(v)); err == nil {
				prefs.NotificationMinute = parsed
			}
		}
		return nil
	})
	if err != nil {
		return model.DefaultPreferences(), fmt.Errorf("read preferences: %w", err)
	}
	return prefs, nil
}

func (r *PreferencesRepository) put(ctx context.Context, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(prefsBucket))
		if err != nil {
			return err
		}
		for k, v := range values {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	r.hub.Publish()
	return nil
}

func (r *PreferencesRepository) UpdateThemeMode(ctx context.Context, mode model.ThemeMode) error {
	return r.put(ctx, map[string]string{keyThemeMode: string(model.ParseThemeMode(string(mode)))})
}

func (r *PreferencesRepository) UpdateSortOrder(ctx context.Context, sortByDueDate bool) error {
	return r.put(ctx, map[string]string{keySortByDueDate: strconv.FormatBool(sortByDueDate)})
}

func (r *PreferencesRepository) UpdateNotificationsEnabled(ctx context.Context, enabled bool) error {
	return r.put(ctx, map[string]string{keyNotificationsEnabled: strconv.FormatBool(enabled)})
}

// UpdateNotificationTime stores hour and minute together.
func (r *PreferencesRepository) UpdateNotificationTime(ctx context.Context, hour, minute int) error {
	if _, err := model.NewTimeOfDay(hour, minute); err != nil {
		return err
	}
	return r.put(ctx, map[string]string{
		keyNotificationHour:   strconv.Itoa(hour),
		keyNotificationMinute: strconv.Itoa(minute),
	})
}

// Watch streams the settings record, re-emitting after each change.
func (r *PreferencesRepository) Watch(ctx context.Context) *live.Subscription[model.UserPreferences] {
	return live.Watch(ctx, &r.hub, r.Get)
}
