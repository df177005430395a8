package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapp/internal/model"
	"todoapp/internal/testutil"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestPreferencesService_NotificationChangesResync(t *testing.T) {
	store := testutil.NewFakePreferences()
	svc := NewPreferencesService(store)
	ctx := context.Background()

	calls := 0
	svc.OnNotificationChange(func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, svc.SetThemeMode(ctx, model.ThemeDark))
	require.NoError(t, svc.SetSortByDueDate(ctx, false))
	assert.Zero(t, calls)

	require.NoError(t, svc.SetNotificationsEnabled(ctx, false))
	require.NoError(t, svc.SetNotificationTime(ctx, "21:15"))
	assert.Equal(t, 2, calls)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.UserPreferences{
		ThemeMode:            model.ThemeDark,
		SortByDueDate:        false,
		NotificationsEnabled: false,
		NotificationHour:     21,
		NotificationMinute:   15,
	}, got)
}

func TestPreferencesService_RejectsBadTime(t *testing.T) {
	svc := NewPreferencesService(testutil.NewFakePreferences())

	err := svc.SetNotificationTime(context.Background(), "7pm")
	require.ErrorIs(t, err, ErrInvalidTask)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "notificationTime", verr.Field)
}

func TestPreferencesService_DisablingCancelsReminders(t *testing.T) {
	f := setupReminders(t)
	ctx := context.Background()
	svc := NewPreferencesService(f.prefs)
	svc.OnNotificationChange(f.scheduler.Sync)

	f.store.Seed(reminderTask("a", "2026-10-18", nil))
	require.NoError(t, f.scheduler.ScheduleAllTaskReminders(ctx))
	require.Equal(t, 1, f.alarms.Len())

	require.NoError(t, svc.SetNotificationsEnabled(ctx, false))
	assert.Zero(t, f.alarms.Len())

	require.NoError(t, svc.SetNotificationsEnabled(ctx, true))
	assert.Equal(t, 1, f.alarms.Len())
}
