package model

import "strings"

// ThemeMode selects the colour scheme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "LIGHT"
	ThemeDark   ThemeMode = "DARK"
	ThemeSystem ThemeMode = "SYSTEM"
)

// ParseThemeMode maps a stored name to a ThemeMode; anything unknown is SYSTEM.
func ParseThemeMode(s string) ThemeMode {
	switch ThemeMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeSystem
	}
}

// UserPreferences is the singleton settings record.
type UserPreferences struct {
	ThemeMode            ThemeMode
	SortByDueDate        bool
	NotificationsEnabled bool
	NotificationHour     int
	NotificationMinute   int
}

// DefaultPreferences is the record a fresh install starts with.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		ThemeMode:            ThemeSystem,
		SortByDueDate:        true,
		NotificationsEnabled: true,
		NotificationHour:     8,
		NotificationMinute:   0,
	}
}

// NotificationTime is the preferred reminder time for tasks without a due time.
func (p UserPreferences) NotificationTime() TimeOfDay {
	t, err := NewTimeOfDay(p.NotificationHour, p.NotificationMinute)
	if err != nil {
		return "08:00"
	}
	return t
}
