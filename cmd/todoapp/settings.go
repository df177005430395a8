package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todoapp/internal/app"
	"todoapp/internal/model"
)

func settingsCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				prefs, err := a.Preferences.Get(cmd.Context())
				if err != nil {
					return err
				}
				renderPreferences(cmd.OutOrStdout(), prefs)
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     "Set the colour scheme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"light", "dark", "system"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := model.ThemeMode(strings.ToUpper(strings.TrimSpace(args[0])))
			if model.ParseThemeMode(string(mode)) != mode {
				return fmt.Errorf("unknown theme %q (want light, dark or system)", args[0])
			}
			return withApp(open, func(a *app.App) error {
				if err := a.Preferences.SetThemeMode(cmd.Context(), mode); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s.\n", mode)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "sort [due|priority]",
		Short:     "Set the default list order",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"due", "priority"},
		RunE: func(cmd *cobra.Command, args []string) error {
			byDue, err := listQuery{sort: args[0]}.sortByDueDate(model.DefaultPreferences())
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				if err := a.Preferences.SetSortByDueDate(cmd.Context(), byDue); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Lists now sort by %s.\n", strings.ToLower(args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "notifications [on|off]",
		Short:     "Turn task reminders on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("want on or off, got %q", args[0])
			}
			return withApp(open, func(a *app.App) error {
				if err := a.Preferences.SetNotificationsEnabled(cmd.Context(), enabled); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Notifications %s.\n", strings.ToLower(args[0]))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "time [HH:MM]",
		Short: "Set the reminder time for tasks without a due time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				if err := a.Preferences.SetNotificationTime(cmd.Context(), model.TimeOfDay(args[0])); err != nil {
					return err
				}
				prefs, err := a.Preferences.Get(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reminders without a due time fire at %s.\n", prefs.NotificationTime())
				return nil
			})
		},
	})

	return cmd
}
