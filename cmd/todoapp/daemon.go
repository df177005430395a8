package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todoapp/internal/app"
	"todoapp/internal/live"
	"todoapp/internal/model"
)

func serveCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder daemon",
		Long: `Run the reminder daemon. It schedules a reminder for every active task,
picks up changes made by other todoapp processes and sends the daily digest
at the preferred notification time. Reminders are logged and, when
TELEGRAM_TOKEN and TELEGRAM_CHAT_ID are set, sent to the Telegram chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				if err := a.EnableTelegram(); err != nil {
					return fmt.Errorf("telegram: %w", err)
				}

				log.Println("todoapp daemon started.")
				if err := a.RunDaemon(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("daemon stopped with error: %w", err)
				}
				log.Println("Shutdown complete.")
				return nil
			})
		},
	}
}

func digestCmd(open opener) *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print today's summary of due and overdue tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				if send {
					if err := a.EnableTelegram(); err != nil {
						return fmt.Errorf("telegram: %w", err)
					}
					return a.Digest.SendDailySummary(ctx, a.Notifier, a.Now())
				}

				text, err := a.Digest.DailySummary(ctx, a.Now())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "Send the digest through the configured notifiers instead of printing it")
	return cmd
}

// watchCmd prints the selected list again every time it changes. Writes
// made by other processes are noticed on the next refresh tick.
func watchCmd(open opener) *cobra.Command {
	var (
		q        listQuery
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a task list and reprint it whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				sub, err := q.watch(ctx, a)
				if err != nil {
					return err
				}

				if interval > 0 {
					go func() {
						ticker := time.NewTicker(interval)
						defer ticker.Stop()
						for {
							select {
							case <-ticker.C:
								a.Refresh()
							case <-ctx.Done():
								return
							}
						}
					}()
				}

				out := cmd.OutOrStdout()
				for tasks := range sub.C() {
					p := themeOf(ctx, a)
					_, _ = fmt.Fprintln(out, p.muted.Render(a.Now().Format(time.TimeOnly)))
					renderTasks(out, p, tasks, model.DateOf(a.Now()))
					_, _ = fmt.Fprintln(out)
				}
				return sub.Err()
			})
		},
	}
	q.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "How often to check for changes made by other processes (0 disables)")
	return cmd
}

func (q listQuery) watch(ctx context.Context, a *app.App) (*live.Subscription[[]model.Task], error) {
	prefs, err := a.Preferences.Get(ctx)
	if err != nil {
		return nil, err
	}
	byDue, err := q.sortByDueDate(prefs)
	if err != nil {
		return nil, err
	}

	if q.search != "" {
		return a.Tasks.WatchSearch(ctx, q.search), nil
	}
	if q.category != "" {
		category, err := model.ParseCategory(q.category)
		if err != nil {
			return nil, err
		}
		return a.Tasks.WatchTasksByCategory(ctx, category), nil
	}
	if q.due != "" {
		date, err := parseDue(q.due, model.DateOf(a.Now()))
		if err != nil {
			return nil, err
		}
		return a.Tasks.WatchTasksByDueDate(ctx, date), nil
	}

	switch strings.ToLower(q.filter) {
	case "all":
		return a.Tasks.WatchAllTasks(ctx, byDue), nil
	case "completed":
		return a.Tasks.WatchCompletedTasks(ctx), nil
	case "favorites":
		return a.Tasks.WatchFavoriteTasks(ctx, byDue), nil
	default:
		return a.Tasks.WatchActiveTasks(ctx, byDue), nil
	}
}
