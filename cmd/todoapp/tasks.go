package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"todoapp/internal/app"
	"todoapp/internal/model"
	"todoapp/internal/service"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// parseDue accepts YYYY-MM-DD, "today" or "tomorrow".
func parseDue(s string, today model.Date) (model.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	return model.ParseDate(s)
}

func themeOf(ctx context.Context, a *app.App) palette {
	prefs, err := a.Preferences.Get(ctx)
	if err != nil {
		return newPalette(model.ThemeSystem)
	}
	return newPalette(prefs.ThemeMode)
}

func findTask(ctx context.Context, a *app.App, id int64) (*model.Task, error) {
	task, err := a.Tasks.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %d not found", id)
	}
	return task, nil
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("desc", "d", "", "Description")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().String("at", "", "Due time (HH:MM)")
	cmd.Flags().StringP("priority", "p", "", "Priority (low, medium, high)")
	cmd.Flags().StringP("category", "c", "", "Category (personal, work, shopping, health, other)")
	cmd.Flags().Bool("fav", false, "Mark as favorite")
}

// applyTaskFlags overwrites input with every flag the user set.
func applyTaskFlags(cmd *cobra.Command, input *service.TaskInput, today model.Date) error {
	fs := cmd.Flags()
	if fs.Changed("desc") {
		input.Description, _ = fs.GetString("desc")
	}
	if fs.Changed("due") {
		raw, _ := fs.GetString("due")
		date, err := parseDue(raw, today)
		if err != nil {
			return err
		}
		input.DueDate = date
	}
	if fs.Changed("at") {
		raw, _ := fs.GetString("at")
		if strings.TrimSpace(raw) == "" {
			input.DueTime = nil
		} else {
			t := model.TimeOfDay(strings.TrimSpace(raw))
			input.DueTime = &t
		}
	}
	if fs.Changed("priority") {
		raw, _ := fs.GetString("priority")
		input.Priority = model.Priority(raw)
	}
	if fs.Changed("category") {
		raw, _ := fs.GetString("category")
		input.Category = model.Category(raw)
	}
	if fs.Changed("fav") {
		input.IsFavorite, _ = fs.GetBool("fav")
	}
	return nil
}

func addCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				input := service.TaskInput{Title: strings.Join(args, " ")}
				if err := applyTaskFlags(cmd, &input, model.DateOf(a.Now())); err != nil {
					return err
				}

				task, err := a.Tasks.AddTask(ctx, input)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added task %d: %s (due %s)\n", task.ID, task.Title, due(*task))
				return nil
			})
		},
	}
	addTaskFlags(cmd)
	return cmd
}

func editCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change the fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				existing, err := findTask(ctx, a, id)
				if err != nil {
					return err
				}

				input := service.TaskInput{
					Title:       existing.Title,
					Description: existing.Description,
					DueDate:     existing.DueDate,
					DueTime:     existing.DueTime,
					Priority:    existing.Priority,
					Category:    existing.Category,
					IsFavorite:  existing.IsFavorite,
				}
				if cmd.Flags().Changed("title") {
					input.Title, _ = cmd.Flags().GetString("title")
				}
				if err := applyTaskFlags(cmd, &input, model.DateOf(a.Now())); err != nil {
					return err
				}

				task, err := a.Tasks.UpdateTask(ctx, id, input)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d: %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringP("title", "t", "", "New title")
	addTaskFlags(cmd)
	return cmd
}

func showCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				task, err := findTask(ctx, a, id)
				if err != nil {
					return err
				}
				renderTask(cmd.OutOrStdout(), themeOf(ctx, a), *task, model.DateOf(a.Now()))
				return nil
			})
		},
	}
}

// listQuery is the task selection shared by list and watch.
type listQuery struct {
	filter   string
	category string
	due      string
	search   string
	sort     string
}

func (q *listQuery) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.filter, "filter", "f", "active", "Which tasks: active, all, completed, favorites")
	cmd.Flags().StringVarP(&q.category, "category", "c", "", "Only active tasks in this category")
	cmd.Flags().StringVarP(&q.search, "search", "s", "", "Only active tasks whose title or description contains this text")
	cmd.Flags().StringVar(&q.due, "due", "", "Only active tasks due on this date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVar(&q.sort, "sort", "", "Sort order: due or priority (default from settings)")
}

// sortByDueDate resolves the --sort flag against the stored preference.
func (q listQuery) sortByDueDate(prefs model.UserPreferences) (bool, error) {
	switch strings.ToLower(q.sort) {
	case "":
		return prefs.SortByDueDate, nil
	case "due":
		return true, nil
	case "priority":
		return false, nil
	default:
		return false, fmt.Errorf("unknown sort order %q (want due or priority)", q.sort)
	}
}

func (q listQuery) validate() error {
	switch strings.ToLower(q.filter) {
	case "active", "all", "completed", "favorites":
		return nil
	default:
		return fmt.Errorf("unknown filter %q (want active, all, completed or favorites)", q.filter)
	}
}

func (q listQuery) load(ctx context.Context, a *app.App) ([]model.Task, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	prefs, err := a.Preferences.Get(ctx)
	if err != nil {
		return nil, err
	}
	byDue, err := q.sortByDueDate(prefs)
	if err != nil {
		return nil, err
	}

	if q.search != "" {
		return a.Tasks.SearchTasks(ctx, q.search)
	}
	if q.category != "" {
		category, err := model.ParseCategory(q.category)
		if err != nil {
			return nil, err
		}
		return a.Tasks.GetTasksByCategory(ctx, category)
	}
	if q.due != "" {
		date, err := parseDue(q.due, model.DateOf(a.Now()))
		if err != nil {
			return nil, err
		}
		return a.Tasks.GetTasksByDueDate(ctx, date)
	}

	switch strings.ToLower(q.filter) {
	case "all":
		return a.Tasks.GetAllTasks(ctx, byDue)
	case "completed":
		return a.Tasks.GetCompletedTasks(ctx)
	case "favorites":
		return a.Tasks.GetFavoriteTasks(ctx, byDue)
	default:
		return a.Tasks.GetActiveTasks(ctx, byDue)
	}
}

func listCmd(open opener) *cobra.Command {
	var q listQuery
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				tasks, err := q.load(ctx, a)
				if err != nil {
					return err
				}
				renderTasks(cmd.OutOrStdout(), themeOf(ctx, a), tasks, model.DateOf(a.Now()))
				return nil
			})
		},
	}
	q.register(cmd)
	return cmd
}

func searchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search active tasks by title or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				tasks, err := a.Tasks.SearchTasks(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				renderTasks(cmd.OutOrStdout(), themeOf(ctx, a), tasks, model.DateOf(a.Now()))
				return nil
			})
		},
	}
}

func doneCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				if _, err := findTask(ctx, a, id); err != nil {
					return err
				}
				if err := a.Tasks.ToggleTaskCompletion(ctx, id); err != nil {
					return err
				}
				task, err := findTask(ctx, a, id)
				if err != nil {
					return err
				}
				state := "reopened"
				if task.IsCompleted {
					state = "completed"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %d %s.\n", id, state)
				return nil
			})
		},
	}
}

func favCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "fav [id]",
		Short: "Toggle the favorite flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				if _, err := findTask(ctx, a, id); err != nil {
					return err
				}
				if err := a.Tasks.ToggleTaskFavorite(ctx, id); err != nil {
					return err
				}
				task, err := findTask(ctx, a, id)
				if err != nil {
					return err
				}
				state := "removed from favorites"
				if task.IsFavorite {
					state = "added to favorites"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %d %s.\n", id, state)
				return nil
			})
		},
	}
}

func rmCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				task, err := findTask(ctx, a, id)
				if err != nil {
					return err
				}
				if err := a.Tasks.DeleteTask(ctx, *task); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d: %s\n", id, task.Title)
				return nil
			})
		},
	}
}

func purgeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				n, err := a.Tasks.DeleteAllCompletedTasks(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed tasks.\n", n)
				return nil
			})
		},
	}
}

func categoriesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show active task counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(open, func(a *app.App) error {
				ctx := cmd.Context()
				counts, err := a.Categories.List(ctx)
				if err != nil {
					return err
				}
				renderCategories(cmd.OutOrStdout(), themeOf(ctx, a), counts)
				return nil
			})
		},
	}
}
