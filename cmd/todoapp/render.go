package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"todoapp/internal/model"
	"todoapp/internal/service"
)

// palette holds the styles for one theme mode.
type palette struct {
	header    lipgloss.Style
	high      lipgloss.Style
	overdue   lipgloss.Style
	completed lipgloss.Style
	favorite  lipgloss.Style
	muted     lipgloss.Style
}

func newPalette(mode model.ThemeMode) palette {
	pick := func(light, dark string) lipgloss.TerminalColor {
		switch mode {
		case model.ThemeLight:
			return lipgloss.Color(light)
		case model.ThemeDark:
			return lipgloss.Color(dark)
		default:
			return lipgloss.AdaptiveColor{Light: light, Dark: dark}
		}
	}

	return palette{
		header:    lipgloss.NewStyle().Bold(true).Foreground(pick("4", "12")),
		high:      lipgloss.NewStyle().Foreground(pick("1", "9")),
		overdue:   lipgloss.NewStyle().Bold(true).Foreground(pick("1", "9")),
		completed: lipgloss.NewStyle().Foreground(pick("7", "8")).Strikethrough(true),
		favorite:  lipgloss.NewStyle().Foreground(pick("3", "11")),
		muted:     lipgloss.NewStyle().Foreground(pick("7", "8")),
	}
}

func (p palette) row(task model.Task, today model.Date) lipgloss.Style {
	switch {
	case task.IsCompleted:
		return p.completed
	case task.IsDue(today) && !task.IsDueToday(today):
		return p.overdue
	case task.Priority == model.PriorityHigh:
		return p.high
	case task.IsFavorite:
		return p.favorite
	default:
		return lipgloss.NewStyle()
	}
}

func due(task model.Task) string {
	if task.DueTime == nil {
		return task.DueDate.String()
	}
	return task.DueDate.String() + " " + task.DisplayTime()
}

func flags(task model.Task) string {
	var b strings.Builder
	if task.IsCompleted {
		b.WriteString("✓")
	}
	if task.IsFavorite {
		b.WriteString("★")
	}
	return b.String()
}

// renderTasks writes tasks as an aligned table. Styling is applied per line
// after alignment so escape codes do not skew the columns.
func renderTasks(w io.Writer, p palette, tasks []model.Task, today model.Date) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, p.muted.Render("No tasks."))
		return
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tDUE\tPRIORITY\tCATEGORY\t")
	for _, task := range tasks {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			task.ID, task.Title, due(task), task.Priority, task.Category, flags(task))
	}
	_ = tw.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	_, _ = fmt.Fprintln(w, p.header.Render(strings.TrimRight(lines[0], " ")))
	for i, line := range lines[1:] {
		_, _ = fmt.Fprintln(w, p.row(tasks[i], today).Render(strings.TrimRight(line, " ")))
	}
}

func renderTask(w io.Writer, p palette, task model.Task, today model.Date) {
	status := "active"
	if task.IsCompleted {
		status = "completed"
	} else if task.IsDueToday(today) {
		status = "due today"
	} else if task.IsDue(today) {
		status = p.overdue.Render("overdue")
	}

	_, _ = fmt.Fprintln(w, p.header.Render(fmt.Sprintf("#%d %s", task.ID, task.Title)))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Status:\t%s\n", status)
	_, _ = fmt.Fprintf(tw, "Due:\t%s\n", due(task))
	_, _ = fmt.Fprintf(tw, "Priority:\t%s\n", task.Priority)
	_, _ = fmt.Fprintf(tw, "Category:\t%s\n", task.Category)
	_, _ = fmt.Fprintf(tw, "Favorite:\t%t\n", task.IsFavorite)
	_, _ = fmt.Fprintf(tw, "Created:\t%s\n", task.CreatedDate)
	_, _ = fmt.Fprintf(tw, "Modified:\t%s\n", task.ModifiedDate)
	_ = tw.Flush()
	if task.Description != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, task.Description)
	}
}

func renderCategories(w io.Writer, p palette, counts []service.CategoryCount) {
	_, _ = fmt.Fprintln(w, p.header.Render("CATEGORY    ACTIVE"))
	tw := tabwriter.NewWriter(w, 12, 0, 0, ' ', 0)
	for _, c := range counts {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", c.Category, c.Active)
	}
	_ = tw.Flush()
}

func renderPreferences(w io.Writer, prefs model.UserPreferences) {
	sortOrder := "priority"
	if prefs.SortByDueDate {
		sortOrder = "due"
	}
	notifications := "off"
	if prefs.NotificationsEnabled {
		notifications = "on"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "theme\t%s\n", prefs.ThemeMode)
	_, _ = fmt.Fprintf(tw, "sort\t%s\n", sortOrder)
	_, _ = fmt.Fprintf(tw, "notifications\t%s\n", notifications)
	_, _ = fmt.Fprintf(tw, "time\t%s\n", prefs.NotificationTime())
	_ = tw.Flush()
}
