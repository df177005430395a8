package model

import (
	"fmt"
	"strings"
)

// Task represents a single to-do item.
type Task struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id" yaml:"id"`
	Title        string     `gorm:"not null" json:"title" yaml:"title"`
	Description  string     `json:"description" yaml:"description"`
	DueDate      Date       `gorm:"index;not null" json:"dueDate" yaml:"dueDate"`
	DueTime      *TimeOfDay `json:"dueTime" yaml:"dueTime"`
	Priority     Priority   `gorm:"not null" json:"priority" yaml:"priority"`
	Category     Category   `gorm:"index;not null" json:"category" yaml:"category"`
	IsCompleted  bool       `gorm:"index" json:"isCompleted" yaml:"isCompleted"`
	IsFavorite   bool       `json:"isFavorite" yaml:"isFavorite"`
	CreatedDate  Date       `json:"createdDate" yaml:"createdDate"`
	ModifiedDate Date       `json:"modifiedDate" yaml:"modifiedDate"`
}

// TableName keeps the table name stable regardless of gorm naming strategy.
func (Task) TableName() string {
	return "tasks"
}

// IsDue reports whether an active task is due today or overdue.
func (t Task) IsDue(today Date) bool {
	return !t.IsCompleted && !t.DueDate.After(today)
}

// IsDueToday reports whether an active task is due exactly today.
func (t Task) IsDueToday(today Date) bool {
	return !t.IsCompleted && t.DueDate == today
}

// MatchesQuery reports whether query occurs in the title or description,
// ignoring case. Folding is Unicode-aware. A blank query matches nothing.
func (t Task) MatchesQuery(query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// DisplayTime renders the due time on a 12-hour clock, or "" when unset.
func (t Task) DisplayTime() string {
	if t.DueTime == nil {
		return ""
	}
	return t.DueTime.Display()
}

// Priority is the urgency of a task. HIGH sorts first.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Priorities lists every priority in declaration order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority maps a stored or user-supplied name to a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := priorityRank[p]; !ok {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Rank is the sort key used by priority ordering.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Category groups tasks by area of life.
type Category string

const (
	CategoryPersonal Category = "PERSONAL"
	CategoryWork     Category = "WORK"
	CategoryShopping Category = "SHOPPING"
	CategoryHealth   Category = "HEALTH"
	CategoryOther    Category = "OTHER"
)

var categoryNames = map[Category]struct{}{
	CategoryPersonal: {},
	CategoryWork:     {},
	CategoryShopping: {},
	CategoryHealth:   {},
	CategoryOther:    {},
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{CategoryPersonal, CategoryWork, CategoryShopping, CategoryHealth, CategoryOther}
}

// ParseCategory maps a stored or user-supplied name to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := categoryNames[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
