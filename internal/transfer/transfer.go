// Package transfer reads and writes the task list as a portable file:
// pretty-printed JSON by default, YAML for .yaml and .yml paths.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"todoapp/internal/model"
)

// ErrMalformed is returned when an import file cannot be parsed into tasks.
var ErrMalformed = errors.New("malformed task file")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes tasks as an array of task records.
func Encode(w io.Writer, tasks []model.Task, format Format) error {
	if tasks == nil {
		tasks = []model.Task{}
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tasks); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}
}

// record mirrors model.Task with every field optional.
type record struct {
	ID           *int64  `json:"id" yaml:"id"`
	Title        *string `json:"title" yaml:"title"`
	Description  *string `json:"description" yaml:"description"`
	DueDate      *string `json:"dueDate" yaml:"dueDate"`
	DueTime      *string `json:"dueTime" yaml:"dueTime"`
	Priority     *string `json:"priority" yaml:"priority"`
	Category     *string `json:"category" yaml:"category"`
	IsCompleted  *bool   `json:"isCompleted" yaml:"isCompleted"`
	IsFavorite   *bool   `json:"isFavorite" yaml:"isFavorite"`
	CreatedDate  *string `json:"createdDate" yaml:"createdDate"`
	ModifiedDate *string `json:"modifiedDate" yaml:"modifiedDate"`
}

// Decode parses a task file. Unknown fields are ignored and missing ones take
// defaults, with today standing in for missing dates. Any parse failure
// yields an empty result and an error wrapping ErrMalformed.
func Decode(r io.Reader, format Format, today model.Date) ([]model.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return []model.Task{}, fmt.Errorf("read task file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Task{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var records []record
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return []model.Task{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	tasks := make([]model.Task, 0, len(records))
	for i, rec := range records {
		task, err := rec.toTask(today)
		if err != nil {
			return []model.Task{}, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (rec record) toTask(today model.Date) (model.Task, error) {
	task := model.Task{
		Priority:     model.PriorityMedium,
		Category:     model.CategoryPersonal,
		DueDate:      today,
		CreatedDate:  today,
		ModifiedDate: today,
	}

	if rec.ID != nil {
		if *rec.ID < 0 {
			return task, fmt.Errorf("negative id %d", *rec.ID)
		}
		task.ID = *rec.ID
	}
	if rec.Title != nil {
		task.Title = *rec.Title
	}
	if rec.Description != nil {
		task.Description = *rec.Description
	}
	if rec.IsCompleted != nil {
		task.IsCompleted = *rec.IsCompleted
	}
	if rec.IsFavorite != nil {
		task.IsFavorite = *rec.IsFavorite
	}

	var err error
	if rec.Priority != nil {
		if task.Priority, err = model.ParsePriority(*rec.Priority); err != nil {
			return task, err
		}
	}
	if rec.Category != nil {
		if task.Category, err = model.ParseCategory(*rec.Category); err != nil {
			return task, err
		}
	}
	if rec.DueTime != nil {
		tod, err := model.ParseTimeOfDay(*rec.DueTime)
		if err != nil {
			return task, err
		}
		task.DueTime = &tod
	}

	for _, f := range []struct {
		src *string
		dst *model.Date
	}{
		{rec.DueDate, &task.DueDate},
		{rec.CreatedDate, &task.CreatedDate},
		{rec.ModifiedDate, &task.ModifiedDate},
	} {
		if f.src == nil {
			continue
		}
		if *f.dst, err = model.ParseDate(*f.src); err != nil {
			return task, err
		}
	}

	return task, nil
}
