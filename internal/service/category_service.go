package service

import (
	"context"

	"todoapp/internal/model"
)

// CategoryCount is the number of active tasks in one category.
type CategoryCount struct {
	Category model.Category
	Active   int
}

// CategoryService provides helpers around categories.
type CategoryService struct {
	tasks *TaskService
}

func NewCategoryService(tasks *TaskService) *CategoryService {
	return &CategoryService{tasks: tasks}
}

// List returns every category in declaration order with its active count.
func (s *CategoryService) List(ctx context.Context) ([]CategoryCount, error) {
	categories := model.Categories()
	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		tasks, err := s.tasks.GetTasksByCategory(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryCount{Category: c, Active: len(tasks)})
	}
	return out, nil
}
