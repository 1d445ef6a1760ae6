package repository

import (
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// TaskFilter narrows task listings. Zero values match everything.
type TaskFilter struct {
	EquipmentID uint
	Statuses    []model.TaskStatus
	// OpenOnly excludes completed tasks.
	OpenOnly bool
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return translate("create task", r.db.WithContext(ctx).Create(task).Error)
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate("get task", err)
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx)
	if filter.EquipmentID != 0 {
		q = q.Where("equipment_id = ?", filter.EquipmentID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.OpenOnly {
		q = q.Where("status <> ?", model.StatusCompleted)
	}
	err := q.Order("next_due_date IS NULL, next_due_date ASC, next_due_usage_value IS NULL, next_due_usage_value ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, translate("list tasks", err)
	}
	return tasks, nil
}

// UpdateColumns writes only the named columns of task, matched by task.ID.
// A named column whose field is nil is set to NULL.
func (r *TaskRepository) UpdateColumns(ctx context.Context, task *model.Task, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	return translate("update task", r.db.WithContext(ctx).Model(task).Select(append(slices.Clone(columns), "updated_at")).Updates(task).Error)
}

// Delete removes a task; its maintenance logs cascade.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).Delete(&model.Task{}, id), "delete task")
}

// DistinctTypes lists the task types in use.
func (r *TaskRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("task_type <> ''").Distinct().Order("task_type ASC").Pluck("task_type", &types).Error
	if err != nil {
		return nil, translate("list task types", err)
	}
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}
	return types, nil
}
