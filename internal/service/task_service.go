package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
)

// TaskView is a task with the equipment context needed to judge due-ness.
type TaskView struct {
	model.Task
	EquipmentName string   `json:"equipment_name"`
	UsageUnit     string   `json:"usage_unit,omitempty"`
	CurrentUsage  float64  `json:"current_usage_value"`
	DueState      DueState `json:"due_state"`
}

// DueReport splits open tasks into overdue and upcoming.
type DueReport struct {
	Today      model.Date `json:"today"`
	WindowDays int        `json:"window_days"`
	Overdue    []TaskView `json:"overdue"`
	Upcoming   []TaskView `json:"upcoming"`
}

// TaskQuery narrows ListTasks. Status may be pending, overdue or completed;
// pending and overdue are derived, not read from the stored status.
type TaskQuery struct {
	EquipmentID uint
	Status      string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store      *repository.Store
	locks      *TaskLocks
	windowDays int
	now        func() time.Time
	logger     *zap.Logger
}

// NewTaskService builds the service. locks must be the instance shared with
// the MaintenanceService over the same store.
func NewTaskService(store *repository.Store, locks *TaskLocks, windowDays int, logger *zap.Logger) *TaskService {
	return &TaskService{store: store, locks: locks, windowDays: windowDays, now: time.Now, logger: logger}
}

func (s *TaskService) today() model.Date { return model.DateOf(s.now()) }

// WindowDays is the default upcoming lookahead.
func (s *TaskService) WindowDays() int { return s.windowDays }

// CreateTask stores a new task. A time interval yields a first due date
// counted from today; a pure usage task has no due point until its first
// completion unless one is given.
func (s *TaskService) CreateTask(ctx context.Context, input model.CreateTask) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, apperr.InvalidArguments("create task", "%v", err)
	}
	if _, err := s.store.Equipment.GetByID(ctx, input.EquipmentID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("create task", "equipment %d not found", input.EquipmentID)
		}
		return nil, err
	}

	task := model.Task{
		EquipmentID:       input.EquipmentID,
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		TaskType:          input.TaskType,
		UsageInterval:     input.UsageInterval,
		TimeIntervalDays:  input.TimeIntervalDays,
		NextDueUsageValue: input.NextDueUsageValue,
		NextDueDate:       InitialDueDate(s.today(), input.TimeIntervalDays),
		Priority:          input.Priority,
		Status:            model.StatusPending,
	}
	if input.NextDueDate != nil {
		d := input.NextDueDate.Time()
		task.NextDueDate = &d
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}

	if err := s.store.Tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", zap.Uint("task_id", task.ID), zap.Uint("equipment_id", task.EquipmentID))
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.store.Tasks.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("get task", "task %d not found", id)
	}
	return task, err
}

// UpdateTask applies a patch. Changing an interval without an explicit due
// value re-derives the due point from the last completion. It holds the
// task's lock, so it never interleaves with a completion of the same task,
// and writes only the columns it changed.
func (s *TaskService) UpdateTask(ctx context.Context, id uint, patch model.TaskPatch) (*model.Task, error) {
	if err := (model.UpdateTask{ID: id, Updates: patch}).Validate(); err != nil {
		return nil, apperr.InvalidArguments("update task", "%v", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var task *model.Task
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		task, err = tx.Tasks.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound("get task", "task %d not found", id)
			}
			return err
		}
		patch.Apply(task)
		columns := patch.Columns()

		if patch.TimeIntervalDays != nil && patch.NextDueDate == nil {
			base := model.DateOf(task.CreatedAt)
			if task.LastCompletedDate != nil {
				base = model.DateOf(task.LastCompletedDate.UTC())
			}
			task.NextDueDate = InitialDueDate(base, task.TimeIntervalDays)
			columns = append(columns, "next_due_date")
		}
		if patch.UsageInterval != nil && patch.NextDueUsageValue == nil && task.LastCompletedUsageValue != nil {
			u := *task.LastCompletedUsageValue + *task.UsageInterval
			task.NextDueUsageValue = &u
			columns = append(columns, "next_due_usage_value")
		}
		return tx.Tasks.UpdateColumns(ctx, task, columns)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task updated", zap.Uint("task_id", id))
	return task, nil
}

// DeleteTask removes a task and its maintenance history.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	if err := s.store.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("delete task", "task %d not found", id)
		}
		return err
	}
	s.logger.Info("task deleted", zap.Uint("task_id", id))
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, q TaskQuery) ([]TaskView, error) {
	filter := repository.TaskFilter{EquipmentID: q.EquipmentID}
	status := strings.ToLower(strings.TrimSpace(q.Status))
	switch status {
	case "":
	case string(model.StatusCompleted):
		filter.Statuses = []model.TaskStatus{model.StatusCompleted}
	case string(model.StatusPending), string(model.StatusOverdue):
		filter.OpenOnly = true
	default:
		return nil, apperr.InvalidArguments("list tasks", "unknown status %q", q.Status)
	}

	views, err := s.views(ctx, filter, s.windowDays)
	if err != nil {
		return nil, err
	}
	if status != string(model.StatusPending) && status != string(model.StatusOverdue) {
		return views, nil
	}
	wantOverdue := status == string(model.StatusOverdue)
	out := views[:0]
	for _, v := range views {
		if (v.DueState == DueOverdue) == wantOverdue {
			out = append(out, v)
		}
	}
	return out, nil
}

// Upcoming lists open tasks due within days that are not yet overdue.
func (s *TaskService) Upcoming(ctx context.Context, days int) ([]TaskView, error) {
	report, err := s.DueReport(ctx, days)
	if err != nil {
		return nil, err
	}
	return report.Upcoming, nil
}

func (s *TaskService) Overdue(ctx context.Context) ([]TaskView, error) {
	report, err := s.DueReport(ctx, s.windowDays)
	if err != nil {
		return nil, err
	}
	return report.Overdue, nil
}

// DueReport classifies every open task. days < 0 uses the configured window.
func (s *TaskService) DueReport(ctx context.Context, days int) (DueReport, error) {
	if days < 0 {
		days = s.windowDays
	}
	views, err := s.views(ctx, repository.TaskFilter{OpenOnly: true}, days)
	if err != nil {
		return DueReport{}, err
	}
	report := DueReport{Today: s.today(), WindowDays: days}
	for _, v := range views {
		switch v.DueState {
		case DueOverdue:
			report.Overdue = append(report.Overdue, v)
		case DueUpcoming:
			report.Upcoming = append(report.Upcoming, v)
		}
	}
	return report, nil
}

func (s *TaskService) Types(ctx context.Context) ([]string, error) {
	stored, err := s.store.Tasks.DistinctTypes(ctx)
	if err != nil {
		return nil, err
	}
	return mergeTypes(model.DefaultTaskTypes, stored), nil
}

func (s *TaskService) views(ctx context.Context, filter repository.TaskFilter, days int) ([]TaskView, error) {
	tasks, err := s.store.Tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	equipment, err := s.store.Equipment.List(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Equipment, len(equipment))
	for _, e := range equipment {
		byID[e.ID] = e
	}

	SortByDue(tasks)
	today := s.today()
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		e, ok := byID[task.EquipmentID]
		if !ok {
			return nil, apperr.New(apperr.KindInternal, "list tasks", "task %d references missing equipment %d", task.ID, task.EquipmentID)
		}
		views = append(views, TaskView{
			Task:          task,
			EquipmentName: e.Name,
			UsageUnit:     e.UsageUnit,
			CurrentUsage:  e.CurrentUsageValue,
			DueState:      Classify(task, e.CurrentUsageValue, today, days),
		})
	}
	return views, nil
}

// Describe is a one-line human summary of a task's schedule.
func Describe(task model.Task, unit string) string {
	var parts []string
	if task.UsageInterval != nil {
		parts = append(parts, fmt.Sprintf("every %s %s", FormatNumber(*task.UsageInterval), unitOr(unit)))
	}
	if task.TimeIntervalDays != nil {
		parts = append(parts, fmt.Sprintf("every %d days", *task.TimeIntervalDays))
	}
	if len(parts) == 0 {
		return "no interval"
	}
	return strings.Join(parts, " or ")
}

// FormatNumber prints whole values without a fraction.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func unitOr(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return "units"
	}
	return unit
}
