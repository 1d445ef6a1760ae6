package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
)

// CompletionResult is what a task completion produced.
type CompletionResult struct {
	MaintenanceLog model.MaintenanceLog `json:"maintenance_log"`
	UpdatedTask    model.Task           `json:"updated_task"`
	Equipment      model.Equipment      `json:"equipment"`
}

// MaintenanceService runs the recurrence engine and owns maintenance history.
type MaintenanceService struct {
	store  *repository.Store
	locks  *TaskLocks
	now    func() time.Time
	logger *zap.Logger
}

// NewMaintenanceService builds the service. locks must be the instance
// shared with the TaskService over the same store.
func NewMaintenanceService(store *repository.Store, locks *TaskLocks, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{store: store, locks: locks, now: time.Now, logger: logger}
}

// CompleteTask records a completion, moves the task to its next occurrence
// and ratchets the equipment usage counter, all in one transaction.
// Completions of the same task are serialised.
func (s *MaintenanceService) CompleteTask(ctx context.Context, taskID uint, c Completion) (*CompletionResult, error) {
	const op = "complete task"

	unlock := s.locks.Lock(taskID)
	defer unlock()

	if c.CompletedDate.IsZero() {
		c.CompletedDate = model.DateOf(s.now())
	}

	var result CompletionResult
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound(op, "task %d not found", taskID)
			}
			return err
		}
		equipment, err := tx.Equipment.GetByID(ctx, task.EquipmentID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound(op, "equipment %d of task %d not found", task.EquipmentID, taskID)
			}
			return err
		}

		entry := model.MaintenanceLog{
			TaskID:              task.ID,
			EquipmentID:         equipment.ID,
			CompletedDate:       c.CompletedDate.Time(),
			CompletedUsageValue: c.CompletedUsageValue,
			Notes:               c.Notes,
			Cost:                c.Cost,
			ServiceProvider:     c.ServiceProvider,
			PartsUsed:           c.PartsUsed,
		}

		if !ApplyCompletion(task, c) {
			s.logger.Info("completion produced no next due value",
				zap.Uint("task_id", task.ID), zap.String("completed_date", c.CompletedDate.String()))
		}
		if err := tx.Tasks.UpdateColumns(ctx, task, completionColumns); err != nil {
			return err
		}

		if u := c.CompletedUsageValue; u != nil && *u > equipment.CurrentUsageValue {
			if err := tx.Equipment.RatchetUsage(ctx, equipment.ID, *u); err != nil {
				return err
			}
			equipment.CurrentUsageValue = *u
		}

		if err := tx.Logs.Create(ctx, &entry); err != nil {
			return err
		}

		result = CompletionResult{MaintenanceLog: entry, UpdatedTask: *task, Equipment: *equipment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task completed",
		zap.Uint("task_id", taskID),
		zap.Uint("log_id", result.MaintenanceLog.ID),
		zap.Stringp("next_due_date", formatDue(result.UpdatedTask.NextDueDate)),
		zap.Float64p("next_due_usage", result.UpdatedTask.NextDueUsageValue))
	return &result, nil
}

// completionColumns are the task columns ApplyCompletion changes.
var completionColumns = []string{
	"last_completed_date",
	"last_completed_usage_value",
	"next_due_date",
	"next_due_usage_value",
	"status",
}

func (s *MaintenanceService) GetLog(ctx context.Context, id uint) (*model.MaintenanceLog, error) {
	entry, err := s.store.Logs.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("get maintenance log", "maintenance log %d not found", id)
	}
	return entry, err
}

func (s *MaintenanceService) ListLogs(ctx context.Context, filter repository.LogFilter) ([]model.MaintenanceLog, error) {
	return s.store.Logs.List(ctx, filter)
}

// DeleteLog removes a history entry. The task's due state is left as is.
func (s *MaintenanceService) DeleteLog(ctx context.Context, id uint) error {
	if err := s.store.Logs.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("delete maintenance log", "maintenance log %d not found", id)
		}
		return err
	}
	s.logger.Info("maintenance log deleted", zap.Uint("log_id", id))
	return nil
}

func formatDue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := model.DateOf(t.UTC()).String()
	return &s
}
