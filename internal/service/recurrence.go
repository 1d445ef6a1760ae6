package service

import (
	"sort"
	"time"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// Completion is one completion event for a task.
type Completion struct {
	CompletedDate       model.Date
	CompletedUsageValue *float64
	Notes               string
	Cost                *float64
	ServiceProvider     string
	PartsUsed           []string
}

// DueState is the read-time label of a task.
type DueState string

const (
	DueNone     DueState = "pending"
	DueUpcoming DueState = "upcoming"
	DueOverdue  DueState = "overdue"
	DueDone     DueState = "completed"
)

// NextDue computes the due point that follows a completion. A value that
// cannot be produced keeps the task's current value; recurred is false when
// neither value could be produced.
func NextDue(task model.Task, completed model.Date, usage *float64) (date *time.Time, usageDue *float64, recurred bool) {
	date, usageDue = task.NextDueDate, task.NextDueUsageValue
	if task.TimeIntervalDays != nil {
		d := completed.AddDays(*task.TimeIntervalDays).Time()
		date = &d
		recurred = true
	}
	if task.UsageInterval != nil && usage != nil {
		u := *usage + *task.UsageInterval
		usageDue = &u
		recurred = true
	}
	return date, usageDue, recurred
}

// ApplyCompletion moves task to its next occurrence and returns whether any
// due value was recomputed.
func ApplyCompletion(task *model.Task, c Completion) bool {
	date, usageDue, recurred := NextDue(*task, c.CompletedDate, c.CompletedUsageValue)

	completed := c.CompletedDate.Time()
	task.LastCompletedDate = &completed
	task.LastCompletedUsageValue = c.CompletedUsageValue
	task.NextDueDate = date
	task.NextDueUsageValue = usageDue
	task.Status = model.StatusPending
	return recurred
}

// InitialDueDate is the first due date of a new task created on day.
func InitialDueDate(day model.Date, intervalDays *int) *time.Time {
	if intervalDays == nil {
		return nil
	}
	d := day.AddDays(*intervalDays).Time()
	return &d
}

// IsOverdue reports whether an open task has passed its due date or its due
// usage. A stored overdue status is not consulted.
func IsOverdue(task model.Task, currentUsage float64, today model.Date) bool {
	if task.Status == model.StatusCompleted {
		return false
	}
	if task.NextDueDate != nil && model.DateOf(task.NextDueDate.UTC()).Before(today) {
		return true
	}
	return task.NextDueUsageValue != nil && *task.NextDueUsageValue <= currentUsage
}

// IsUpcoming reports whether an open, not overdue task falls due within
// windowDays of today.
func IsUpcoming(task model.Task, currentUsage float64, today model.Date, windowDays int) bool {
	if task.Status == model.StatusCompleted || task.NextDueDate == nil {
		return false
	}
	if IsOverdue(task, currentUsage, today) {
		return false
	}
	return !model.DateOf(task.NextDueDate.UTC()).After(today.AddDays(windowDays))
}

// Classify labels a task for listings.
func Classify(task model.Task, currentUsage float64, today model.Date, windowDays int) DueState {
	switch {
	case task.Status == model.StatusCompleted:
		return DueDone
	case IsOverdue(task, currentUsage, today):
		return DueOverdue
	case IsUpcoming(task, currentUsage, today, windowDays):
		return DueUpcoming
	default:
		return DueNone
	}
}

// SortByDue orders by next due date, then next due usage, nulls last,
// then id.
func SortByDue(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return dueLess(tasks[i], tasks[j])
	})
}

func dueLess(a, b model.Task) bool {
	switch {
	case a.NextDueDate != nil && b.NextDueDate != nil:
		if !a.NextDueDate.Equal(*b.NextDueDate) {
			return a.NextDueDate.Before(*b.NextDueDate)
		}
	case a.NextDueDate != nil:
		return true
	case b.NextDueDate != nil:
		return false
	}
	switch {
	case a.NextDueUsageValue != nil && b.NextDueUsageValue != nil:
		if *a.NextDueUsageValue != *b.NextDueUsageValue {
			return *a.NextDueUsageValue < *b.NextDueUsageValue
		}
	case a.NextDueUsageValue != nil:
		return true
	case b.NextDueUsageValue != nil:
		return false
	}
	return a.ID < b.ID
}
