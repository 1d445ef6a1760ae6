package model

import "time"

// TaskStatus is the persisted task state. Overdue is derived at read time;
// a stored StatusOverdue is treated like StatusPending.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusOverdue   TaskStatus = "overdue"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Priority orders tasks for the owner; it does not affect due-ness.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a recurring maintenance obligation on one piece of equipment.
type Task struct {
	ID                      uint             `gorm:"primaryKey" json:"id"`
	EquipmentID             uint             `gorm:"not null;index" json:"equipment_id"`
	Title                   string           `gorm:"not null" json:"title"`
	Description             string           `json:"description,omitempty"`
	TaskType                string           `gorm:"index" json:"task_type,omitempty"`
	UsageInterval           *float64         `json:"usage_interval,omitempty"`
	TimeIntervalDays        *int             `json:"time_interval_days,omitempty"`
	LastCompletedUsageValue *float64         `json:"last_completed_usage_value,omitempty"`
	LastCompletedDate       *time.Time       `json:"last_completed_date,omitempty"`
	NextDueUsageValue       *float64         `gorm:"index" json:"next_due_usage_value,omitempty"`
	NextDueDate             *time.Time       `gorm:"index" json:"next_due_date,omitempty"`
	Priority                Priority         `gorm:"default:medium" json:"priority"`
	Status                  TaskStatus       `gorm:"default:pending;index" json:"status"`
	CreatedAt               time.Time        `json:"created_at"`
	UpdatedAt               time.Time        `json:"updated_at"`
	Logs                    []MaintenanceLog `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasInterval reports whether the task can ever become due.
func (t Task) HasInterval() bool {
	return t.UsageInterval != nil || t.TimeIntervalDays != nil
}

// TaskPatch lists the fields an update may change. Nil means unchanged.
type TaskPatch struct {
	Title             *string     `json:"title,omitempty"`
	Description       *string     `json:"description,omitempty"`
	TaskType          *string     `json:"task_type,omitempty"`
	UsageInterval     *float64    `json:"usage_interval,omitempty"`
	TimeIntervalDays  *int        `json:"time_interval_days,omitempty"`
	NextDueUsageValue *float64    `json:"next_due_usage_value,omitempty"`
	NextDueDate       *Date       `json:"next_due_date,omitempty"`
	Priority          *Priority   `json:"priority,omitempty"`
	Status            *TaskStatus `json:"status,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.TaskType == nil && p.UsageInterval == nil &&
		p.TimeIntervalDays == nil && p.NextDueUsageValue == nil && p.NextDueDate == nil &&
		p.Priority == nil && p.Status == nil
}

// Columns names the database columns the patch changes.
func (p TaskPatch) Columns() []string {
	var cols []string
	add := func(set bool, col string) {
		if set {
			cols = append(cols, col)
		}
	}
	add(p.Title != nil, "title")
	add(p.Description != nil, "description")
	add(p.TaskType != nil, "task_type")
	add(p.UsageInterval != nil, "usage_interval")
	add(p.TimeIntervalDays != nil, "time_interval_days")
	add(p.NextDueUsageValue != nil, "next_due_usage_value")
	add(p.NextDueDate != nil, "next_due_date")
	add(p.Priority != nil, "priority")
	add(p.Status != nil, "status")
	return cols
}

// Apply copies the set fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.TaskType != nil {
		t.TaskType = *p.TaskType
	}
	if p.UsageInterval != nil {
		t.UsageInterval = p.UsageInterval
	}
	if p.TimeIntervalDays != nil {
		t.TimeIntervalDays = p.TimeIntervalDays
	}
	if p.NextDueUsageValue != nil {
		t.NextDueUsageValue = p.NextDueUsageValue
	}
	if p.NextDueDate != nil {
		d := p.NextDueDate.Time()
		t.NextDueDate = &d
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// DefaultTaskTypes are offered even before any task is stored.
var DefaultTaskTypes = []string{"oil_change", "tire_rotation", "brake_service", "filter_replacement", "inspection", "battery_service", "fluid_check", "cleaning", "other"}
