package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionType is the kind of change an assistant proposal describes.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionQuery  ActionType = "query"
)

// EntityKind names the entity an action targets.
type EntityKind string

const (
	EntityEquipment      EntityKind = "equipment"
	EntityTask           EntityKind = "task"
	EntityMaintenanceLog EntityKind = "maintenance_log"
)

// ActionPayload is implemented by one struct per (type, entity) pair.
type ActionPayload interface {
	Type() ActionType
	Entity() EntityKind
	Validate() error
}

// ActionResult is a proposed change awaiting confirmation.
type ActionResult struct {
	Type                 ActionType    `json:"type"`
	Entity               EntityKind    `json:"entity"`
	Data                 ActionPayload `json:"data"`
	RequiresConfirmation bool          `json:"requires_confirmation"`
	ConfirmationMessage  string        `json:"confirmation_message,omitempty"`
}

// NewAction wraps a payload. Every non-query action requires confirmation.
func NewAction(p ActionPayload, message string) ActionResult {
	return ActionResult{
		Type:                 p.Type(),
		Entity:               p.Entity(),
		Data:                 p,
		RequiresConfirmation: p.Type() != ActionQuery,
		ConfirmationMessage:  message,
	}
}

type CreateEquipment struct {
	Name              string   `json:"name"`
	EquipmentType     string   `json:"type,omitempty"`
	Make              string   `json:"make,omitempty"`
	Model             string   `json:"model,omitempty"`
	Year              *int     `json:"year,omitempty"`
	CurrentUsageValue *float64 `json:"current_usage_value,omitempty"`
	UsageUnit         string   `json:"usage_unit,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

func (CreateEquipment) Type() ActionType   { return ActionCreate }
func (CreateEquipment) Entity() EntityKind { return EntityEquipment }

func (p CreateEquipment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.CurrentUsageValue != nil && *p.CurrentUsageValue < 0 {
		return errors.New("current_usage_value must not be negative")
	}
	return nil
}

// Equipment builds the entity to insert.
func (p CreateEquipment) Equipment() Equipment {
	e := Equipment{
		Name:      strings.TrimSpace(p.Name),
		Type:      p.EquipmentType,
		Make:      p.Make,
		Model:     p.Model,
		Year:      p.Year,
		UsageUnit: p.UsageUnit,
		Notes:     p.Notes,
	}
	if p.CurrentUsageValue != nil {
		e.CurrentUsageValue = *p.CurrentUsageValue
	}
	return e
}

type UpdateEquipment struct {
	ID      uint           `json:"id"`
	Updates EquipmentPatch `json:"updates"`
}

func (UpdateEquipment) Type() ActionType   { return ActionUpdate }
func (UpdateEquipment) Entity() EntityKind { return EntityEquipment }

func (p UpdateEquipment) Validate() error {
	if p.ID == 0 {
		return errors.New("id is required")
	}
	if p.Updates.Empty() {
		return errors.New("updates must change at least one field")
	}
	if p.Updates.Name != nil && strings.TrimSpace(*p.Updates.Name) == "" {
		return errors.New("name must not be empty")
	}
	if p.Updates.CurrentUsageValue != nil && *p.Updates.CurrentUsageValue < 0 {
		return errors.New("current_usage_value must not be negative")
	}
	return nil
}

type DeleteEquipment struct {
	ID uint `json:"id"`
}

func (DeleteEquipment) Type() ActionType   { return ActionDelete }
func (DeleteEquipment) Entity() EntityKind { return EntityEquipment }
func (p DeleteEquipment) Validate() error  { return requireID(p.ID) }

type CreateTask struct {
	EquipmentID       uint     `json:"equipment_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	TaskType          string   `json:"task_type,omitempty"`
	UsageInterval     *float64 `json:"usage_interval,omitempty"`
	TimeIntervalDays  *int     `json:"time_interval_days,omitempty"`
	NextDueUsageValue *float64 `json:"next_due_usage_value,omitempty"`
	NextDueDate       *Date    `json:"next_due_date,omitempty"`
	Priority          Priority `json:"priority,omitempty"`
}

func (CreateTask) Type() ActionType   { return ActionCreate }
func (CreateTask) Entity() EntityKind { return EntityTask }

func (p CreateTask) Validate() error {
	if p.EquipmentID == 0 {
		return errors.New("equipment_id is required")
	}
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}
	if err := validateIntervals(p.UsageInterval, p.TimeIntervalDays); err != nil {
		return err
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", p.Priority)
	}
	return nil
}

type UpdateTask struct {
	ID      uint      `json:"id"`
	Updates TaskPatch `json:"updates"`
}

func (UpdateTask) Type() ActionType   { return ActionUpdate }
func (UpdateTask) Entity() EntityKind { return EntityTask }

func (p UpdateTask) Validate() error {
	if p.ID == 0 {
		return errors.New("id is required")
	}
	u := p.Updates
	if u.Empty() {
		return errors.New("updates must change at least one field")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return errors.New("title must not be empty")
	}
	if err := validateIntervals(u.UsageInterval, u.TimeIntervalDays); err != nil {
		return err
	}
	if u.Priority != nil && !u.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *u.Priority)
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("invalid status %q", *u.Status)
	}
	return nil
}

type DeleteTask struct {
	ID uint `json:"id"`
}

func (DeleteTask) Type() ActionType   { return ActionDelete }
func (DeleteTask) Entity() EntityKind { return EntityTask }
func (p DeleteTask) Validate() error  { return requireID(p.ID) }

// CompleteTask is a maintenance-log create carrying a task id. Applying it
// runs the recurrence engine.
type CompleteTask struct {
	TaskID              uint     `json:"task_id"`
	CompletedDate       *Date    `json:"completed_date,omitempty"`
	CompletedUsageValue *float64 `json:"completed_usage_value,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	Cost                *float64 `json:"cost,omitempty"`
	ServiceProvider     string   `json:"service_provider,omitempty"`
	PartsUsed           []string `json:"parts_used,omitempty"`
}

func (CompleteTask) Type() ActionType   { return ActionCreate }
func (CompleteTask) Entity() EntityKind { return EntityMaintenanceLog }

func (p CompleteTask) Validate() error {
	if p.TaskID == 0 {
		return errors.New("task_id is required")
	}
	if p.CompletedUsageValue != nil && *p.CompletedUsageValue < 0 {
		return errors.New("completed_usage_value must not be negative")
	}
	if p.Cost != nil && *p.Cost < 0 {
		return errors.New("cost must not be negative")
	}
	return nil
}

type DeleteMaintenanceLog struct {
	ID uint `json:"id"`
}

func (DeleteMaintenanceLog) Type() ActionType   { return ActionDelete }
func (DeleteMaintenanceLog) Entity() EntityKind { return EntityMaintenanceLog }
func (p DeleteMaintenanceLog) Validate() error  { return requireID(p.ID) }

// DecodePayload decodes data into the variant for (t, e). Unknown fields
// are rejected.
func DecodePayload(t ActionType, e EntityKind, data []byte) (ActionPayload, error) {
	switch {
	case t == ActionCreate && e == EntityEquipment:
		return decodeStrict[CreateEquipment](data)
	case t == ActionUpdate && e == EntityEquipment:
		return decodeStrict[UpdateEquipment](data)
	case t == ActionDelete && e == EntityEquipment:
		return decodeStrict[DeleteEquipment](data)
	case t == ActionCreate && e == EntityTask:
		return decodeStrict[CreateTask](data)
	case t == ActionUpdate && e == EntityTask:
		return decodeStrict[UpdateTask](data)
	case t == ActionDelete && e == EntityTask:
		return decodeStrict[DeleteTask](data)
	case t == ActionCreate && e == EntityMaintenanceLog:
		return decodeStrict[CompleteTask](data)
	case t == ActionDelete && e == EntityMaintenanceLog:
		return decodeStrict[DeleteMaintenanceLog](data)
	default:
		return nil, fmt.Errorf("unsupported action %s %s", t, e)
	}
}

// MergeEdits overlays edits onto the top-level fields of p and decodes the
// result back into the same variant. Edited values win.
func MergeEdits(p ActionPayload, edits map[string]any) (ActionPayload, error) {
	if len(edits) == 0 {
		return p, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	for k, v := range edits {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode edits: %w", err)
	}
	return DecodePayload(p.Type(), p.Entity(), merged)
}

func decodeStrict[T ActionPayload](data []byte) (ActionPayload, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func requireID(id uint) error {
	if id == 0 {
		return errors.New("id is required")
	}
	return nil
}

func validateIntervals(usage *float64, days *int) error {
	if usage != nil && *usage <= 0 {
		return errors.New("usage_interval must be positive")
	}
	if days != nil && *days <= 0 {
		return errors.New("time_interval_days must be positive")
	}
	return nil
}
