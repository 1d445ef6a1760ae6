package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

// Services groups the domain services the assistant reads and writes.
type Services struct {
	Equipment   *service.EquipmentService
	Tasks       *service.TaskService
	Maintenance *service.MaintenanceService
}

// Outcome is the result of one function call. Exactly one of Result and
// Action is set.
type Outcome struct {
	Result any
	Action *model.ActionResult
}

// Executor runs catalog functions. Queries hit the services; mutations
// only check the ids they reference and return a proposal.
type Executor struct {
	svc       Services
	functions map[string]FunctionSpec
	logger    *zap.Logger
}

func NewExecutor(svc Services, logger *zap.Logger) *Executor {
	functions := make(map[string]FunctionSpec, len(catalog))
	for _, f := range catalog {
		functions[f.Name] = f
	}
	return &Executor{svc: svc, functions: functions, logger: logger}
}

// Execute validates args against the catalog before any store access.
func (e *Executor) Execute(ctx context.Context, name string, raw map[string]any) (Outcome, error) {
	spec, ok := e.functions[name]
	if !ok {
		return Outcome{}, apperr.New(apperr.KindUnknownFunction, "execute", "unknown function %q", name)
	}
	a, err := validateArgs(spec, raw)
	if err != nil {
		return Outcome{}, err
	}

	e.logger.Debug("executing function", zap.String("function", name), zap.String("kind", string(spec.Kind)))

	if spec.Kind == KindQuery {
		result, err := e.query(ctx, name, a)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: result}, nil
	}

	action, err := e.propose(ctx, name, a)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: &action}, nil
}

func (e *Executor) query(ctx context.Context, name string, a args) (any, error) {
	switch name {
	case FnListEquipment:
		return e.svc.Equipment.List(ctx, a.str("type"))
	case FnSearchEquipment:
		return e.svc.Equipment.Search(ctx, a.str("query"))
	case FnGetEquipment:
		return e.svc.Equipment.Get(ctx, a.id("id"))
	case FnListTasks:
		return e.svc.Tasks.ListTasks(ctx, service.TaskQuery{EquipmentID: a.id("equipment_id"), Status: a.str("status")})
	case FnGetTask:
		return e.svc.Tasks.GetTask(ctx, a.id("id"))
	case FnListUpcomingTasks:
		days := e.svc.Tasks.WindowDays()
		if d := a.intPtr("days"); d != nil {
			days = *d
		}
		return e.svc.Tasks.Upcoming(ctx, days)
	case FnListOverdueTasks:
		return e.svc.Tasks.Overdue(ctx)
	case FnListMaintenanceLogs:
		limit := 20
		if l := a.intPtr("limit"); l != nil {
			limit = *l
		}
		return e.svc.Maintenance.ListLogs(ctx, repository.LogFilter{
			EquipmentID: a.id("equipment_id"),
			TaskID:      a.id("task_id"),
			Limit:       limit,
		})
	case FnListEquipmentTypes:
		return e.svc.Equipment.Types(ctx)
	case FnListTaskTypes:
		return e.svc.Tasks.Types(ctx)
	default:
		return nil, apperr.New(apperr.KindUnknownFunction, "execute", "unknown query %q", name)
	}
}

func (e *Executor) propose(ctx context.Context, name string, a args) (model.ActionResult, error) {
	var (
		payload model.ActionPayload
		message string
		err     error
	)
	switch name {
	case FnCreateEquipment:
		payload, message = e.createEquipment(a)
	case FnUpdateEquipment:
		payload, message, err = e.updateEquipment(ctx, a)
	case FnDeleteEquipment:
		payload, message, err = e.deleteEquipment(ctx, a)
	case FnCreateTask:
		payload, message, err = e.createTask(ctx, a)
	case FnUpdateTask:
		payload, message, err = e.updateTask(ctx, a)
	case FnDeleteTask:
		payload, message, err = e.deleteTask(ctx, a)
	case FnCreateMaintenanceLog:
		payload, message, err = e.completeTask(ctx, a)
	case FnDeleteMaintenanceLog:
		payload, message, err = e.deleteLog(ctx, a)
	default:
		return model.ActionResult{}, apperr.New(apperr.KindUnknownFunction, "execute", "unknown mutation %q", name)
	}
	if err != nil {
		return model.ActionResult{}, err
	}
	if err := payload.Validate(); err != nil {
		return model.ActionResult{}, apperr.InvalidArguments("execute "+name, "%v", err)
	}
	return model.NewAction(payload, message), nil
}

func (e *Executor) createEquipment(a args) (model.ActionPayload, string) {
	p := model.CreateEquipment{
		Name:              strings.TrimSpace(a.str("name")),
		EquipmentType:     a.str("type"),
		Make:              a.str("make"),
		Model:             a.str("model"),
		Year:              a.intPtr("year"),
		CurrentUsageValue: a.floatPtr("current_usage_value"),
		UsageUnit:         a.str("usage_unit"),
		Notes:             a.str("notes"),
	}
	msg := fmt.Sprintf("Add equipment %q", p.Name)
	if p.EquipmentType != "" {
		msg += fmt.Sprintf(" (%s)", p.EquipmentType)
	}
	if p.CurrentUsageValue != nil {
		msg += fmt.Sprintf(" at %s", usage(*p.CurrentUsageValue, p.UsageUnit))
	}
	return p, msg
}

func (e *Executor) updateEquipment(ctx context.Context, a args) (model.ActionPayload, string, error) {
	current, err := e.svc.Equipment.Get(ctx, a.id("id"))
	if err != nil {
		return nil, "", err
	}
	p := model.UpdateEquipment{ID: current.ID, Updates: model.EquipmentPatch{
		Name:              a.strPtr("name"),
		Type:              a.strPtr("type"),
		Make:              a.strPtr("make"),
		Model:             a.strPtr("model"),
		Year:              a.intPtr("year"),
		CurrentUsageValue: a.floatPtr("current_usage_value"),
		UsageUnit:         a.strPtr("usage_unit"),
		Notes:             a.strPtr("notes"),
	}}
	return p, fmt.Sprintf("Update equipment #%d %q: %s", current.ID, current.Name, changedFields(p.Updates)), nil
}

func (e *Executor) deleteEquipment(ctx context.Context, a args) (model.ActionPayload, string, error) {
	current, err := e.svc.Equipment.Get(ctx, a.id("id"))
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Delete equipment #%d %q with all its tasks and maintenance history", current.ID, current.Name)
	return model.DeleteEquipment{ID: current.ID}, msg, nil
}

func (e *Executor) createTask(ctx context.Context, a args) (model.ActionPayload, string, error) {
	equipment, err := e.svc.Equipment.Get(ctx, a.id("equipment_id"))
	if err != nil {
		return nil, "", err
	}
	p := model.CreateTask{
		EquipmentID:       equipment.ID,
		Title:             strings.TrimSpace(a.str("title")),
		Description:       a.str("description"),
		TaskType:          a.str("task_type"),
		UsageInterval:     a.floatPtr("usage_interval"),
		TimeIntervalDays:  a.intPtr("time_interval_days"),
		NextDueUsageValue: a.floatPtr("next_due_usage_value"),
		NextDueDate:       a.datePtr("next_due_date"),
		Priority:          model.Priority(a.str("priority")),
	}
	schedule := service.Describe(model.Task{UsageInterval: p.UsageInterval, TimeIntervalDays: p.TimeIntervalDays}, equipment.UsageUnit)
	return p, fmt.Sprintf("Add task %q to %s, %s", p.Title, equipment.Name, schedule), nil
}

func (e *Executor) updateTask(ctx context.Context, a args) (model.ActionPayload, string, error) {
	current, err := e.svc.Tasks.GetTask(ctx, a.id("id"))
	if err != nil {
		return nil, "", err
	}
	patch := model.TaskPatch{
		Title:             a.strPtr("title"),
		Description:       a.strPtr("description"),
		TaskType:          a.strPtr("task_type"),
		UsageInterval:     a.floatPtr("usage_interval"),
		TimeIntervalDays:  a.intPtr("time_interval_days"),
		NextDueUsageValue: a.floatPtr("next_due_usage_value"),
		NextDueDate:       a.datePtr("next_due_date"),
	}
	if a.has("priority") {
		pr := model.Priority(a.str("priority"))
		patch.Priority = &pr
	}
	if a.has("status") {
		st := model.TaskStatus(a.str("status"))
		patch.Status = &st
	}
	p := model.UpdateTask{ID: current.ID, Updates: patch}
	return p, fmt.Sprintf("Update task #%d %q: %s", current.ID, current.Title, changedFields(patch)), nil
}

func (e *Executor) deleteTask(ctx context.Context, a args) (model.ActionPayload, string, error) {
	current, err := e.svc.Tasks.GetTask(ctx, a.id("id"))
	if err != nil {
		return nil, "", err
	}
	return model.DeleteTask{ID: current.ID}, fmt.Sprintf("Delete task #%d %q and its maintenance history", current.ID, current.Title), nil
}

func (e *Executor) completeTask(ctx context.Context, a args) (model.ActionPayload, string, error) {
	task, err := e.svc.Tasks.GetTask(ctx, a.id("task_id"))
	if err != nil {
		return nil, "", err
	}
	equipment, err := e.svc.Equipment.Get(ctx, task.EquipmentID)
	if err != nil {
		return nil, "", err
	}
	p := model.CompleteTask{
		TaskID:              task.ID,
		CompletedDate:       a.datePtr("completed_date"),
		CompletedUsageValue: a.floatPtr("completed_usage_value"),
		Notes:               a.str("notes"),
		Cost:                a.floatPtr("cost"),
		ServiceProvider:     a.str("service_provider"),
		PartsUsed:           a.strings("parts_used"),
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Record %q on %s as done", task.Title, equipment.Name)
	if p.CompletedDate != nil {
		fmt.Fprintf(&sb, " on %s", p.CompletedDate)
	} else {
		sb.WriteString(" today")
	}
	if p.CompletedUsageValue != nil {
		fmt.Fprintf(&sb, " at %s", usage(*p.CompletedUsageValue, equipment.UsageUnit))
	}
	if p.Cost != nil {
		fmt.Fprintf(&sb, ", cost %.2f", *p.Cost)
	}
	return p, sb.String(), nil
}

func (e *Executor) deleteLog(ctx context.Context, a args) (model.ActionPayload, string, error) {
	entry, err := e.svc.Maintenance.GetLog(ctx, a.id("id"))
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Delete maintenance log #%d from %s", entry.ID, model.DateOf(entry.CompletedDate.UTC()))
	return model.DeleteMaintenanceLog{ID: entry.ID}, msg, nil
}

// changedFields lists the JSON names of the set fields of a patch.
func changedFields(patch any) string {
	raw, err := json.Marshal(patch)
	if err != nil {
		return "changes"
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return "no changes"
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func usage(v float64, unit string) string {
	s := number(v)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
