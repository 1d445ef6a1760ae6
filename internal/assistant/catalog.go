// Package assistant turns natural-language requests into confirmed changes:
// a function catalog the model may call, an executor for those calls, the
// bounded conversation loop, the pending action store and the confirmation
// handler.
package assistant

import "sort"

// ParamType is the wire type of a function parameter.
type ParamType string

const (
	TypeString      ParamType = "string"
	TypeInteger     ParamType = "integer"
	TypeNumber      ParamType = "number"
	TypeBoolean     ParamType = "boolean"
	TypeDate        ParamType = "date"
	TypeStringArray ParamType = "string_array"
)

// FunctionKind separates read-only functions from proposals.
type FunctionKind string

const (
	KindQuery    FunctionKind = "query"
	KindMutation FunctionKind = "mutation"
)

// Param describes one argument. Positive applies to integers and numbers.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Description string    `json:"description"`
	Enum        []string  `json:"enum,omitempty"`
	Positive    bool      `json:"-"`
}

// FunctionSpec is one catalog entry. Description is only read by the model.
type FunctionSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Kind        FunctionKind `json:"kind"`
	Params      []Param      `json:"params"`
}

func (f FunctionSpec) param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

const (
	FnListEquipment        = "list_equipment"
	FnSearchEquipment      = "search_equipment"
	FnGetEquipment         = "get_equipment"
	FnListTasks            = "list_tasks"
	FnGetTask              = "get_task"
	FnListUpcomingTasks    = "list_upcoming_tasks"
	FnListOverdueTasks     = "list_overdue_tasks"
	FnListMaintenanceLogs  = "list_maintenance_logs"
	FnListEquipmentTypes   = "list_equipment_types"
	FnListTaskTypes        = "list_task_types"
	FnCreateEquipment      = "create_equipment"
	FnUpdateEquipment      = "update_equipment"
	FnDeleteEquipment      = "delete_equipment"
	FnCreateTask           = "create_task"
	FnUpdateTask           = "update_task"
	FnDeleteTask           = "delete_task"
	FnCreateMaintenanceLog = "create_maintenance_log"
	FnDeleteMaintenanceLog = "delete_maintenance_log"
)

func idParam(name, what string) Param {
	return Param{Name: name, Type: TypeInteger, Required: true, Positive: true, Description: "ID of the " + what}
}

func equipmentFields(nameRequired bool) []Param {
	return []Param{
		{Name: "name", Type: TypeString, Required: nameRequired, Description: "Display name, e.g. \"Honda Civic\""},
		{Name: "type", Type: TypeString, Description: "Equipment type, see list_equipment_types"},
		{Name: "make", Type: TypeString, Description: "Manufacturer"},
		{Name: "model", Type: TypeString, Description: "Model name"},
		{Name: "year", Type: TypeInteger, Positive: true, Description: "Model year"},
		{Name: "current_usage_value", Type: TypeNumber, Description: "Current odometer or hour meter reading"},
		{Name: "usage_unit", Type: TypeString, Description: "Unit of the usage counter, e.g. km, miles, hours"},
		{Name: "notes", Type: TypeString, Description: "Free-form notes"},
	}
}

func taskFields(creating bool) []Param {
	params := []Param{
		{Name: "title", Type: TypeString, Required: creating, Description: "Short task title, e.g. \"Oil change\""},
		{Name: "description", Type: TypeString, Description: "Details of the work"},
		{Name: "task_type", Type: TypeString, Description: "Task type, see list_task_types"},
		{Name: "usage_interval", Type: TypeNumber, Positive: true, Description: "Repeat every this many usage units"},
		{Name: "time_interval_days", Type: TypeInteger, Positive: true, Description: "Repeat every this many days"},
		{Name: "next_due_usage_value", Type: TypeNumber, Description: "Usage reading at which the task is next due"},
		{Name: "next_due_date", Type: TypeDate, Description: "Date the task is next due, YYYY-MM-DD"},
		{Name: "priority", Type: TypeString, Description: "Task priority", Enum: []string{"low", "medium", "high", "critical"}},
	}
	if !creating {
		params = append(params, Param{Name: "status", Type: TypeString, Description: "Task status", Enum: []string{"pending", "completed"}})
	}
	return params
}

var catalog = []FunctionSpec{
	{
		Name:        FnListEquipment,
		Description: "List all equipment, optionally only of one type.",
		Kind:        KindQuery,
		Params:      []Param{{Name: "type", Type: TypeString, Description: "Only equipment of this type"}},
	},
	{
		Name:        FnSearchEquipment,
		Description: "Find equipment whose name, make or model contains the query.",
		Kind:        KindQuery,
		Params:      []Param{{Name: "query", Type: TypeString, Required: true, Description: "Text to look for"}},
	},
	{
		Name:        FnGetEquipment,
		Description: "Get one piece of equipment by ID.",
		Kind:        KindQuery,
		Params:      []Param{idParam("id", "equipment")},
	},
	{
		Name:        FnListTasks,
		Description: "List maintenance tasks, optionally for one piece of equipment or by status.",
		Kind:        KindQuery,
		Params: []Param{
			{Name: "equipment_id", Type: TypeInteger, Positive: true, Description: "Only tasks of this equipment"},
			{Name: "status", Type: TypeString, Description: "Only tasks in this state", Enum: []string{"pending", "overdue", "completed"}},
		},
	},
	{
		Name:        FnGetTask,
		Description: "Get one maintenance task by ID.",
		Kind:        KindQuery,
		Params:      []Param{idParam("id", "task")},
	},
	{
		Name:        FnListUpcomingTasks,
		Description: "List tasks that fall due within the next days and are not yet overdue.",
		Kind:        KindQuery,
		Params:      []Param{{Name: "days", Type: TypeInteger, Positive: true, Description: "Lookahead in days"}},
	},
	{
		Name:        FnListOverdueTasks,
		Description: "List tasks whose due date has passed or whose due usage has been reached.",
		Kind:        KindQuery,
	},
	{
		Name:        FnListMaintenanceLogs,
		Description: "List maintenance history, newest first.",
		Kind:        KindQuery,
		Params: []Param{
			{Name: "equipment_id", Type: TypeInteger, Positive: true, Description: "Only history of this equipment"},
			{Name: "task_id", Type: TypeInteger, Positive: true, Description: "Only history of this task"},
			{Name: "limit", Type: TypeInteger, Positive: true, Description: "Maximum number of entries"},
		},
	},
	{
		Name:        FnListEquipmentTypes,
		Description: "List known equipment types.",
		Kind:        KindQuery,
	},
	{
		Name:        FnListTaskTypes,
		Description: "List known task types.",
		Kind:        KindQuery,
	},
	{
		Name:        FnCreateEquipment,
		Description: "Propose adding a new piece of equipment.",
		Kind:        KindMutation,
		Params:      equipmentFields(true),
	},
	{
		Name:        FnUpdateEquipment,
		Description: "Propose changing fields of existing equipment. Only pass the fields that change.",
		Kind:        KindMutation,
		Params:      append([]Param{idParam("id", "equipment")}, equipmentFields(false)...),
	},
	{
		Name:        FnDeleteEquipment,
		Description: "Propose deleting equipment together with its tasks and history.",
		Kind:        KindMutation,
		Params:      []Param{idParam("id", "equipment")},
	},
	{
		Name:        FnCreateTask,
		Description: "Propose a new recurring maintenance task. Give a usage interval, a time interval or both.",
		Kind:        KindMutation,
		Params:      append([]Param{idParam("equipment_id", "equipment the task belongs to")}, taskFields(true)...),
	},
	{
		Name:        FnUpdateTask,
		Description: "Propose changing fields of an existing task. Only pass the fields that change.",
		Kind:        KindMutation,
		Params:      append([]Param{idParam("id", "task")}, taskFields(false)...),
	},
	{
		Name:        FnDeleteTask,
		Description: "Propose deleting a task together with its history.",
		Kind:        KindMutation,
		Params:      []Param{idParam("id", "task")},
	},
	{
		Name:        FnCreateMaintenanceLog,
		Description: "Propose recording that a task was done. This schedules the next occurrence.",
		Kind:        KindMutation,
		Params: []Param{
			idParam("task_id", "task that was done"),
			{Name: "completed_date", Type: TypeDate, Description: "Date the work was done, YYYY-MM-DD; defaults to today"},
			{Name: "completed_usage_value", Type: TypeNumber, Description: "Usage reading when the work was done"},
			{Name: "notes", Type: TypeString, Description: "Notes about the work"},
			{Name: "cost", Type: TypeNumber, Description: "Total cost"},
			{Name: "service_provider", Type: TypeString, Description: "Who did the work"},
			{Name: "parts_used", Type: TypeStringArray, Description: "Parts that were used"},
		},
	},
	{
		Name:        FnDeleteMaintenanceLog,
		Description: "Propose deleting a maintenance history entry.",
		Kind:        KindMutation,
		Params:      []Param{idParam("id", "maintenance log entry")},
	},
}

// Catalog returns every function the model may call, sorted by name.
func Catalog() []FunctionSpec {
	out := make([]FunctionSpec, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
