package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/testsupport"
)

func TestCatalogNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Catalog() {
		assert.False(t, seen[f.Name], f.Name)
		seen[f.Name] = true
		assert.NotEmpty(t, f.Description, f.Name)
		assert.Contains(t, []FunctionKind{KindQuery, KindMutation}, f.Kind)
	}
	assert.True(t, seen[FnCreateMaintenanceLog])
	assert.False(t, seen["update_maintenance_log"])
}

func TestExecuteRejectsBadArguments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   string
		args map[string]any
		kind apperr.Kind
	}{
		{"unknown function", "launch_rocket", nil, apperr.KindUnknownFunction},
		{"missing required", FnCreateTask, map[string]any{"title": "Oil"}, apperr.KindInvalidArguments},
		{"wrong type", FnGetEquipment, map[string]any{"id": "seven"}, apperr.KindInvalidArguments},
		{"fractional integer", FnGetTask, map[string]any{"id": 1.5}, apperr.KindInvalidArguments},
		{"non positive id", FnDeleteTask, map[string]any{"id": 0.0}, apperr.KindInvalidArguments},
		{"id out of range", FnGetTask, map[string]any{"id": 1e19}, apperr.KindInvalidArguments},
		{"id past uint32", FnDeleteTask, map[string]any{"id": float64(1 << 32)}, apperr.KindInvalidArguments},
		{"year out of range", FnCreateEquipment, map[string]any{"name": "Civic", "year": 1e12}, apperr.KindInvalidArguments},
		{"enum", FnListTasks, map[string]any{"status": "someday"}, apperr.KindInvalidArguments},
		{"unknown parameter", FnListOverdueTasks, map[string]any{"verbose": true}, apperr.KindInvalidArguments},
		{"bad date", FnCreateMaintenanceLog, map[string]any{"task_id": 1.0, "completed_date": "yesterday"}, apperr.KindInvalidArguments},
		{"bad list", FnCreateMaintenanceLog, map[string]any{"task_id": 1.0, "parts_used": []any{"filter", 3.0}}, apperr.KindInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.executor.Execute(ctx, tt.fn, tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestExecuteQuery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.equipment(t, "Civic", 50000)
	h.equipment(t, "Jazz", 1000)

	out, err := h.executor.Execute(ctx, FnSearchEquipment, map[string]any{"query": "civ"})
	require.NoError(t, err)
	assert.Nil(t, out.Action)
	found, ok := out.Result.([]model.Equipment)
	require.True(t, ok)
	require.Len(t, found, 1)
	assert.Equal(t, "Civic", found[0].Name)

	_, err = h.executor.Execute(ctx, FnGetEquipment, map[string]any{"id": 99.0})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExecuteMutationDoesNotWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	e := h.equipment(t, "Civic", 50000)

	out, err := h.executor.Execute(ctx, FnCreateTask, map[string]any{
		"equipment_id":   float64(e.ID),
		"title":          "Oil change",
		"usage_interval": 5000.0,
		"priority":       "HIGH",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Action)
	assert.True(t, out.Action.RequiresConfirmation)
	assert.Equal(t, model.ActionCreate, out.Action.Type)
	assert.Equal(t, model.EntityTask, out.Action.Entity)
	assert.Equal(t, `Add task "Oil change" to Civic, every 5000 km`, out.Action.ConfirmationMessage)

	p, ok := out.Action.Data.(model.CreateTask)
	require.True(t, ok)
	assert.Equal(t, model.PriorityHigh, p.Priority)
	assert.Equal(t, 0, h.countTasks(t))
}

func TestExecuteMutationChecksReferencedIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.executor.Execute(ctx, FnCreateTask, map[string]any{"equipment_id": 12.0, "title": "Oil change"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.executor.Execute(ctx, FnCreateMaintenanceLog, map[string]any{"task_id": 3.0})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExecuteUpdateNeedsChanges(t *testing.T) {
	h := newHarness(t)
	e := h.equipment(t, "Civic", 50000)

	_, err := h.executor.Execute(context.Background(), FnUpdateEquipment, map[string]any{"id": float64(e.ID)})
	assert.ErrorIs(t, err, apperr.ErrInvalidArguments)

	out, err := h.executor.Execute(context.Background(), FnUpdateEquipment, map[string]any{"id": float64(e.ID), "current_usage_value": 51000.0, "notes": "new tyres"})
	require.NoError(t, err)
	assert.Equal(t, `Update equipment #1 "Civic": current_usage_value, notes`, out.Action.ConfirmationMessage)
}

func TestExecuteCompletionProposal(t *testing.T) {
	h := newHarness(t)
	e := h.equipment(t, "Civic", 50000)
	task := h.task(t, model.CreateTask{EquipmentID: e.ID, Title: "Oil change", UsageInterval: testsupport.Float(5000)})

	out, err := h.executor.Execute(context.Background(), FnCreateMaintenanceLog, map[string]any{
		"task_id":               float64(task.ID),
		"completed_date":        "2024-01-15",
		"completed_usage_value": 56000.0,
		"parts_used":            []any{"filter"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.EntityMaintenanceLog, out.Action.Entity)
	assert.Equal(t, `Record "Oil change" on Civic as done on 2024-01-15 at 56000 km`, out.Action.ConfirmationMessage)

	p := out.Action.Data.(model.CompleteTask)
	assert.Equal(t, []string{"filter"}, p.PartsUsed)
	assert.Equal(t, "2024-01-15", p.CompletedDate.String())
}
