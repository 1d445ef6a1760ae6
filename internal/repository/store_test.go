package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
	"github.com/AaronL1011/mechmate-sub000/internal/testsupport"
)

func seedEquipment(t *testing.T, store *repository.Store, name string, usage float64) *model.Equipment {
	t.Helper()
	e := &model.Equipment{Name: name, Type: "car", CurrentUsageValue: usage, UsageUnit: "km"}
	require.NoError(t, store.Equipment.Create(context.Background(), e))
	return e
}

func TestGetMissingIsNotFound(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()

	_, err := store.Equipment.GetByID(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = store.Tasks.GetByID(ctx, 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, store.Logs.Delete(ctx, 42), apperr.ErrNotFound)
}

func TestTaskWithUnknownEquipmentFailsValidation(t *testing.T) {
	store := testsupport.NewStore(t)

	err := store.Tasks.Create(context.Background(), &model.Task{EquipmentID: 999, Title: "Orphan"})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestRatchetUsageNeverLowers(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	e := seedEquipment(t, store, "Civic", 50000)

	require.NoError(t, store.Equipment.RatchetUsage(ctx, e.ID, 40000))
	got, err := store.Equipment.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, got.CurrentUsageValue)

	require.NoError(t, store.Equipment.RatchetUsage(ctx, e.ID, 56000))
	got, err = store.Equipment.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 56000.0, got.CurrentUsageValue)
}

func TestDeleteEquipmentCascades(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	e := seedEquipment(t, store, "Mower", 10)

	task := &model.Task{EquipmentID: e.ID, Title: "Sharpen blade"}
	require.NoError(t, store.Tasks.Create(ctx, task))
	entry := &model.MaintenanceLog{TaskID: task.ID, EquipmentID: e.ID, CompletedDate: time.Now(), PartsUsed: []string{"blade"}}
	require.NoError(t, store.Logs.Create(ctx, entry))

	require.NoError(t, store.Equipment.Delete(ctx, e.ID))

	_, err := store.Tasks.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = store.Logs.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPartsUsedRoundTrip(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	e := seedEquipment(t, store, "Civic", 0)
	task := &model.Task{EquipmentID: e.ID, Title: "Oil change"}
	require.NoError(t, store.Tasks.Create(ctx, task))

	entry := &model.MaintenanceLog{TaskID: task.ID, EquipmentID: e.ID, CompletedDate: time.Now(), PartsUsed: []string{"filter", "5W-30 oil"}}
	require.NoError(t, store.Logs.Create(ctx, entry))

	got, err := store.Logs.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"filter", "5W-30 oil"}, got.PartsUsed)
}

func TestListTasksOrdersByDue(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	e := seedEquipment(t, store, "Civic", 0)

	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		{EquipmentID: e.ID, Title: "no due"},
		{EquipmentID: e.ID, Title: "late", NextDueDate: &late},
		{EquipmentID: e.ID, Title: "usage", NextDueUsageValue: testsupport.Float(1000)},
		{EquipmentID: e.ID, Title: "early", NextDueDate: &early},
		{EquipmentID: e.ID, Title: "done", Status: model.StatusCompleted},
	}
	for _, task := range tasks {
		require.NoError(t, store.Tasks.Create(ctx, task))
	}

	got, err := store.Tasks.List(ctx, repository.TaskFilter{OpenOnly: true})
	require.NoError(t, err)

	var titles []string
	for _, task := range got {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"early", "late", "usage", "no due"}, titles)
}

func TestTransactionRollsBack(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Equipment.Create(ctx, &model.Equipment{Name: "Boat"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	items, err := store.Equipment.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDistinctTypesAndSearch(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()
	require.NoError(t, store.Equipment.Create(ctx, &model.Equipment{Name: "Civic", Type: "car", Make: "Honda"}))
	require.NoError(t, store.Equipment.Create(ctx, &model.Equipment{Name: "Genny", Type: "generator"}))
	require.NoError(t, store.Equipment.Create(ctx, &model.Equipment{Name: "Jazz", Type: "car", Make: "Honda"}))

	types, err := store.Equipment.DistinctTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"car", "generator"}, types)

	found, err := store.Equipment.Search(ctx, "honda")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	cars, err := store.Equipment.List(ctx, "CAR")
	require.NoError(t, err)
	assert.Len(t, cars, 2)
}
