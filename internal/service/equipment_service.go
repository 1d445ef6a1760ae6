package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
)

// EquipmentService wraps equipment CRUD.
type EquipmentService struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewEquipmentService(store *repository.Store, logger *zap.Logger) *EquipmentService {
	return &EquipmentService{store: store, logger: logger}
}

func (s *EquipmentService) Create(ctx context.Context, input model.CreateEquipment) (*model.Equipment, error) {
	if err := input.Validate(); err != nil {
		return nil, apperr.InvalidArguments("create equipment", "%v", err)
	}
	e := input.Equipment()
	if err := s.store.Equipment.Create(ctx, &e); err != nil {
		return nil, err
	}
	s.logger.Info("equipment created", zap.Uint("equipment_id", e.ID), zap.String("name", e.Name))
	return &e, nil
}

func (s *EquipmentService) Get(ctx context.Context, id uint) (*model.Equipment, error) {
	e, err := s.store.Equipment.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("get equipment", "equipment %d not found", id)
	}
	return e, err
}

func (s *EquipmentService) List(ctx context.Context, equipmentType string) ([]model.Equipment, error) {
	return s.store.Equipment.List(ctx, equipmentType)
}

func (s *EquipmentService) Search(ctx context.Context, query string) ([]model.Equipment, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.InvalidArguments("search equipment", "query must not be empty")
	}
	return s.store.Equipment.Search(ctx, query)
}

// Update applies an explicit correction. It is the only path that may lower
// the usage counter. Only the patched columns are written, so a usage value
// raised by a concurrent completion survives an unrelated edit.
func (s *EquipmentService) Update(ctx context.Context, id uint, patch model.EquipmentPatch) (*model.Equipment, error) {
	if err := (model.UpdateEquipment{ID: id, Updates: patch}).Validate(); err != nil {
		return nil, apperr.InvalidArguments("update equipment", "%v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := e.CurrentUsageValue
	patch.Apply(e)
	if err := s.store.Equipment.UpdateColumns(ctx, e, patch.Columns()); err != nil {
		return nil, err
	}
	if u := patch.CurrentUsageValue; u != nil && *u < before {
		s.logger.Warn("equipment usage corrected downwards",
			zap.Uint("equipment_id", id), zap.Float64("from", before), zap.Float64("to", *u))
	}
	s.logger.Info("equipment updated", zap.Uint("equipment_id", id))
	return s.Get(ctx, id)
}

// Delete removes equipment together with its tasks and logs.
func (s *EquipmentService) Delete(ctx context.Context, id uint) error {
	if err := s.store.Equipment.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("delete equipment", "equipment %d not found", id)
		}
		return err
	}
	s.logger.Info("equipment deleted", zap.Uint("equipment_id", id))
	return nil
}

// Types merges stored equipment types with the defaults.
func (s *EquipmentService) Types(ctx context.Context) ([]string, error) {
	stored, err := s.store.Equipment.DistinctTypes(ctx)
	if err != nil {
		return nil, err
	}
	return mergeTypes(model.DefaultEquipmentTypes, stored), nil
}

func mergeTypes(defaults, stored []string) []string {
	seen := make(map[string]bool, len(defaults)+len(stored))
	var out []string
	for _, list := range [][]string{defaults, stored} {
		for _, t := range list {
			key := strings.ToLower(strings.TrimSpace(t))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
