package repository

import (
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// EquipmentRepository handles CRUD for equipment.
type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Create(ctx context.Context, e *model.Equipment) error {
	return translate("create equipment", r.db.WithContext(ctx).Create(e).Error)
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id uint) (*model.Equipment, error) {
	var e model.Equipment
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate("get equipment", err)
	}
	return &e, nil
}

// List returns equipment ordered by name, optionally narrowed to one type.
func (r *EquipmentRepository) List(ctx context.Context, equipmentType string) ([]model.Equipment, error) {
	var items []model.Equipment
	q := r.db.WithContext(ctx).Order("name ASC, id ASC")
	if t := strings.TrimSpace(equipmentType); t != "" {
		q = q.Where("LOWER(type) = ?", strings.ToLower(t))
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, translate("list equipment", err)
	}
	return items, nil
}

// Search matches name, make, model or type case-insensitively.
func (r *EquipmentRepository) Search(ctx context.Context, query string) ([]model.Equipment, error) {
	var items []model.Equipment
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(make) LIKE ? OR LOWER(model) LIKE ? OR LOWER(type) LIKE ?", like, like, like, like).
		Order("name ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, translate("search equipment", err)
	}
	return items, nil
}

// UpdateColumns writes only the named columns of e, matched by e.ID.
func (r *EquipmentRepository) UpdateColumns(ctx context.Context, e *model.Equipment, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	return translate("update equipment", r.db.WithContext(ctx).Model(e).Select(append(slices.Clone(columns), "updated_at")).Updates(e).Error)
}

// RatchetUsage raises the usage counter to value if value is higher.
// It never lowers the counter.
func (r *EquipmentRepository) RatchetUsage(ctx context.Context, id uint, value float64) error {
	err := r.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("id = ? AND current_usage_value < ?", id, value).
		Update("current_usage_value", value).Error
	return translate("ratchet equipment usage", err)
}

func (r *EquipmentRepository) Delete(ctx context.Context, id uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).Delete(&model.Equipment{}, id), "delete equipment")
}

// DistinctTypes lists the equipment types in use.
func (r *EquipmentRepository) DistinctTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("type <> ''").Distinct().Order("type ASC").Pluck("type", &types).Error
	if err != nil {
		return nil, translate("list equipment types", err)
	}
	return types, nil
}
