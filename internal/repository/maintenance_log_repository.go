package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// LogFilter narrows maintenance history listings.
type LogFilter struct {
	EquipmentID uint
	TaskID      uint
	Limit       int
}

// MaintenanceLogRepository stores completion history. Logs are append-only
// apart from explicit deletion.
type MaintenanceLogRepository struct {
	db *gorm.DB
}

func NewMaintenanceLogRepository(db *gorm.DB) *MaintenanceLogRepository {
	return &MaintenanceLogRepository{db: db}
}

func (r *MaintenanceLogRepository) Create(ctx context.Context, entry *model.MaintenanceLog) error {
	return translate("create maintenance log", r.db.WithContext(ctx).Create(entry).Error)
}

func (r *MaintenanceLogRepository) GetByID(ctx context.Context, id uint) (*model.MaintenanceLog, error) {
	var entry model.MaintenanceLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, translate("get maintenance log", err)
	}
	return &entry, nil
}

// List returns the newest entries first.
func (r *MaintenanceLogRepository) List(ctx context.Context, filter LogFilter) ([]model.MaintenanceLog, error) {
	var entries []model.MaintenanceLog
	q := r.db.WithContext(ctx)
	if filter.EquipmentID != 0 {
		q = q.Where("equipment_id = ?", filter.EquipmentID)
	}
	if filter.TaskID != 0 {
		q = q.Where("task_id = ?", filter.TaskID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Order("completed_date DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, translate("list maintenance logs", err)
	}
	return entries, nil
}

func (r *MaintenanceLogRepository) Delete(ctx context.Context, id uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).Delete(&model.MaintenanceLog{}, id), "delete maintenance log")
}
