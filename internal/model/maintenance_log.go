package model

import "time"

// MaintenanceLog records one completion of a task. Logs are never updated.
type MaintenanceLog struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	TaskID              uint       `gorm:"not null;index" json:"task_id"`
	EquipmentID         uint       `gorm:"not null;index" json:"equipment_id"`
	CompletedDate       time.Time  `gorm:"not null;index" json:"completed_date"`
	CompletedUsageValue *float64   `json:"completed_usage_value,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	Cost                *float64   `json:"cost,omitempty"`
	ServiceProvider     string     `json:"service_provider,omitempty"`
	PartsUsed           []string   `gorm:"serializer:json" json:"parts_used,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	Equipment           *Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}
