package model

import "time"

// Equipment is an owned machine whose usage counter drives usage-based tasks.
type Equipment struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"not null;index" json:"name"`
	Type              string    `gorm:"index" json:"type"`
	Make              string    `json:"make,omitempty"`
	Model             string    `json:"model,omitempty"`
	Year              *int      `json:"year,omitempty"`
	CurrentUsageValue float64   `gorm:"default:0" json:"current_usage_value"`
	UsageUnit         string    `json:"usage_unit,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Tasks             []Task    `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// EquipmentPatch lists the fields an update may change. Nil means unchanged.
type EquipmentPatch struct {
	Name              *string  `json:"name,omitempty"`
	Type              *string  `json:"type,omitempty"`
	Make              *string  `json:"make,omitempty"`
	Model             *string  `json:"model,omitempty"`
	Year              *int     `json:"year,omitempty"`
	CurrentUsageValue *float64 `json:"current_usage_value,omitempty"`
	UsageUnit         *string  `json:"usage_unit,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EquipmentPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Make == nil && p.Model == nil &&
		p.Year == nil && p.CurrentUsageValue == nil && p.UsageUnit == nil && p.Notes == nil
}

// Columns names the database columns the patch changes.
func (p EquipmentPatch) Columns() []string {
	var cols []string
	add := func(set bool, col string) {
		if set {
			cols = append(cols, col)
		}
	}
	add(p.Name != nil, "name")
	add(p.Type != nil, "type")
	add(p.Make != nil, "make")
	add(p.Model != nil, "model")
	add(p.Year != nil, "year")
	add(p.CurrentUsageValue != nil, "current_usage_value")
	add(p.UsageUnit != nil, "usage_unit")
	add(p.Notes != nil, "notes")
	return cols
}

// Apply copies the set fields onto e.
func (p EquipmentPatch) Apply(e *Equipment) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Make != nil {
		e.Make = *p.Make
	}
	if p.Model != nil {
		e.Model = *p.Model
	}
	if p.Year != nil {
		e.Year = p.Year
	}
	if p.CurrentUsageValue != nil {
		e.CurrentUsageValue = *p.CurrentUsageValue
	}
	if p.UsageUnit != nil {
		e.UsageUnit = *p.UsageUnit
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}

// DefaultEquipmentTypes are offered even before any equipment is stored.
var DefaultEquipmentTypes = []string{"car", "motorcycle", "truck", "boat", "generator", "lawn_mower", "tool", "appliance", "other"}
