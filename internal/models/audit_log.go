package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog records a change to organisation data (business, outlets, staff).
// Till closures carry their own version history instead.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	BusinessID uint  `gorm:"index;not null" json:"business_id"`
	OutletID   *uint `json:"outlet_id"`

	PersonnelID   uint   `json:"personnel_id"`
	PersonnelName string `gorm:"size:100" json:"personnel_name"`

	// "business", "outlet", "personnel", "staff_position", "till_closure"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:64;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
