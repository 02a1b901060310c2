package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Business struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:12;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Outlet struct {
	ID           uint            `gorm:"primaryKey"`
	BusinessID   uint            `gorm:"not null;uniqueIndex:ux_outlets_business_name"`
	Name         string          `gorm:"size:24;not null;uniqueIndex:ux_outlets_business_name"`
	DefaultFloat decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StaffPosition links a person to an outlet they work at.
type StaffPosition struct {
	ID          uint `gorm:"primaryKey"`
	OutletID    uint `gorm:"not null;uniqueIndex:ux_staff_positions_outlet_personnel"`
	PersonnelID uint `gorm:"not null;uniqueIndex:ux_staff_positions_outlet_personnel;index"`
	IsManager   bool `gorm:"not null;default:false"`
	IsStaff     bool `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the position grants any staff relation.
func (p StaffPosition) Active() bool {
	return p.IsStaff || p.IsManager
}
