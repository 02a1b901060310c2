package models

import (
	"strings"
	"time"
)

// Personnel is a person working for exactly one business. It is also the
// login identity.
type Personnel struct {
	ID           uint   `gorm:"primaryKey"`
	BusinessID   uint   `gorm:"index;not null"`
	Name         string `gorm:"size:100"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsOwner      bool   `gorm:"not null;default:false"`
	IsManager    bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName falls back to the local part of the email address.
func (p Personnel) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
