// Package audit records who changed the organisation data of a business.
// Till closures are not logged here; their version chain is their history.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"cashup-backend/internal/models"

	"gorm.io/gorm"
)

type Entry struct {
	BusinessID  uint
	OutletID    *uint
	Actor       *models.Personnel
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Filter struct {
	BusinessID  uint
	OutletID    *uint
	PersonnelID uint
	EntityType  string
	EntityID    string
	Limit       int
}

type Log interface {
	Write(ctx context.Context, e Entry) error
	// List returns matching entries of one business, newest first.
	List(ctx context.Context, f Filter) ([]models.AuditLog, error)
}

func newRecord(e Entry) models.AuditLog {
	rec := models.AuditLog{
		BusinessID:  e.BusinessID,
		OutletID:    e.OutletID,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  toJSON(e.Before),
		AfterData:   toJSON(e.After),
	}
	if e.Actor != nil {
		rec.PersonnelID = e.Actor.ID
		rec.PersonnelName = e.Actor.DisplayName()
	}
	return rec
}

// toJSON yields "null" rather than "" so the value stays valid jsonb.
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

type GormLog struct {
	db *gorm.DB
}

func NewGormLog(db *gorm.DB) *GormLog {
	return &GormLog{db: db}
}

func (l *GormLog) Write(ctx context.Context, e Entry) error {
	rec := newRecord(e)
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func (l *GormLog) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := l.db.WithContext(ctx).Model(&models.AuditLog{}).Where("business_id = ?", f.BusinessID)
	if f.OutletID != nil {
		q = q.Where("outlet_id = ?", *f.OutletID)
	}
	if f.PersonnelID != 0 {
		q = q.Where("personnel_id = ?", f.PersonnelID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// MemoryLog keeps entries in process.
type MemoryLog struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Write(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := newRecord(e)
	rec.ID = uint(len(l.logs) + 1)
	rec.CreatedAt = time.Now()
	l.logs = append(l.logs, rec)
	return nil
}

func (l *MemoryLog) List(_ context.Context, f Filter) ([]models.AuditLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []models.AuditLog{}
	for _, rec := range l.logs {
		switch {
		case rec.BusinessID != f.BusinessID:
		case f.OutletID != nil && (rec.OutletID == nil || *rec.OutletID != *f.OutletID):
		case f.PersonnelID != 0 && rec.PersonnelID != f.PersonnelID:
		case f.EntityType != "" && rec.EntityType != f.EntityType:
		case f.EntityID != "" && rec.EntityID != f.EntityID:
		default:
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
