package closure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashup-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const headVersionCondition = "till_closures.version_number = (SELECT MAX(t2.version_number) FROM till_closures t2 WHERE t2.identity = till_closures.identity)"

type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: db, now: o.now}
}

func (s *GormStore) Create(ctx context.Context, c *models.TillClosure, actorID uint) error {
	prepareFirstVersion(c, actorID, s.now())
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create till closure: %w", translate(err))
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, identity uuid.UUID, expectedVersion int, actorID uint, apply ApplyFunc) (*models.TillClosure, error) {
	now := s.now()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	head, err := lockCurrent(tx, identity, expectedVersion)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	previous := historicalCopy(*head, now)
	if err := advance(head, apply, actorID, now); err != nil {
		tx.Rollback()
		return nil, err
	}

	// The head row keeps its id; the version guard makes a concurrent writer
	// that already advanced the chain lose here.
	res := tx.Model(head).
		Where("version_number = ?", expectedVersion).
		Select("*").Omit("ID").
		Updates(head)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("advance till closure: %w", translate(res.Error))
	}
	if res.RowsAffected != 1 {
		tx.Rollback()
		return nil, ErrConcurrentModification
	}

	if err := tx.Create(&previous).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store superseded version: %w", translate(err))
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit till closure update: %w", translate(err))
	}
	return head, nil
}

func (s *GormStore) Withdraw(ctx context.Context, identity uuid.UUID, expectedVersion int) (*models.TillClosure, error) {
	now := s.now()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	head, err := lockCurrent(tx, identity, expectedVersion)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	res := tx.Model(head).
		Where("version_number = ? AND version_superseded_time IS NULL", expectedVersion).
		Update("version_superseded_time", now)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("withdraw till closure: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		tx.Rollback()
		return nil, ErrConcurrentModification
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit till closure withdrawal: %w", err)
	}
	head.VersionSupersededTime = &now
	return head, nil
}

// lockCurrent reads the current version of identity with a row lock and
// checks it is still the version the caller saw.
func lockCurrent(tx *gorm.DB, identity uuid.UUID, expectedVersion int) (*models.TillClosure, error) {
	var head models.TillClosure
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identity = ? AND version_superseded_time IS NULL", identity).
		First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load current till closure: %w", err)
	}
	if head.VersionNumber != expectedVersion {
		return nil, ErrConcurrentModification
	}
	return &head, nil
}

func (s *GormStore) Current(ctx context.Context, identity uuid.UUID) (*models.TillClosure, error) {
	var c models.TillClosure
	err := s.db.WithContext(ctx).
		Where("identity = ? AND version_superseded_time IS NULL", identity).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load current till closure: %w", err)
	}
	return &c, nil
}

func (s *GormStore) Head(ctx context.Context, identity uuid.UUID) (*models.TillClosure, error) {
	var c models.TillClosure
	err := s.db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("version_number DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load till closure: %w", err)
	}
	return &c, nil
}

func (s *GormStore) IsDeleted(ctx context.Context, identity uuid.UUID) (bool, error) {
	head, err := s.Head(ctx, identity)
	if err != nil {
		return false, err
	}
	return !head.IsCurrent(), nil
}

func (s *GormStore) AuditTrail(ctx context.Context, identity uuid.UUID) ([]models.TillClosure, error) {
	var versions []models.TillClosure
	if err := s.db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("version_number ASC").
		Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("load till closure versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return versions, nil
}

func (s *GormStore) ListForOutlet(ctx context.Context, outletID uint, includeWithdrawn bool) ([]models.TillClosure, error) {
	return s.listHeads(ctx, "outlet_id = ?", outletID, includeWithdrawn)
}

func (s *GormStore) ListForPersonnel(ctx context.Context, personnelID uint, includeWithdrawn bool) ([]models.TillClosure, error) {
	return s.listHeads(ctx, "closed_by_id = ?", personnelID, includeWithdrawn)
}

func (s *GormStore) listHeads(ctx context.Context, cond string, arg uint, includeWithdrawn bool) ([]models.TillClosure, error) {
	q := s.db.WithContext(ctx).Where(cond, arg)
	if includeWithdrawn {
		q = q.Where(headVersionCondition)
	} else {
		q = q.Where("version_superseded_time IS NULL")
	}

	var closures []models.TillClosure
	if err := q.Order("close_time ASC, id ASC").Find(&closures).Error; err != nil {
		return nil, fmt.Errorf("list till closures: %w", err)
	}
	return closures, nil
}

func (s *GormStore) DailyTakings(ctx context.Context, outletID uint, from, to time.Time) ([]DailyTotal, error) {
	var rows []models.TillClosure
	err := s.db.WithContext(ctx).
		Select("close_time", "total_takings", "till_difference").
		Where("outlet_id = ? AND version_superseded_time IS NULL AND close_time >= ? AND close_time < ?", outletID, from, to).
		Order("close_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily takings: %w", err)
	}
	// Days follow the caller's zone, not the database session's.
	return sumByDay(rows, from.Location()), nil
}

// translate maps unique index violations to ErrConcurrentModification; the
// only unique indexes on till_closures guard the version chain.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConcurrentModification
	}
	return err
}
