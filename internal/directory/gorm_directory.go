package directory

import (
	"context"
	"errors"
	"fmt"

	"cashup-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) CreateBusinessWithOwner(ctx context.Context, b *models.Business, owner *models.Personnel) error {
	tx := d.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Create(b).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("create business: %w", translate(err))
	}

	owner.BusinessID = b.ID
	owner.IsOwner = true
	if err := tx.Create(owner).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("create owner: %w", translate(err))
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit business: %w", err)
	}
	return nil
}

func (d *GormDirectory) GetBusiness(ctx context.Context, id uint) (*models.Business, error) {
	var b models.Business
	if err := d.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "load business")
	}
	return &b, nil
}

func (d *GormDirectory) UpdateBusiness(ctx context.Context, b *models.Business) error {
	if err := d.db.WithContext(ctx).Save(b).Error; err != nil {
		return fmt.Errorf("update business: %w", translate(err))
	}
	return nil
}

func (d *GormDirectory) CreatePersonnel(ctx context.Context, p *models.Personnel) error {
	if err := d.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("create personnel: %w", translate(err))
	}
	return nil
}

func (d *GormDirectory) GetPersonnel(ctx context.Context, id uint) (*models.Personnel, error) {
	var p models.Personnel
	if err := d.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "load personnel")
	}
	return &p, nil
}

func (d *GormDirectory) GetPersonnelByEmail(ctx context.Context, email string) (*models.Personnel, error) {
	var p models.Personnel
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, notFound(err, "load personnel")
	}
	return &p, nil
}

func (d *GormDirectory) ListPersonnel(ctx context.Context, businessID uint) ([]models.Personnel, error) {
	var out []models.Personnel
	if err := d.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list personnel: %w", err)
	}
	return out, nil
}

func (d *GormDirectory) CreateOutlet(ctx context.Context, o *models.Outlet, creatorID uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("create outlet: %w", translate(err))
		}
		pos := models.StaffPosition{OutletID: o.ID, PersonnelID: creatorID, IsStaff: true}
		if err := tx.Create(&pos).Error; err != nil {
			return fmt.Errorf("add outlet creator as staff: %w", translate(err))
		}
		return nil
	})
}

func (d *GormDirectory) GetOutlet(ctx context.Context, id uint) (*models.Outlet, error) {
	var o models.Outlet
	if err := d.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, notFound(err, "load outlet")
	}
	return &o, nil
}

func (d *GormDirectory) GetOutletByName(ctx context.Context, businessID uint, name string) (*models.Outlet, error) {
	var o models.Outlet
	if err := d.db.WithContext(ctx).
		Where("business_id = ? AND name = ?", businessID, name).
		First(&o).Error; err != nil {
		return nil, notFound(err, "load outlet")
	}
	return &o, nil
}

func (d *GormDirectory) UpdateOutlet(ctx context.Context, o *models.Outlet) error {
	if err := d.db.WithContext(ctx).Save(o).Error; err != nil {
		return fmt.Errorf("update outlet: %w", translate(err))
	}
	return nil
}

func (d *GormDirectory) ListOutlets(ctx context.Context, businessID uint) ([]models.Outlet, error) {
	var out []models.Outlet
	if err := d.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list outlets: %w", err)
	}
	return out, nil
}

func (d *GormDirectory) Position(ctx context.Context, outletID, personnelID uint) (*models.StaffPosition, error) {
	var p models.StaffPosition
	if err := d.db.WithContext(ctx).
		Where("outlet_id = ? AND personnel_id = ?", outletID, personnelID).
		First(&p).Error; err != nil {
		return nil, notFound(err, "load staff position")
	}
	return &p, nil
}

func (d *GormDirectory) StaffOutlets(ctx context.Context, personnelID uint, managerOnly bool) ([]models.Outlet, error) {
	q := d.db.WithContext(ctx).
		Joins("JOIN staff_positions sp ON sp.outlet_id = outlets.id").
		Where("sp.personnel_id = ?", personnelID)
	if managerOnly {
		q = q.Where("sp.is_manager = ?", true)
	} else {
		q = q.Where("(sp.is_staff = ? OR sp.is_manager = ?)", true, true)
	}

	var out []models.Outlet
	if err := q.Order("outlets.name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list staff outlets: %w", err)
	}
	return out, nil
}

func (d *GormDirectory) UpsertPosition(ctx context.Context, p *models.StaffPosition) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outlet_id"}, {Name: "personnel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_manager", "is_staff", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return fmt.Errorf("save staff position: %w", err)
	}
	return nil
}

func (d *GormDirectory) RemovePosition(ctx context.Context, outletID, personnelID uint) error {
	res := d.db.WithContext(ctx).
		Where("outlet_id = ? AND personnel_id = ?", outletID, personnelID).
		Delete(&models.StaffPosition{})
	if res.Error != nil {
		return fmt.Errorf("remove staff position: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *GormDirectory) ListPositions(ctx context.Context, outletID uint) ([]models.StaffPosition, error) {
	var out []models.StaffPosition
	if err := d.db.WithContext(ctx).
		Where("outlet_id = ?", outletID).
		Order("personnel_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list staff positions: %w", err)
	}
	return out, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
