// Package directory stores the organisation a till closure belongs to:
// businesses, their outlets and personnel, and the staff positions that
// link personnel to outlets.
package directory

import (
	"context"
	"errors"

	"cashup-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Directory interface {
	// CreateBusinessWithOwner stores a new business and its owning personnel
	// together.
	CreateBusinessWithOwner(ctx context.Context, b *models.Business, owner *models.Personnel) error
	GetBusiness(ctx context.Context, id uint) (*models.Business, error)
	UpdateBusiness(ctx context.Context, b *models.Business) error

	CreatePersonnel(ctx context.Context, p *models.Personnel) error
	GetPersonnel(ctx context.Context, id uint) (*models.Personnel, error)
	GetPersonnelByEmail(ctx context.Context, email string) (*models.Personnel, error)
	ListPersonnel(ctx context.Context, businessID uint) ([]models.Personnel, error)

	// CreateOutlet stores o and makes creatorID a staff member of it.
	CreateOutlet(ctx context.Context, o *models.Outlet, creatorID uint) error
	GetOutlet(ctx context.Context, id uint) (*models.Outlet, error)
	GetOutletByName(ctx context.Context, businessID uint, name string) (*models.Outlet, error)
	UpdateOutlet(ctx context.Context, o *models.Outlet) error
	ListOutlets(ctx context.Context, businessID uint) ([]models.Outlet, error)

	Position(ctx context.Context, outletID, personnelID uint) (*models.StaffPosition, error)
	// StaffOutlets lists the outlets personnelID holds an active position at,
	// ordered by name. With managerOnly only manager positions count.
	StaffOutlets(ctx context.Context, personnelID uint, managerOnly bool) ([]models.Outlet, error)
	UpsertPosition(ctx context.Context, p *models.StaffPosition) error
	RemovePosition(ctx context.Context, outletID, personnelID uint) error
	ListPositions(ctx context.Context, outletID uint) ([]models.StaffPosition, error)
}
