// Package scope decides which outlets a person can see and how they relate
// to a given outlet.
package scope

import (
	"context"
	"errors"
	"sort"

	"cashup-backend/internal/directory"
	"cashup-backend/internal/models"
)

// Source is the part of the directory the resolver reads.
type Source interface {
	ListOutlets(ctx context.Context, businessID uint) ([]models.Outlet, error)
	StaffOutlets(ctx context.Context, personnelID uint, managerOnly bool) ([]models.Outlet, error)
	Position(ctx context.Context, outletID, personnelID uint) (*models.StaffPosition, error)
	GetOutlet(ctx context.Context, id uint) (*models.Outlet, error)
}

type Resolver struct {
	src Source
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// OutletsFor lists the outlets visible to p ordered by name. Owners see every
// outlet of their business; everyone else sees the outlets they hold a
// position at, or only those they manage when managerOnly is set.
func (r *Resolver) OutletsFor(ctx context.Context, p *models.Personnel, managerOnly bool) ([]models.Outlet, error) {
	if p == nil {
		return []models.Outlet{}, nil
	}

	var (
		outlets []models.Outlet
		err     error
	)
	if p.IsOwner {
		outlets, err = r.src.ListOutlets(ctx, p.BusinessID)
	} else {
		outlets, err = r.src.StaffOutlets(ctx, p.ID, managerOnly)
	}
	if err != nil {
		return nil, err
	}
	return dedupeSorted(outlets), nil
}

func dedupeSorted(outlets []models.Outlet) []models.Outlet {
	seen := make(map[uint]bool, len(outlets))
	out := make([]models.Outlet, 0, len(outlets))
	for _, o := range outlets {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsOutletStaff reports whether p holds a staff or manager position at the
// outlet.
func (r *Resolver) IsOutletStaff(ctx context.Context, p *models.Personnel, outletID uint) (bool, error) {
	pos, err := r.position(ctx, p, outletID)
	if err != nil || pos == nil {
		return false, err
	}
	return pos.Active(), nil
}

func (r *Resolver) IsOutletManager(ctx context.Context, p *models.Personnel, outletID uint) (bool, error) {
	pos, err := r.position(ctx, p, outletID)
	if err != nil || pos == nil {
		return false, err
	}
	return pos.IsManager, nil
}

func (r *Resolver) position(ctx context.Context, p *models.Personnel, outletID uint) (*models.StaffPosition, error) {
	if p == nil {
		return nil, nil
	}
	pos, err := r.src.Position(ctx, outletID, p.ID)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil
	}
	return pos, err
}

// OutletBusinessID returns the business an outlet belongs to.
func (r *Resolver) OutletBusinessID(ctx context.Context, outletID uint) (uint, error) {
	o, err := r.src.GetOutlet(ctx, outletID)
	if err != nil {
		return 0, err
	}
	return o.BusinessID, nil
}
