package rules

import (
	"context"
	"time"

	"cashup-backend/internal/models"
	"cashup-backend/internal/till"
)

const (
	ViewBusiness   = "cashup.view_business"
	ChangeBusiness = "cashup.change_business"
	ViewActivity   = "cashup.view_activity"

	ViewPersonnelList                  = "cashup.view_personnel_list"
	CreatePersonnel                    = "cashup.create_personnel"
	ViewPersonnelTillClosureList       = "cashup.view_personnel_tillclosure_list"
	ViewPersonnelTillClosureAuditTrail = "cashup.view_personnel_tillclosure_audit_trail"

	CreateOutlet                    = "cashup.create_outlet"
	ChangeOutlet                    = "cashup.change_outlet"
	ViewOutlet                      = "cashup.view_outlet"
	ChangeOutletStaff               = "cashup.change_outlet_staff"
	ViewOutletTillClosureAuditTrail = "cashup.view_outlet_tillclosure_audit_trail"
	ViewTillClosuresForOutlet       = "cashup.view_tillclosures_for_outlet"
	CreateTillClosureForOutlet      = "cashup.create_tillclosure_for_outlet"

	ViewTillClosure           = "cashup.view_tillclosure"
	ChangeTillClosure         = "cashup.change_tillclosure"
	DeleteTillClosure         = "cashup.delete_tillclosure"
	ViewTillClosureAuditTrail = "cashup.view_tillclosure_audit_trail"
)

// Relations answers the staff questions predicates cannot answer from their
// target alone.
type Relations interface {
	IsOutletStaff(ctx context.Context, p *models.Personnel, outletID uint) (bool, error)
	IsOutletManager(ctx context.Context, p *models.Personnel, outletID uint) (bool, error)
	OutletBusinessID(ctx context.Context, outletID uint) (uint, error)
}

// NewCashupRegistry registers every cashup permission. Till closure targets
// must be the newest version of their identity so that a withdrawn closure
// reads as deleted.
func NewCashupRegistry(rel Relations, now func() time.Time, editablePeriod time.Duration) (*Registry, error) {
	if now == nil {
		now = time.Now
	}

	isABusinessOwner := New("is_a_business_owner", func(_ context.Context, actor *models.Personnel, _ any) (bool, error) {
		return actor != nil && actor.IsOwner, nil
	})
	isBusinessOwner := on("is_business_owner", func(_ context.Context, actor *models.Personnel, b *models.Business) (bool, error) {
		return ownsBusiness(actor, b.ID), nil
	})

	isPersonnel := on("is_personnel", func(_ context.Context, actor *models.Personnel, p *models.Personnel) (bool, error) {
		return actor.ID == p.ID, nil
	})
	isPersonnelBusinessOwner := on("is_personnel_business_owner", func(_ context.Context, actor *models.Personnel, p *models.Personnel) (bool, error) {
		return ownsBusiness(actor, p.BusinessID), nil
	})

	isOutletOwner := on("is_outlet_owner", func(_ context.Context, actor *models.Personnel, o *models.Outlet) (bool, error) {
		return ownsBusiness(actor, o.BusinessID), nil
	})
	isOutletManager := on("is_outlet_manager", func(ctx context.Context, actor *models.Personnel, o *models.Outlet) (bool, error) {
		return rel.IsOutletManager(ctx, actor, o.ID)
	})
	isOutletStaff := on("is_outlet_staff", func(ctx context.Context, actor *models.Personnel, o *models.Outlet) (bool, error) {
		return rel.IsOutletStaff(ctx, actor, o.ID)
	})

	isEditable := on("is_editable", func(_ context.Context, _ *models.Personnel, c *models.TillClosure) (bool, error) {
		return till.IsEditable(c.CloseTime, now(), editablePeriod), nil
	})
	isNotDeleted := on("is_not_deleted", func(_ context.Context, _ *models.Personnel, c *models.TillClosure) (bool, error) {
		return c.IsCurrent(), nil
	})
	isClosureOutletOwner := on("is_tillclosure_outlet_owner", func(ctx context.Context, actor *models.Personnel, c *models.TillClosure) (bool, error) {
		if !actor.IsOwner {
			return false, nil
		}
		businessID, err := rel.OutletBusinessID(ctx, c.OutletID)
		if err != nil {
			return false, err
		}
		return ownsBusiness(actor, businessID), nil
	})
	isClosureOutletManager := on("is_tillclosure_outlet_manager", func(ctx context.Context, actor *models.Personnel, c *models.TillClosure) (bool, error) {
		return rel.IsOutletManager(ctx, actor, c.OutletID)
	})
	isClosureOutletStaff := on("is_tillclosure_outlet_staff", func(ctx context.Context, actor *models.Personnel, c *models.TillClosure) (bool, error) {
		return rel.IsOutletStaff(ctx, actor, c.OutletID)
	})

	staffAndEditable := And(isClosureOutletStaff, isEditable, isNotDeleted)
	staffAndNotDeleted := And(isClosureOutletStaff, isNotDeleted)
	managerOrOwner := Or(isClosureOutletManager, isClosureOutletOwner)

	r := NewRegistry()
	for name, p := range map[string]Predicate{
		ViewBusiness:   isBusinessOwner,
		ChangeBusiness: isBusinessOwner,
		ViewActivity:   isABusinessOwner,

		ViewPersonnelList:                  isABusinessOwner,
		CreatePersonnel:                    isABusinessOwner,
		ViewPersonnelTillClosureList:       Or(isPersonnel, isPersonnelBusinessOwner),
		ViewPersonnelTillClosureAuditTrail: isPersonnelBusinessOwner,

		ChangeOutlet:                    Or(isOutletOwner, isOutletManager),
		ViewOutlet:                      Or(isOutletOwner, isOutletStaff),
		CreateOutlet:                    isABusinessOwner,
		ChangeOutletStaff:               isOutletOwner,
		ViewOutletTillClosureAuditTrail: Or(isOutletManager, isOutletOwner),
		ViewTillClosuresForOutlet:       Or(isOutletStaff, isOutletOwner),
		CreateTillClosureForOutlet:      Or(isOutletStaff, isOutletOwner),

		ViewTillClosure:           Or(staffAndNotDeleted, isClosureOutletManager, isClosureOutletOwner),
		ChangeTillClosure:         Or(staffAndEditable, isClosureOutletOwner),
		DeleteTillClosure:         And(isNotDeleted, managerOrOwner),
		ViewTillClosureAuditTrail: managerOrOwner,
	} {
		if err := r.Add(name, p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func ownsBusiness(actor *models.Personnel, businessID uint) bool {
	return actor.IsOwner && actor.BusinessID == businessID
}
