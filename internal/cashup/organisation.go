package cashup

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"

	"cashup-backend/internal/audit"
	"cashup-backend/internal/directory"
	"cashup-backend/internal/models"
	"cashup-backend/internal/rules"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

const (
	maxBusinessName = 12
	maxOutletName   = 24
	minPassword     = 8
)

type RegisterInput struct {
	BusinessName string
	Name         string
	Email        string
	Password     string
}

type PersonnelInput struct {
	Name      string
	Email     string
	Password  string
	IsManager bool
}

type OutletInput struct {
	Name         string
	DefaultFloat decimal.Decimal
}

type OutletUpdate struct {
	Name         *string
	DefaultFloat *decimal.Decimal
}

func checkSlug(fields map[string]string, field, v string, max int) {
	switch {
	case v == "":
		fields[field] = "must not be empty"
	case len(v) > max:
		fields[field] = fmt.Sprintf("must be at most %d characters", max)
	case !slugPattern.MatchString(v):
		fields[field] = "may only contain letters, numbers, hyphens and underscores"
	}
}

func checkFloat(fields map[string]string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		fields["default_float"] = "must not be negative"
	case !v.Equal(v.Round(2)):
		fields["default_float"] = "must have at most 2 decimal places"
	}
}

func checkCredentials(fields map[string]string, email, password string) {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(password) < minPassword {
		fields["password"] = fmt.Sprintf("must be at least %d characters", minPassword)
	}
}

func fieldsError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterBusiness creates a business together with its owner.
func (s *Service) RegisterBusiness(ctx context.Context, in RegisterInput) (*models.Business, *models.Personnel, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Email = normaliseEmail(in.Email)

	fields := map[string]string{}
	checkSlug(fields, "business_name", in.BusinessName, maxBusinessName)
	checkCredentials(fields, in.Email, in.Password)
	if err := fieldsError(fields); err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	business := &models.Business{Name: in.BusinessName}
	owner := &models.Personnel{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.dir.CreateBusinessWithOwner(ctx, business, owner); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			return nil, nil, invalid("email", "is already registered")
		}
		return nil, nil, err
	}

	s.record(ctx, audit.Entry{
		BusinessID:  business.ID,
		Actor:       owner,
		EntityType:  "business",
		EntityID:    strconv.FormatUint(uint64(business.ID), 10),
		Action:      models.AuditActionCreate,
		Description: "Registered business " + business.Name,
		After:       business,
	})
	s.log.Info("business registered", zap.Uint("business_id", business.ID), zap.Uint("owner_id", owner.ID))
	return business, owner, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Personnel, error) {
	p, err := s.dir.GetPersonnelByEmail(ctx, normaliseEmail(email))
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

func (s *Service) GetBusiness(ctx context.Context, actor *models.Personnel) (*models.Business, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	b, err := s.dir.GetBusiness(ctx, actor.BusinessID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewBusiness, actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) UpdateBusiness(ctx context.Context, actor *models.Personnel, name string) (*models.Business, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	b, err := s.dir.GetBusiness(ctx, actor.BusinessID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ChangeBusiness, actor, b); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	fields := map[string]string{}
	checkSlug(fields, "name", name, maxBusinessName)
	if err := fieldsError(fields); err != nil {
		return nil, err
	}

	before := *b
	b.Name = name
	if err := s.dir.UpdateBusiness(ctx, b); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		EntityType:  "business",
		EntityID:    strconv.FormatUint(uint64(b.ID), 10),
		Action:      models.AuditActionUpdate,
		Description: "Renamed business " + before.Name + " to " + b.Name,
		Before:      before,
		After:       b,
	})
	return b, nil
}

// OutletsFor lists the outlets visible to actor, by name.
func (s *Service) OutletsFor(ctx context.Context, actor *models.Personnel, managerOnly bool) ([]models.Outlet, error) {
	return s.scope.OutletsFor(ctx, actor, managerOnly)
}

// HomeOutlet returns the actor's only outlet, or nil when there are none or
// several to choose from.
func (s *Service) HomeOutlet(ctx context.Context, actor *models.Personnel) (*models.Outlet, error) {
	outlets, err := s.scope.OutletsFor(ctx, actor, false)
	if err != nil {
		return nil, err
	}
	if len(outlets) != 1 {
		return nil, nil
	}
	return &outlets[0], nil
}

// OutletByName finds an outlet of the actor's business. It does not check
// any permission; the operation performed on the outlet does.
func (s *Service) OutletByName(ctx context.Context, actor *models.Personnel, name string) (*models.Outlet, error) {
	if actor == nil {
		return nil, ErrNotFound
	}
	o, err := s.dir.GetOutletByName(ctx, actor.BusinessID, name)
	if err != nil {
		return nil, translate(err)
	}
	return o, nil
}

func (s *Service) GetOutlet(ctx context.Context, actor *models.Personnel, outletID uint) (*models.Outlet, error) {
	o, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewOutlet, actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOutlet adds an outlet to the actor's business and makes the actor
// staff of it.
func (s *Service) CreateOutlet(ctx context.Context, actor *models.Personnel, in OutletInput) (*models.Outlet, error) {
	if err := s.require(ctx, rules.CreateOutlet, actor, nil); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	fields := map[string]string{}
	checkSlug(fields, "name", in.Name, maxOutletName)
	checkFloat(fields, in.DefaultFloat)
	if err := fieldsError(fields); err != nil {
		return nil, err
	}

	o := &models.Outlet{BusinessID: actor.BusinessID, Name: in.Name, DefaultFloat: in.DefaultFloat}
	if err := s.dir.CreateOutlet(ctx, o, actor.ID); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			return nil, invalid("name", "an outlet with this name already exists")
		}
		return nil, err
	}

	outletID := o.ID
	s.record(ctx, audit.Entry{
		OutletID:    &outletID,
		Actor:       actor,
		EntityType:  "outlet",
		EntityID:    strconv.FormatUint(uint64(o.ID), 10),
		Action:      models.AuditActionCreate,
		Description: "Created outlet " + o.Name,
		After:       o,
	})
	return o, nil
}

func (s *Service) UpdateOutlet(ctx context.Context, actor *models.Personnel, outletID uint, in OutletUpdate) (*models.Outlet, error) {
	o, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ChangeOutlet, actor, o); err != nil {
		return nil, err
	}

	before := *o
	fields := map[string]string{}
	if in.Name != nil {
		o.Name = strings.TrimSpace(*in.Name)
		checkSlug(fields, "name", o.Name, maxOutletName)
	}
	if in.DefaultFloat != nil {
		o.DefaultFloat = *in.DefaultFloat
		checkFloat(fields, o.DefaultFloat)
	}
	if err := fieldsError(fields); err != nil {
		return nil, err
	}

	if err := s.dir.UpdateOutlet(ctx, o); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			return nil, invalid("name", "an outlet with this name already exists")
		}
		return nil, translate(err)
	}

	s.record(ctx, audit.Entry{
		OutletID:    &outletID,
		Actor:       actor,
		EntityType:  "outlet",
		EntityID:    strconv.FormatUint(uint64(o.ID), 10),
		Action:      models.AuditActionUpdate,
		Description: "Updated outlet " + o.Name,
		Before:      before,
		After:       o,
	})
	return o, nil
}

// CreatePersonnel adds a person to the actor's business.
func (s *Service) CreatePersonnel(ctx context.Context, actor *models.Personnel, in PersonnelInput) (*models.Personnel, error) {
	if err := s.require(ctx, rules.CreatePersonnel, actor, nil); err != nil {
		return nil, err
	}

	in.Email = normaliseEmail(in.Email)
	fields := map[string]string{}
	checkCredentials(fields, in.Email, in.Password)
	if err := fieldsError(fields); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &models.Personnel{
		BusinessID:   actor.BusinessID,
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
		IsManager:    in.IsManager,
	}
	if err := s.dir.CreatePersonnel(ctx, p); err != nil {
		if errors.Is(err, directory.ErrDuplicate) {
			return nil, invalid("email", "is already registered")
		}
		return nil, err
	}

	s.record(ctx, audit.Entry{
		Actor:       actor,
		EntityType:  "personnel",
		EntityID:    strconv.FormatUint(uint64(p.ID), 10),
		Action:      models.AuditActionCreate,
		Description: "Added " + p.DisplayName(),
	})
	return p, nil
}

func (s *Service) ListPersonnel(ctx context.Context, actor *models.Personnel) ([]models.Personnel, error) {
	if err := s.require(ctx, rules.ViewPersonnelList, actor, nil); err != nil {
		return nil, err
	}
	return s.dir.ListPersonnel(ctx, actor.BusinessID)
}

// AssignPosition creates or replaces a person's position at an outlet.
func (s *Service) AssignPosition(ctx context.Context, actor *models.Personnel, outletID, personnelID uint, isManager, isStaff bool) (*models.StaffPosition, error) {
	o, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ChangeOutletStaff, actor, o); err != nil {
		return nil, err
	}
	person, err := s.dir.GetPersonnel(ctx, personnelID)
	if err != nil {
		return nil, translate(err)
	}
	if person.BusinessID != o.BusinessID {
		return nil, ErrNotFound
	}

	pos := &models.StaffPosition{OutletID: o.ID, PersonnelID: person.ID, IsManager: isManager, IsStaff: isStaff}
	if err := s.dir.UpsertPosition(ctx, pos); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Entry{
		OutletID:    &outletID,
		Actor:       actor,
		EntityType:  "staff_position",
		EntityID:    fmt.Sprintf("%d:%d", o.ID, person.ID),
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Set %s at %s (manager=%t, staff=%t)", person.DisplayName(), o.Name, isManager, isStaff),
		After:       pos,
	})
	return pos, nil
}

func (s *Service) RemovePosition(ctx context.Context, actor *models.Personnel, outletID, personnelID uint) error {
	o, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return translate(err)
	}
	if err := s.require(ctx, rules.ChangeOutletStaff, actor, o); err != nil {
		return err
	}
	if err := s.dir.RemovePosition(ctx, o.ID, personnelID); err != nil {
		return translate(err)
	}

	s.record(ctx, audit.Entry{
		OutletID:    &outletID,
		Actor:       actor,
		EntityType:  "staff_position",
		EntityID:    fmt.Sprintf("%d:%d", o.ID, personnelID),
		Action:      models.AuditActionDelete,
		Description: "Removed staff position at " + o.Name,
	})
	return nil
}

func (s *Service) ListPositions(ctx context.Context, actor *models.Personnel, outletID uint) ([]models.StaffPosition, error) {
	o, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewOutlet, actor, o); err != nil {
		return nil, err
	}
	return s.dir.ListPositions(ctx, o.ID)
}

// ListActivity returns the organisation changes of the actor's business.
func (s *Service) ListActivity(ctx context.Context, actor *models.Personnel, f audit.Filter) ([]models.AuditLog, error) {
	if err := s.require(ctx, rules.ViewActivity, actor, nil); err != nil {
		return nil, err
	}
	if s.activity == nil {
		return []models.AuditLog{}, nil
	}
	f.BusinessID = actor.BusinessID
	return s.activity.List(ctx, f)
}

// PersonnelNames maps personnel of the actor's business to display names.
// IDs from other businesses or unknown IDs are left out.
func (s *Service) PersonnelNames(ctx context.Context, actor *models.Personnel, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if actor == nil {
		return names, nil
	}
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := s.dir.GetPersonnel(ctx, id)
		if errors.Is(err, directory.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.BusinessID == actor.BusinessID {
			names[id] = p.DisplayName()
		}
	}
	return names, nil
}
