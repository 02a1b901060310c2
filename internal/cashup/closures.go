package cashup

import (
	"context"
	"errors"
	"time"

	"cashup-backend/internal/audit"
	"cashup-backend/internal/closure"
	"cashup-backend/internal/models"
	"cashup-backend/internal/rules"
	"cashup-backend/internal/till"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClosureInput is a new till closure as entered by staff. A nil CloseTime
// means now; a nil TillFloat means the outlet's default float.
type ClosureInput struct {
	CloseTime   *time.Time
	CashTakings decimal.Decimal
	CardTakings decimal.Decimal
	TillFloat   *decimal.Decimal
	Counts      till.Counts
	Notes       string
}

// AmendInput changes the fields that are set and keeps the rest.
// ExpectedVersion is the version the editor started from; without it the
// version read at the start of the call is used.
type AmendInput struct {
	ExpectedVersion *int
	CloseTime       *time.Time
	CashTakings     *decimal.Decimal
	CardTakings     *decimal.Decimal
	TillFloat       *decimal.Decimal
	Counts          *till.Counts
	Notes           *string
}

func (in AmendInput) apply(c *models.TillClosure) {
	if in.CloseTime != nil {
		c.CloseTime = *in.CloseTime
	}
	if in.CashTakings != nil {
		c.CashTakings = *in.CashTakings
	}
	if in.CardTakings != nil {
		c.CardTakings = *in.CardTakings
	}
	if in.TillFloat != nil {
		c.TillFloat = *in.TillFloat
	}
	if in.Counts != nil {
		c.SetCounts(*in.Counts)
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
}

// ClosureList is an ordered list of closures with totals over the ones that
// have not been withdrawn.
type ClosureList struct {
	Closures       []models.TillClosure
	TotalTakings   decimal.Decimal
	TillDifference decimal.Decimal
}

func newClosureList(closures []models.TillClosure) *ClosureList {
	list := &ClosureList{Closures: closures}
	for i := range closures {
		if !closures[i].IsCurrent() {
			continue
		}
		list.TotalTakings = list.TotalTakings.Add(closures[i].TotalTakings)
		list.TillDifference = list.TillDifference.Add(closures[i].TillDifference)
	}
	return list
}

func (s *Service) validateClosure(c *models.TillClosure) error {
	fields := till.Validate(c.Inputs())
	if c.CloseTime.After(s.now()) {
		if fields == nil {
			fields = till.FieldErrors{}
		}
		fields["close_time"] = "must not be in the future"
	}
	if fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// SubmitClosure records a new till closure for an outlet as version 1.
func (s *Service) SubmitClosure(ctx context.Context, actor *models.Personnel, outletID uint, in ClosureInput) (*models.TillClosure, error) {
	outlet, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.CreateTillClosureForOutlet, actor, outlet); err != nil {
		return nil, err
	}

	c := &models.TillClosure{
		OutletID:    outlet.ID,
		ClosedByID:  actor.ID,
		CloseTime:   s.now(),
		CashTakings: in.CashTakings,
		CardTakings: in.CardTakings,
		TillFloat:   outlet.DefaultFloat,
		Notes:       in.Notes,
	}
	if in.CloseTime != nil {
		c.CloseTime = *in.CloseTime
	}
	if in.TillFloat != nil {
		c.TillFloat = *in.TillFloat
	}
	c.SetCounts(in.Counts)

	if err := s.validateClosure(c); err != nil {
		return nil, err
	}
	if err := s.closures.Create(ctx, c, actor.ID); err != nil {
		return nil, translate(err)
	}

	s.log.Info("till closure submitted",
		zap.String("identity", c.Identity.String()),
		zap.Uint("outlet_id", c.OutletID),
		zap.Uint("personnel_id", actor.ID),
		zap.String("till_difference", c.TillDifference.StringFixed(2)))
	return c, nil
}

// AmendClosure replaces the current version of a closure with an edited one.
// The replaced version stays in the audit trail.
func (s *Service) AmendClosure(ctx context.Context, actor *models.Personnel, identity uuid.UUID, in AmendInput) (*models.TillClosure, error) {
	head, err := s.closures.Head(ctx, identity)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ChangeTillClosure, actor, head); err != nil {
		return nil, s.hideWithdrawn(ctx, actor, head, err)
	}
	if !head.IsCurrent() {
		return nil, ErrNotFound
	}

	edited := *head
	in.apply(&edited)
	if err := s.validateClosure(&edited); err != nil {
		return nil, err
	}
	// A later close time would reopen the editing window.
	if till.TruncateToMinute(edited.CloseTime).After(head.CloseTime) {
		owner, err := s.ownsOutlet(ctx, actor, head.OutletID)
		if err != nil {
			return nil, err
		}
		if !owner {
			return nil, invalid("close_time", "only the business owner can move the close time later")
		}
	}

	expected := head.VersionNumber
	if in.ExpectedVersion != nil {
		expected = *in.ExpectedVersion
	}

	release, err := s.locker.Lock(ctx, lockKey(identity))
	if err != nil {
		return nil, translate(err)
	}
	defer release()

	updated, err := s.closures.Update(ctx, identity, expected, actor.ID, func(c *models.TillClosure) error {
		in.apply(c)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.log.Info("till closure amended",
		zap.String("identity", identity.String()),
		zap.Int("version", updated.VersionNumber),
		zap.Uint("personnel_id", actor.ID))
	return updated, nil
}

// WithdrawClosure removes a closure from the current lists. Every version,
// including the withdrawn one, stays in the audit trail.
func (s *Service) WithdrawClosure(ctx context.Context, actor *models.Personnel, identity uuid.UUID, expectedVersion *int) (*models.TillClosure, error) {
	head, err := s.closures.Head(ctx, identity)
	if err != nil {
		return nil, translate(err)
	}
	if !head.IsCurrent() {
		return nil, ErrNotFound
	}
	if err := s.require(ctx, rules.DeleteTillClosure, actor, head); err != nil {
		return nil, err
	}

	expected := head.VersionNumber
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	release, err := s.locker.Lock(ctx, lockKey(identity))
	if err != nil {
		return nil, translate(err)
	}
	defer release()

	withdrawn, err := s.closures.Withdraw(ctx, identity, expected)
	if err != nil {
		return nil, translate(err)
	}

	outletID := withdrawn.OutletID
	s.record(ctx, audit.Entry{
		OutletID:    &outletID,
		Actor:       actor,
		EntityType:  "till_closure",
		EntityID:    identity.String(),
		Action:      models.AuditActionDelete,
		Description: "Withdrew till closure of " + withdrawn.CloseTime.Format("2006-01-02 15:04"),
	})
	s.log.Info("till closure withdrawn",
		zap.String("identity", identity.String()),
		zap.Uint("personnel_id", actor.ID))
	return withdrawn, nil
}

// GetCurrentClosure returns the newest version of a closure. Withdrawn
// closures are returned only to actors allowed to see them; everyone else
// gets ErrNotFound.
func (s *Service) GetCurrentClosure(ctx context.Context, actor *models.Personnel, identity uuid.UUID) (*models.TillClosure, error) {
	head, err := s.closures.Head(ctx, identity)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewTillClosure, actor, head); err != nil {
		return nil, s.hideWithdrawn(ctx, actor, head, err)
	}
	return head, nil
}

// hideWithdrawn turns a denial on a withdrawn closure into ErrNotFound
// unless the actor may see withdrawn closures.
func (s *Service) hideWithdrawn(ctx context.Context, actor *models.Personnel, head *models.TillClosure, denied error) error {
	if !errors.Is(denied, ErrPermissionDenied) || head.IsCurrent() {
		return denied
	}
	if ok, err := s.rules.Check(ctx, rules.ViewTillClosure, actor, head); err == nil && ok {
		return denied
	}
	return ErrNotFound
}

// GetAuditTrail returns every version of a closure, oldest first.
func (s *Service) GetAuditTrail(ctx context.Context, actor *models.Personnel, identity uuid.UUID) ([]models.TillClosure, error) {
	head, err := s.closures.Head(ctx, identity)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewTillClosureAuditTrail, actor, head); err != nil {
		return nil, s.hideWithdrawn(ctx, actor, head, err)
	}
	versions, err := s.closures.AuditTrail(ctx, identity)
	if err != nil {
		return nil, translate(err)
	}
	return versions, nil
}

// IsDeleted reports whether a closure has been withdrawn.
func (s *Service) IsDeleted(ctx context.Context, actor *models.Personnel, identity uuid.UUID) (bool, error) {
	head, err := s.closures.Head(ctx, identity)
	if err != nil {
		return false, translate(err)
	}
	if err := s.require(ctx, rules.ViewTillClosure, actor, head); err != nil {
		return false, s.hideWithdrawn(ctx, actor, head, err)
	}
	return !head.IsCurrent(), nil
}

// ListOutletClosures lists an outlet's closures by close time. Withdrawn
// closures are included only when asked for and allowed.
func (s *Service) ListOutletClosures(ctx context.Context, actor *models.Personnel, outletID uint, includeDeleted bool) (*ClosureList, error) {
	outlet, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewTillClosuresForOutlet, actor, outlet); err != nil {
		return nil, err
	}
	if includeDeleted {
		if err := s.require(ctx, rules.ViewOutletTillClosureAuditTrail, actor, outlet); err != nil {
			return nil, err
		}
	}

	closures, err := s.closures.ListForOutlet(ctx, outlet.ID, includeDeleted)
	if err != nil {
		return nil, translate(err)
	}
	return newClosureList(closures), nil
}

// ListPersonnelClosures lists the closures a person closed, across outlets.
func (s *Service) ListPersonnelClosures(ctx context.Context, actor *models.Personnel, personnelID uint, includeDeleted bool) (*ClosureList, error) {
	person, err := s.dir.GetPersonnel(ctx, personnelID)
	if err != nil {
		return nil, translate(err)
	}
	if actor == nil || person.BusinessID != actor.BusinessID {
		return nil, ErrNotFound
	}
	if err := s.require(ctx, rules.ViewPersonnelTillClosureList, actor, person); err != nil {
		return nil, err
	}
	if includeDeleted {
		if err := s.require(ctx, rules.ViewPersonnelTillClosureAuditTrail, actor, person); err != nil {
			return nil, err
		}
	}

	closures, err := s.closures.ListForPersonnel(ctx, person.ID, includeDeleted)
	if err != nil {
		return nil, translate(err)
	}
	return newClosureList(closures), nil
}

// DailyTakings returns one total per day for the last days days, oldest
// first, with zero totals for days without closures.
func (s *Service) DailyTakings(ctx context.Context, actor *models.Personnel, outletID uint, days int) ([]closure.DailyTotal, error) {
	outlet, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.require(ctx, rules.ViewTillClosuresForOutlet, actor, outlet); err != nil {
		return nil, err
	}
	if days < 1 || days > 92 {
		return nil, invalid("days", "must be between 1 and 92")
	}

	now := s.now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	totals, err := s.closures.DailyTakings(ctx, outlet.ID, from, to)
	if err != nil {
		return nil, translate(err)
	}

	byDay := make(map[string]closure.DailyTotal, len(totals))
	for _, t := range totals {
		byDay[t.Day.Format("2006-01-02")] = t
	}
	out := make([]closure.DailyTotal, 0, days)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		t, ok := byDay[day.Format("2006-01-02")]
		if !ok {
			t = closure.DailyTotal{TotalTakings: decimal.Zero, TillDifference: decimal.Zero}
		}
		t.Day = day
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) ownsOutlet(ctx context.Context, actor *models.Personnel, outletID uint) (bool, error) {
	if actor == nil || !actor.IsOwner {
		return false, nil
	}
	outlet, err := s.dir.GetOutlet(ctx, outletID)
	if err != nil {
		return false, translate(err)
	}
	return outlet.BusinessID == actor.BusinessID, nil
}

func lockKey(identity uuid.UUID) string {
	return "tillclosure:" + identity.String()
}
