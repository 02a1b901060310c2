// Package closure keeps the append-only version chain of till closures.
//
// Every logical closing is an identity. The row first inserted for an
// identity is its head row and always holds the newest version; each edit
// copies the pre-edit state into a new historical row before the head row is
// advanced. A closure is withdrawn when its head row is superseded without a
// replacement. Nothing is ever physically deleted.
package closure

import (
	"context"
	"errors"
	"sort"
	"time"

	"cashup-backend/internal/models"
	"cashup-backend/internal/till"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("till closure not found")
	ErrConcurrentModification = errors.New("till closure was modified concurrently")
)

// ApplyFunc edits the head version in place before it is stored as the new
// current version.
type ApplyFunc func(c *models.TillClosure) error

type Store interface {
	// Create stores c as version 1 of a new identity.
	Create(ctx context.Context, c *models.TillClosure, actorID uint) error
	// Update supersedes the current version of identity with an edited copy.
	// expectedVersion must match the current version number.
	Update(ctx context.Context, identity uuid.UUID, expectedVersion int, actorID uint, apply ApplyFunc) (*models.TillClosure, error)
	// Withdraw supersedes the current version without a replacement.
	Withdraw(ctx context.Context, identity uuid.UUID, expectedVersion int) (*models.TillClosure, error)

	Current(ctx context.Context, identity uuid.UUID) (*models.TillClosure, error)
	Head(ctx context.Context, identity uuid.UUID) (*models.TillClosure, error)
	IsDeleted(ctx context.Context, identity uuid.UUID) (bool, error)
	AuditTrail(ctx context.Context, identity uuid.UUID) ([]models.TillClosure, error)

	ListForOutlet(ctx context.Context, outletID uint, includeWithdrawn bool) ([]models.TillClosure, error)
	ListForPersonnel(ctx context.Context, personnelID uint, includeWithdrawn bool) ([]models.TillClosure, error)
	// DailyTakings groups current closures in [from, to) by calendar day in
	// from's location.
	DailyTakings(ctx context.Context, outletID uint, from, to time.Time) ([]DailyTotal, error)
}

// DailyTotal aggregates the current closures of one outlet for one day.
type DailyTotal struct {
	Day            time.Time       `gorm:"column:day"`
	TotalTakings   decimal.Decimal `gorm:"column:total_takings"`
	TillDifference decimal.Decimal `gorm:"column:till_difference"`
	Closures       int64           `gorm:"column:closures"`
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the source of version timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func prepareFirstVersion(c *models.TillClosure, actorID uint, now time.Time) {
	c.ID = 0
	c.Identity = uuid.New()
	c.VersionNumber = 1
	c.ObjectCreatedTime = now
	c.VersionCreatedTime = now
	c.VersionSupersededTime = nil
	c.UpdatedByID = actorID
	c.CloseTime = till.TruncateToMinute(c.CloseTime)
	c.Recalculate()
}

// historicalCopy is the verbatim pre-edit state, stored under a new row id.
func historicalCopy(head models.TillClosure, now time.Time) models.TillClosure {
	prev := head
	prev.ID = 0
	prev.VersionSupersededTime = &now
	return prev
}

// advance applies the edit to head and turns it into the next version. The
// fields that tie a version to its identity cannot be changed by apply.
func advance(head *models.TillClosure, apply ApplyFunc, actorID uint, now time.Time) error {
	id, identity, version := head.ID, head.Identity, head.VersionNumber
	outletID, closedBy, created := head.OutletID, head.ClosedByID, head.ObjectCreatedTime

	if apply != nil {
		if err := apply(head); err != nil {
			return err
		}
	}

	head.ID, head.Identity = id, identity
	head.OutletID, head.ClosedByID, head.ObjectCreatedTime = outletID, closedBy, created
	head.VersionNumber = version + 1
	head.VersionCreatedTime = now
	head.VersionSupersededTime = nil
	head.UpdatedByID = actorID
	head.CloseTime = till.TruncateToMinute(head.CloseTime)
	head.Recalculate()
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sumByDay totals closures per calendar day in loc, oldest day first.
func sumByDay(rows []models.TillClosure, loc *time.Location) []DailyTotal {
	byDay := map[time.Time]*DailyTotal{}
	for _, r := range rows {
		day := startOfDay(r.CloseTime.In(loc))
		dt, ok := byDay[day]
		if !ok {
			dt = &DailyTotal{Day: day}
			byDay[day] = dt
		}
		dt.TotalTakings = dt.TotalTakings.Add(r.TotalTakings)
		dt.TillDifference = dt.TillDifference.Add(r.TillDifference)
		dt.Closures++
	}

	out := make([]DailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		out = append(out, *dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
