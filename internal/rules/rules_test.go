package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashup-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(name string, result bool, calls *int) Predicate {
	return New(name, func(context.Context, *models.Personnel, any) (bool, error) {
		*calls++
		return result, nil
	})
}

func TestCombinatorsShortCircuit(t *testing.T) {
	ctx := context.Background()
	var first, second int

	ok, err := And(counting("no", false, &first), counting("yes", true, &second)).Test(ctx, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)

	first, second = 0, 0
	ok, err = Or(counting("yes", true, &first), counting("no", false, &second)).Test(ctx, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)

	first = 0
	ok, err = Not(counting("yes", true, &first)).Test(ctx, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, first)
}

func TestCombinatorsPropagateErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := New("failing", func(context.Context, *models.Personnel, any) (bool, error) {
		return false, boom
	})
	var calls int

	_, err := Or(failing, counting("yes", true, &calls)).Test(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, calls)

	_, err = Not(failing).Test(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestCombinatorNames(t *testing.T) {
	var n int
	p := Or(And(counting("a", true, &n), counting("b", true, &n)), Not(counting("c", true, &n)))
	assert.Equal(t, "((a & b) | ~c)", p.Name())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var n int
	require.NoError(t, r.Add("app.do", counting("yes", true, &n)))
	assert.Error(t, r.Add("app.do", counting("yes", true, &n)))
	assert.True(t, r.Has("app.do"))

	ok, err := r.Check(context.Background(), "app.unknown", &models.Personnel{IsOwner: true}, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

type relations struct {
	staff    map[[2]uint]bool
	managers map[[2]uint]bool
	outlets  map[uint]uint
}

func (r relations) IsOutletStaff(_ context.Context, p *models.Personnel, outletID uint) (bool, error) {
	key := [2]uint{outletID, p.ID}
	return r.staff[key] || r.managers[key], nil
}

func (r relations) IsOutletManager(_ context.Context, p *models.Personnel, outletID uint) (bool, error) {
	return r.managers[[2]uint{outletID, p.ID}], nil
}

func (r relations) OutletBusinessID(_ context.Context, outletID uint) (uint, error) {
	return r.outlets[outletID], nil
}

type world struct {
	registry *Registry
	now      time.Time
	business *models.Business
	outlet   *models.Outlet
	owner    *models.Personnel
	staff    *models.Personnel
	manager  *models.Personnel
	stranger *models.Personnel
	rival    *models.Personnel
}

func newWorld(t *testing.T) world {
	t.Helper()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	w := world{
		now:      now,
		business: &models.Business{ID: 1, Name: "one"},
		outlet:   &models.Outlet{ID: 10, BusinessID: 1, Name: "high-street"},
		owner:    &models.Personnel{ID: 1, BusinessID: 1, IsOwner: true},
		staff:    &models.Personnel{ID: 2, BusinessID: 1},
		manager:  &models.Personnel{ID: 3, BusinessID: 1},
		stranger: &models.Personnel{ID: 4, BusinessID: 1},
		rival:    &models.Personnel{ID: 5, BusinessID: 2, IsOwner: true},
	}
	rel := relations{
		staff:    map[[2]uint]bool{{10, 2}: true},
		managers: map[[2]uint]bool{{10, 3}: true},
		outlets:  map[uint]uint{10: 1},
	}
	registry, err := NewCashupRegistry(rel, func() time.Time { return w.now }, 24*time.Hour)
	require.NoError(t, err)
	w.registry = registry
	return w
}

func (w world) check(t *testing.T, perm string, actor *models.Personnel, target any) bool {
	t.Helper()
	ok, err := w.registry.Check(context.Background(), perm, actor, target)
	require.NoError(t, err)
	return ok
}

func (w world) closure(closedAgo time.Duration, withdrawn bool) *models.TillClosure {
	c := &models.TillClosure{OutletID: w.outlet.ID, ClosedByID: w.staff.ID, CloseTime: w.now.Add(-closedAgo)}
	if withdrawn {
		at := w.now
		c.VersionSupersededTime = &at
	}
	return c
}

func TestBusinessPermissions(t *testing.T) {
	w := newWorld(t)

	assert.True(t, w.check(t, ViewBusiness, w.owner, w.business))
	assert.True(t, w.check(t, ChangeBusiness, w.owner, w.business))
	assert.False(t, w.check(t, ViewBusiness, w.rival, w.business))
	assert.False(t, w.check(t, ViewBusiness, w.manager, w.business))
	assert.False(t, w.check(t, ViewBusiness, nil, w.business))
	assert.False(t, w.check(t, ViewBusiness, w.owner, w.outlet))

	assert.True(t, w.check(t, CreateOutlet, w.owner, nil))
	assert.False(t, w.check(t, CreateOutlet, w.staff, nil))
	assert.True(t, w.check(t, ViewPersonnelList, w.rival, nil))
}

func TestPersonnelPermissions(t *testing.T) {
	w := newWorld(t)

	assert.True(t, w.check(t, ViewPersonnelTillClosureList, w.staff, w.staff))
	assert.True(t, w.check(t, ViewPersonnelTillClosureList, w.owner, w.staff))
	assert.False(t, w.check(t, ViewPersonnelTillClosureList, w.manager, w.staff))
	assert.False(t, w.check(t, ViewPersonnelTillClosureList, w.rival, w.staff))

	assert.True(t, w.check(t, ViewPersonnelTillClosureAuditTrail, w.owner, w.staff))
	assert.False(t, w.check(t, ViewPersonnelTillClosureAuditTrail, w.staff, w.staff))
}

func TestOutletPermissions(t *testing.T) {
	w := newWorld(t)

	for _, actor := range []*models.Personnel{w.owner, w.staff, w.manager} {
		assert.True(t, w.check(t, ViewOutlet, actor, w.outlet))
		assert.True(t, w.check(t, ViewTillClosuresForOutlet, actor, w.outlet))
		assert.True(t, w.check(t, CreateTillClosureForOutlet, actor, w.outlet))
	}
	for _, actor := range []*models.Personnel{w.stranger, w.rival} {
		assert.False(t, w.check(t, ViewOutlet, actor, w.outlet))
		assert.False(t, w.check(t, CreateTillClosureForOutlet, actor, w.outlet))
	}

	assert.True(t, w.check(t, ChangeOutlet, w.manager, w.outlet))
	assert.True(t, w.check(t, ChangeOutlet, w.owner, w.outlet))
	assert.False(t, w.check(t, ChangeOutlet, w.staff, w.outlet))

	assert.True(t, w.check(t, ViewOutletTillClosureAuditTrail, w.manager, w.outlet))
	assert.False(t, w.check(t, ViewOutletTillClosureAuditTrail, w.staff, w.outlet))

	assert.True(t, w.check(t, ChangeOutletStaff, w.owner, w.outlet))
	assert.False(t, w.check(t, ChangeOutletStaff, w.manager, w.outlet))
}

func TestTillClosureViewPermissions(t *testing.T) {
	w := newWorld(t)
	live := w.closure(time.Hour, false)
	gone := w.closure(time.Hour, true)

	assert.True(t, w.check(t, ViewTillClosure, w.staff, live))
	assert.False(t, w.check(t, ViewTillClosure, w.staff, gone))
	assert.True(t, w.check(t, ViewTillClosure, w.manager, gone))
	assert.True(t, w.check(t, ViewTillClosure, w.owner, gone))
	assert.False(t, w.check(t, ViewTillClosure, w.stranger, live))
	assert.False(t, w.check(t, ViewTillClosure, w.rival, live))

	assert.True(t, w.check(t, ViewTillClosureAuditTrail, w.manager, live))
	assert.True(t, w.check(t, ViewTillClosureAuditTrail, w.owner, live))
	assert.False(t, w.check(t, ViewTillClosureAuditTrail, w.staff, live))
}

func TestTillClosureChangePermissions(t *testing.T) {
	w := newWorld(t)
	fresh := w.closure(time.Hour, false)
	stale := w.closure(25*time.Hour, false)
	gone := w.closure(time.Hour, true)

	assert.True(t, w.check(t, ChangeTillClosure, w.staff, fresh))
	assert.False(t, w.check(t, ChangeTillClosure, w.staff, stale))
	assert.False(t, w.check(t, ChangeTillClosure, w.staff, gone))
	assert.True(t, w.check(t, ChangeTillClosure, w.manager, fresh))
	assert.False(t, w.check(t, ChangeTillClosure, w.manager, stale))
	assert.True(t, w.check(t, ChangeTillClosure, w.owner, stale))
	assert.True(t, w.check(t, ChangeTillClosure, w.owner, gone))
	assert.False(t, w.check(t, ChangeTillClosure, w.rival, fresh))

	assert.True(t, w.check(t, DeleteTillClosure, w.manager, stale))
	assert.True(t, w.check(t, DeleteTillClosure, w.owner, fresh))
	assert.False(t, w.check(t, DeleteTillClosure, w.owner, gone))
	assert.False(t, w.check(t, DeleteTillClosure, w.staff, fresh))
}

func TestEditableWindowBoundary(t *testing.T) {
	w := newWorld(t)

	assert.True(t, w.check(t, ChangeTillClosure, w.staff, w.closure(24*time.Hour-time.Second, false)))
	assert.False(t, w.check(t, ChangeTillClosure, w.staff, w.closure(24*time.Hour, false)))
}
