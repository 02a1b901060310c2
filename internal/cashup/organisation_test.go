package cashup

import (
	"context"
	"testing"

	"cashup-backend/internal/audit"
	"cashup-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBusinessAndAuthenticate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	business, owner, err := h.svc.RegisterBusiness(ctx, RegisterInput{
		BusinessName: "bakery",
		Name:         "Bea",
		Email:        " Bea@Bakery.test ",
		Password:     "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "bakery", business.Name)
	assert.True(t, owner.IsOwner)
	assert.Equal(t, "bea@bakery.test", owner.Email)
	assert.NotEqual(t, "correct horse", owner.PasswordHash)

	got, err := h.svc.Authenticate(ctx, "BEA@bakery.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)

	_, err = h.svc.Authenticate(ctx, "bea@bakery.test", "wrong horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Authenticate(ctx, "nobody@bakery.test", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = h.svc.RegisterBusiness(ctx, RegisterInput{BusinessName: "other", Email: "bea@bakery.test", Password: "correct horse"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestRegisterBusinessValidation(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.svc.RegisterBusiness(context.Background(), RegisterInput{
		BusinessName: "far too long a name",
		Email:        "not-an-email",
		Password:     "short",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestBusinessAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.svc.GetBusiness(ctx, h.owner)
	require.NoError(t, err)
	assert.Equal(t, "corner", b.Name)

	_, err = h.svc.GetBusiness(ctx, h.manager)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	renamed, err := h.svc.UpdateBusiness(ctx, h.owner, "corner-shop")
	require.NoError(t, err)
	assert.Equal(t, "corner-shop", renamed.Name)

	_, err = h.svc.UpdateBusiness(ctx, h.owner, "corner shop!")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateOutlet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOutlet(ctx, h.manager, OutletInput{Name: "station"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	o, err := h.svc.CreateOutlet(ctx, h.owner, OutletInput{Name: "station", DefaultFloat: dec("50.00")})
	require.NoError(t, err)
	assert.Equal(t, h.owner.BusinessID, o.BusinessID)

	pos, err := h.dir.Position(ctx, o.ID, h.owner.ID)
	require.NoError(t, err)
	assert.True(t, pos.IsStaff)

	_, err = h.svc.CreateOutlet(ctx, h.owner, OutletInput{Name: "station"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = h.svc.CreateOutlet(ctx, h.owner, OutletInput{Name: "kiosk", DefaultFloat: dec("-5")})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "default_float")

	found, err := h.svc.OutletByName(ctx, h.staff, "station")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = h.svc.OutletByName(ctx, h.rival, "station")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOutlet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.UpdateOutlet(ctx, h.staff, h.outlet.ID, OutletUpdate{DefaultFloat: decPtr("30.00")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	o, err := h.svc.UpdateOutlet(ctx, h.manager, h.outlet.ID, OutletUpdate{DefaultFloat: decPtr("30.00")})
	require.NoError(t, err)
	assert.Equal(t, "30.00", o.DefaultFloat.StringFixed(2))
	assert.Equal(t, "high-street", o.Name)

	c, err := h.svc.SubmitClosure(ctx, h.staff, h.outlet.ID, scenarioInput())
	require.NoError(t, err)
	assert.Equal(t, "30.00", c.TillFloat.StringFixed(2))
}

func TestOutletsAndHome(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	home, err := h.svc.HomeOutlet(ctx, h.staff)
	require.NoError(t, err)
	require.NotNil(t, home)
	assert.Equal(t, h.outlet.ID, home.ID)

	home, err = h.svc.HomeOutlet(ctx, h.stranger)
	require.NoError(t, err)
	assert.Nil(t, home)

	_, err = h.svc.CreateOutlet(ctx, h.owner, OutletInput{Name: "annex"})
	require.NoError(t, err)

	outlets, err := h.svc.OutletsFor(ctx, h.owner, false)
	require.NoError(t, err)
	require.Len(t, outlets, 2)
	assert.Equal(t, "annex", outlets[0].Name)

	home, err = h.svc.HomeOutlet(ctx, h.owner)
	require.NoError(t, err)
	assert.Nil(t, home)

	managed, err := h.svc.OutletsFor(ctx, h.staff, true)
	require.NoError(t, err)
	assert.Empty(t, managed)
}

func TestPersonnelAndPositions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreatePersonnel(ctx, h.manager, PersonnelInput{Email: "new@corner.test", Password: "long enough"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	p, err := h.svc.CreatePersonnel(ctx, h.owner, PersonnelInput{Name: "Nia", Email: "nia@corner.test", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, h.owner.BusinessID, p.BusinessID)

	people, err := h.svc.ListPersonnel(ctx, h.owner)
	require.NoError(t, err)
	assert.Len(t, people, 5)

	_, err = h.svc.ListPersonnel(ctx, h.staff)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = h.svc.AssignPosition(ctx, h.manager, h.outlet.ID, p.ID, false, true)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = h.svc.AssignPosition(ctx, h.owner, h.outlet.ID, h.rival.ID, false, true)
	assert.ErrorIs(t, err, ErrNotFound)

	pos, err := h.svc.AssignPosition(ctx, h.owner, h.outlet.ID, p.ID, true, true)
	require.NoError(t, err)
	assert.True(t, pos.IsManager)

	trail, err := h.svc.GetAuditTrail(ctx, p, h.submit(t, h.staff).Identity)
	require.NoError(t, err)
	assert.Len(t, trail, 1)

	positions, err := h.svc.ListPositions(ctx, h.staff, h.outlet.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 4)

	require.NoError(t, h.svc.RemovePosition(ctx, h.owner, h.outlet.ID, p.ID))
	assert.ErrorIs(t, h.svc.RemovePosition(ctx, h.owner, h.outlet.ID, p.ID), ErrNotFound)

	_, err = h.svc.ListPositions(ctx, h.stranger, h.outlet.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOutlet(ctx, h.owner, OutletInput{Name: "annex"})
	require.NoError(t, err)
	_, err = h.svc.UpdateBusiness(ctx, h.owner, "corner-two")
	require.NoError(t, err)

	_, err = h.svc.ListActivity(ctx, h.manager, audit.Filter{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	logs, err := h.svc.ListActivity(ctx, h.owner, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "business", logs[0].EntityType)
	assert.Equal(t, models.AuditActionUpdate, logs[0].Action)
	assert.Equal(t, "Olive", logs[0].PersonnelName)

	rival, err := h.svc.ListActivity(ctx, h.rival, audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rival)
}
