package closures

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"cashup-backend/internal/audit"
	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"
	"cashup-backend/internal/closure"
	"cashup-backend/internal/directory"
	"cashup-backend/internal/export"
	"cashup-backend/internal/middleware"
	"cashup-backend/internal/models"
	"cashup-backend/internal/rules"
	"cashup-backend/internal/scope"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	app     *fiber.App
	owner   *models.Personnel
	manager *models.Personnel
	staff   *models.Personnel
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	dir := directory.NewMemoryDirectory()

	ts := &testServer{
		owner:   &models.Personnel{Name: "Olive", Email: "olive@corner.test"},
		manager: &models.Personnel{Name: "Mo", Email: "mo@corner.test"},
		staff:   &models.Personnel{Name: "Sam", Email: "sam@corner.test"},
	}
	require.NoError(t, dir.CreateBusinessWithOwner(ctx, &models.Business{Name: "corner"}, ts.owner))
	outlet := &models.Outlet{BusinessID: ts.owner.BusinessID, Name: "high-street", DefaultFloat: decimal.RequireFromString("20")}
	require.NoError(t, dir.CreateOutlet(ctx, outlet, ts.owner.ID))
	for _, p := range []*models.Personnel{ts.manager, ts.staff} {
		p.BusinessID = ts.owner.BusinessID
		require.NoError(t, dir.CreatePersonnel(ctx, p))
	}
	require.NoError(t, dir.UpsertPosition(ctx, &models.StaffPosition{OutletID: outlet.ID, PersonnelID: ts.manager.ID, IsManager: true, IsStaff: true}))
	require.NoError(t, dir.UpsertPosition(ctx, &models.StaffPosition{OutletID: outlet.ID, PersonnelID: ts.staff.ID, IsStaff: true}))

	resolver := scope.NewResolver(dir)
	registry, err := rules.NewCashupRegistry(resolver, time.Now, 24*time.Hour)
	require.NoError(t, err)
	svc := cashup.NewService(cashup.Deps{
		Closures:  closure.NewMemoryStore(),
		Directory: dir,
		Scope:     resolver,
		Rules:     registry,
		Activity:  audit.NewMemoryLog(),
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	api := app.Group("/api")
	api.Get("/denominations", DenominationsHandler())
	protected := api.Group("", auth.JWTMiddleware(testSecret, svc))
	protected.Get("/outlets/:name/closures", ListOutletClosuresHandler(svc))
	protected.Post("/outlets/:name/closures", CreateClosureHandler(svc))
	protected.Get("/outlets/:name/closures/export", ExportOutletClosuresHandler(svc))
	protected.Get("/closures/:identity", GetClosureHandler(svc))
	protected.Put("/closures/:identity", AmendClosureHandler(svc))
	protected.Delete("/closures/:identity", WithdrawClosureHandler(svc))
	protected.Get("/closures/:identity/versions", ClosureVersionsHandler(svc))
	protected.Get("/personnel/:id/closures", PersonnelClosuresHandler(svc))

	ts.app = app
	return ts
}

func (ts *testServer) do(t *testing.T, as *models.Personnel, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := auth.GenerateToken(testSecret, as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func scenarioBody() map[string]any {
	return map[string]any{
		"cash_takings": "100.00",
		"card_takings": "50.00",
		"counts":       map[string]int64{"note_50GBP": 3},
		"notes":        "quiet night",
	}
}

func (ts *testServer) create(t *testing.T) ClosureResponse {
	t.Helper()
	resp := ts.do(t, ts.staff, "POST", "/api/outlets/high-street/closures", scenarioBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decode[ClosureResponse](t, resp)
}

func TestCreateClosure(t *testing.T) {
	ts := newTestServer(t)

	got := ts.create(t)
	assert.Equal(t, "150.00", got.TotalTakings)
	assert.Equal(t, "150.00", got.TillTotal)
	assert.Equal(t, "20.00", got.TillFloat)
	assert.Equal(t, "30.00", got.TillDifference)
	assert.Equal(t, "130.00", got.ToBank)
	assert.Equal(t, int64(3), got.Counts["note_50GBP"])
	assert.Equal(t, 1, got.VersionNumber)
	assert.Equal(t, "Sam", got.ClosedBy)
	assert.True(t, got.IsCurrent)
	assert.False(t, got.IsDeleted)
}

func TestCreateClosureRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	body := scenarioBody()
	body["counts"] = map[string]int64{"note_3GBP": 1}
	resp := ts.do(t, ts.staff, "POST", "/api/outlets/high-street/closures", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body = scenarioBody()
	body["cash_takings"] = "-1.00"
	resp = ts.do(t, ts.staff, "POST", "/api/outlets/high-street/closures", body)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, resp)
	assert.Contains(t, fields.Fields, "cash_takings")

	resp = ts.do(t, ts.staff, "POST", "/api/outlets/nowhere/closures", scenarioBody())
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, nil, "POST", "/api/outlets/high-street/closures", scenarioBody())
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAmendAndVersions(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t)
	path := "/api/closures/" + created.Identity

	resp := ts.do(t, ts.staff, "PUT", path, map[string]any{"version": 1, "cash_takings": "90.00"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	amended := decode[ClosureResponse](t, resp)
	assert.Equal(t, 2, amended.VersionNumber)
	assert.Equal(t, "140.00", amended.TotalTakings)
	assert.Equal(t, "40.00", amended.TillDifference)
	assert.Equal(t, created.Identity, amended.Identity)

	resp = ts.do(t, ts.staff, "PUT", path, map[string]any{"version": 1, "cash_takings": "80.00"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = ts.do(t, ts.staff, "GET", path+"/versions", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, ts.manager, "GET", path+"/versions", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	trail := decode[struct {
		IsDeleted bool              `json:"is_deleted"`
		Versions  []ClosureResponse `json:"versions"`
	}](t, resp)
	require.Len(t, trail.Versions, 2)
	assert.Equal(t, "30.00", trail.Versions[0].TillDifference)
	assert.False(t, trail.Versions[0].IsCurrent)
	assert.Equal(t, "40.00", trail.Versions[1].TillDifference)
	assert.False(t, trail.IsDeleted)
}

func TestWithdrawClosure(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t)
	path := "/api/closures/" + created.Identity

	resp := ts.do(t, ts.staff, "DELETE", path, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, ts.manager, "DELETE", path+"?version=1", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, ts.staff, "GET", path, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, ts.manager, "GET", path, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[ClosureResponse](t, resp).IsDeleted)

	resp = ts.do(t, ts.staff, "GET", "/api/outlets/high-street/closures", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[ClosureListResponse](t, resp).Closures)

	resp = ts.do(t, ts.staff, "GET", "/api/outlets/high-street/closures?include_deleted=1", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, ts.owner, "GET", "/api/outlets/high-street/closures?include_deleted=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[ClosureListResponse](t, resp)
	require.Len(t, list.Closures, 1)
	assert.True(t, list.Closures[0].IsDeleted)
	assert.Equal(t, "0.00", list.TotalTakings)
}

func TestListClosures(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t)
	ts.create(t)

	resp := ts.do(t, ts.owner, "GET", "/api/outlets/high-street/closures", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[ClosureListResponse](t, resp)
	assert.Len(t, list.Closures, 2)
	assert.Equal(t, "300.00", list.TotalTakings)
	assert.Equal(t, "60.00", list.TillDifference)

	resp = ts.do(t, ts.staff, "GET", "/api/personnel/"+itoa(ts.staff.ID)+"/closures", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[ClosureListResponse](t, resp).Closures, 2)

	resp = ts.do(t, ts.manager, "GET", "/api/personnel/"+itoa(ts.staff.ID)+"/closures", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMalformedIdentity(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, ts.owner, "GET", "/api/closures/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExportClosures(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t)

	resp := ts.do(t, ts.owner, "GET", "/api/outlets/high-street/closures/export", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "high-street-closures-")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDenominations(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, nil, "GET", "/api/denominations", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[struct {
		Denominations []struct {
			Key string `json:"key"`
		} `json:"denominations"`
	}](t, resp)
	require.Len(t, body.Denominations, 12)
	assert.Equal(t, "note_50GBP", body.Denominations[0].Key)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
