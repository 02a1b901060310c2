package admin

import (
	"strconv"

	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"
	"cashup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type OutletResponse struct {
	ID           uint   `json:"id"`
	BusinessID   uint   `json:"business_id"`
	Name         string `json:"name"`
	DefaultFloat string `json:"default_float"`
	CreatedAt    string `json:"created_at"`
}

type CreateOutletRequest struct {
	Name         string           `json:"name"`
	DefaultFloat *decimal.Decimal `json:"default_float"` // optional, defaults to 0
}

type UpdateOutletRequest struct {
	Name         *string          `json:"name"`
	DefaultFloat *decimal.Decimal `json:"default_float"`
}

func newOutletResponse(o *models.Outlet) OutletResponse {
	return OutletResponse{
		ID:           o.ID,
		BusinessID:   o.BusinessID,
		Name:         o.Name,
		DefaultFloat: o.DefaultFloat.StringFixed(2),
		CreatedAt:    o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/outlets?manager_only=1
func ListOutletsHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		managerOnly, _ := strconv.ParseBool(c.Query("manager_only", "false"))

		outlets, err := svc.OutletsFor(c.UserContext(), actor, managerOnly)
		if err != nil {
			return err
		}

		resp := make([]OutletResponse, 0, len(outlets))
		for i := range outlets {
			resp = append(resp, newOutletResponse(&outlets[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/home returns the actor's only outlet, or null.
func HomeHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		home, err := svc.HomeOutlet(c.UserContext(), actor)
		if err != nil {
			return err
		}
		if home == nil {
			return c.JSON(fiber.Map{"outlet": nil})
		}
		return c.JSON(fiber.Map{"outlet": newOutletResponse(home)})
	}
}

// POST /api/outlets
func CreateOutletHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}

		var body CreateOutletRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		in := cashup.OutletInput{Name: body.Name}
		if body.DefaultFloat != nil {
			in.DefaultFloat = *body.DefaultFloat
		}

		outlet, err := svc.CreateOutlet(c.UserContext(), actor, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(newOutletResponse(outlet))
	}
}

// GET /api/outlets/:name
func GetOutletHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		found, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}
		outlet, err := svc.GetOutlet(c.UserContext(), actor, found.ID)
		if err != nil {
			return err
		}
		return c.JSON(newOutletResponse(outlet))
	}
}

// PUT /api/outlets/:name
func UpdateOutletHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		found, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}

		var body UpdateOutletRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		outlet, err := svc.UpdateOutlet(c.UserContext(), actor, found.ID, cashup.OutletUpdate{
			Name:         body.Name,
			DefaultFloat: body.DefaultFloat,
		})
		if err != nil {
			return err
		}
		return c.JSON(newOutletResponse(outlet))
	}
}
