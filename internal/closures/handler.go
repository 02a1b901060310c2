package closures

import (
	"fmt"
	"strconv"
	"time"

	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"
	"cashup-backend/internal/export"
	"cashup-backend/internal/models"
	"cashup-backend/internal/till"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func identityParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("identity"))
	if err != nil {
		// Malformed identities cannot exist.
		return uuid.Nil, cashup.ErrNotFound
	}
	return id, nil
}

// OutletParam resolves the :name route parameter within the actor's business.
func OutletParam(c *fiber.Ctx, svc *cashup.Service, actor *models.Personnel) (*models.Outlet, error) {
	return svc.OutletByName(c.UserContext(), actor, c.Params("name"))
}

func flag(c *fiber.Ctx, key string) bool {
	v, err := strconv.ParseBool(c.Query(key, "false"))
	return err == nil && v
}

func renderOne(c *fiber.Ctx, svc *cashup.Service, actor *models.Personnel, closure *models.TillClosure) (ClosureResponse, error) {
	names, err := svc.PersonnelNames(c.UserContext(), actor, []uint{closure.ClosedByID})
	if err != nil {
		return ClosureResponse{}, err
	}
	return newClosureResponse(closure, names, true), nil
}

// GET /api/denominations
func DenominationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"denominations": till.Denominations})
	}
}

// GET /api/outlets/:name/closures?include_deleted=1
func ListOutletClosuresHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := OutletParam(c, svc, actor)
		if err != nil {
			return err
		}

		list, err := svc.ListOutletClosures(c.UserContext(), actor, outlet.ID, flag(c, "include_deleted"))
		if err != nil {
			return err
		}
		names, err := svc.PersonnelNames(c.UserContext(), actor, personnelIDs(list.Closures))
		if err != nil {
			return err
		}
		return c.JSON(newClosureListResponse(list, names))
	}
}

// POST /api/outlets/:name/closures
func CreateClosureHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := OutletParam(c, svc, actor)
		if err != nil {
			return err
		}

		var body ClosureRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		in, err := body.input()
		if err != nil {
			return err
		}

		closure, err := svc.SubmitClosure(c.UserContext(), actor, outlet.ID, in)
		if err != nil {
			return err
		}
		resp, err := renderOne(c, svc, actor, closure)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/outlets/:name/closures/export?include_deleted=1
func ExportOutletClosuresHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := OutletParam(c, svc, actor)
		if err != nil {
			return err
		}

		list, err := svc.ListOutletClosures(c.UserContext(), actor, outlet.ID, flag(c, "include_deleted"))
		if err != nil {
			return err
		}
		names, err := svc.PersonnelNames(c.UserContext(), actor, personnelIDs(list.Closures))
		if err != nil {
			return err
		}

		data, err := export.ClosuresWorkbook(list.Closures, names)
		if err != nil {
			return fmt.Errorf("export closures of outlet %d: %w", outlet.ID, err)
		}

		filename := fmt.Sprintf("%s-closures-%s.xlsx", outlet.Name, time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, export.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Send(data)
	}
}

// GET /api/closures/:identity
func GetClosureHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		identity, err := identityParam(c)
		if err != nil {
			return err
		}

		closure, err := svc.GetCurrentClosure(c.UserContext(), actor, identity)
		if err != nil {
			return err
		}
		resp, err := renderOne(c, svc, actor, closure)
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}

// PUT /api/closures/:identity
func AmendClosureHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		identity, err := identityParam(c)
		if err != nil {
			return err
		}

		var body AmendRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		in, err := body.input()
		if err != nil {
			return err
		}

		closure, err := svc.AmendClosure(c.UserContext(), actor, identity, in)
		if err != nil {
			return err
		}
		resp, err := renderOne(c, svc, actor, closure)
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}

// DELETE /api/closures/:identity?version=3
func WithdrawClosureHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		identity, err := identityParam(c)
		if err != nil {
			return err
		}

		var expected *int
		if v := c.Query("version"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return &cashup.ValidationError{Fields: map[string]string{"version": "must be a whole number"}}
			}
			expected = &n
		}

		if _, err := svc.WithdrawClosure(c.UserContext(), actor, identity, expected); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/closures/:identity/versions
func ClosureVersionsHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		identity, err := identityParam(c)
		if err != nil {
			return err
		}

		versions, err := svc.GetAuditTrail(c.UserContext(), actor, identity)
		if err != nil {
			return err
		}
		names, err := svc.PersonnelNames(c.UserContext(), actor, personnelIDs(versions))
		if err != nil {
			return err
		}

		out := make([]ClosureResponse, 0, len(versions))
		for i := range versions {
			out = append(out, newClosureResponse(&versions[i], names, i == len(versions)-1))
		}
		return c.JSON(fiber.Map{
			"identity":   identity.String(),
			"is_deleted": len(out) > 0 && out[len(out)-1].IsDeleted,
			"versions":   out,
		})
	}
}

// GET /api/personnel/:id/closures?include_deleted=1
func PersonnelClosuresHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid personnel id")
		}

		list, err := svc.ListPersonnelClosures(c.UserContext(), actor, uint(id), flag(c, "include_deleted"))
		if err != nil {
			return err
		}
		names, err := svc.PersonnelNames(c.UserContext(), actor, personnelIDs(list.Closures))
		if err != nil {
			return err
		}
		return c.JSON(newClosureListResponse(list, names))
	}
}
