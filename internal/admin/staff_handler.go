package admin

import (
	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"

	"github.com/gofiber/fiber/v2"
)

type PositionResponse struct {
	OutletID    uint   `json:"outlet_id"`
	PersonnelID uint   `json:"personnel_id"`
	Name        string `json:"name"`
	IsManager   bool   `json:"is_manager"`
	IsStaff     bool   `json:"is_staff"`
}

type PositionRequest struct {
	IsManager bool  `json:"is_manager"`
	IsStaff   *bool `json:"is_staff"` // defaults to true
}

func personnelParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("personnelID")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid personnel id")
	}
	return uint(id), nil
}

// GET /api/outlets/:name/staff
func ListStaffHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}

		positions, err := svc.ListPositions(c.UserContext(), actor, outlet.ID)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(positions))
		for _, p := range positions {
			ids = append(ids, p.PersonnelID)
		}
		names, err := svc.PersonnelNames(c.UserContext(), actor, ids)
		if err != nil {
			return err
		}

		resp := make([]PositionResponse, 0, len(positions))
		for _, p := range positions {
			resp = append(resp, PositionResponse{
				OutletID:    p.OutletID,
				PersonnelID: p.PersonnelID,
				Name:        names[p.PersonnelID],
				IsManager:   p.IsManager,
				IsStaff:     p.IsStaff,
			})
		}
		return c.JSON(resp)
	}
}

// PUT /api/outlets/:name/staff/:personnelID
func AssignStaffHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}
		personnelID, err := personnelParam(c)
		if err != nil {
			return err
		}

		var body PositionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		isStaff := true
		if body.IsStaff != nil {
			isStaff = *body.IsStaff
		}

		pos, err := svc.AssignPosition(c.UserContext(), actor, outlet.ID, personnelID, body.IsManager, isStaff)
		if err != nil {
			return err
		}
		return c.JSON(PositionResponse{
			OutletID:    pos.OutletID,
			PersonnelID: pos.PersonnelID,
			IsManager:   pos.IsManager,
			IsStaff:     pos.IsStaff,
		})
	}
}

// DELETE /api/outlets/:name/staff/:personnelID
func RemoveStaffHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}
		personnelID, err := personnelParam(c)
		if err != nil {
			return err
		}

		if err := svc.RemovePosition(c.UserContext(), actor, outlet.ID, personnelID); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
