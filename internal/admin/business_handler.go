package admin

import (
	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"

	"github.com/gofiber/fiber/v2"
)

type BusinessResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type UpdateBusinessRequest struct {
	Name string `json:"name"`
}

type CreatePersonnelRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsManager bool   `json:"is_manager"`
}

// GET /api/business
func GetBusinessHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		b, err := svc.GetBusiness(c.UserContext(), actor)
		if err != nil {
			return err
		}
		return c.JSON(BusinessResponse{
			ID:        b.ID,
			Name:      b.Name,
			CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// PUT /api/business
func UpdateBusinessHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}

		var body UpdateBusinessRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		b, err := svc.UpdateBusiness(c.UserContext(), actor, body.Name)
		if err != nil {
			return err
		}
		return c.JSON(BusinessResponse{
			ID:        b.ID,
			Name:      b.Name,
			CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// GET /api/personnel
func ListPersonnelHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		people, err := svc.ListPersonnel(c.UserContext(), actor)
		if err != nil {
			return err
		}

		resp := make([]auth.PersonnelResponse, 0, len(people))
		for i := range people {
			resp = append(resp, auth.NewPersonnelResponse(&people[i]))
		}
		return c.JSON(resp)
	}
}

// POST /api/personnel
func CreatePersonnelHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}

		var body CreatePersonnelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := svc.CreatePersonnel(c.UserContext(), actor, cashup.PersonnelInput{
			Name:      body.Name,
			Email:     body.Email,
			Password:  body.Password,
			IsManager: body.IsManager,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(auth.NewPersonnelResponse(p))
	}
}
