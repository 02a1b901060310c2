package auth

import (
	"cashup-backend/internal/cashup"
	"cashup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	BusinessName string `json:"business_name"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PersonnelResponse struct {
	ID         uint   `json:"id"`
	BusinessID uint   `json:"business_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsOwner    bool   `json:"is_owner"`
	IsManager  bool   `json:"is_manager"`
}

func NewPersonnelResponse(p *models.Personnel) PersonnelResponse {
	return PersonnelResponse{
		ID:         p.ID,
		BusinessID: p.BusinessID,
		Name:       p.DisplayName(),
		Email:      p.Email,
		IsOwner:    p.IsOwner,
		IsManager:  p.IsManager,
	}
}

// POST /api/auth/register
func RegisterHandler(svc *cashup.Service, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		business, owner, err := svc.RegisterBusiness(c.UserContext(), cashup.RegisterInput{
			BusinessName: body.BusinessName,
			Name:         body.Name,
			Email:        body.Email,
			Password:     body.Password,
		})
		if err != nil {
			return err
		}

		token, err := GenerateToken(secret, owner)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"user":  NewPersonnelResponse(owner),
			"business": fiber.Map{
				"id":   business.ID,
				"name": business.Name,
			},
		})
	}
}

// POST /api/auth/login
func LoginHandler(svc *cashup.Service, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := svc.Authenticate(c.UserContext(), body.Email, body.Password)
		if err != nil {
			return err
		}

		token, err := GenerateToken(secret, p)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  NewPersonnelResponse(p),
		})
	}
}

// GET /api/auth/me
func MeHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := Actor(c)
		if err != nil {
			return err
		}

		response := fiber.Map{"user": NewPersonnelResponse(actor)}

		// Staff of a single outlet land on it directly.
		home, err := svc.HomeOutlet(c.UserContext(), actor)
		if err != nil {
			return err
		}
		if home != nil {
			response["home_outlet"] = fiber.Map{
				"id":   home.ID,
				"name": home.Name,
			}
		}
		return c.JSON(response)
	}
}
