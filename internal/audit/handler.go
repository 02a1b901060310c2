package audit

import (
	"context"
	"encoding/json"
	"time"

	"cashup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Lister returns the activity an actor may see; it enforces permissions.
type Lister interface {
	ListActivity(ctx context.Context, actor *models.Personnel, f Filter) ([]models.AuditLog, error)
}

type AuditLogResponse struct {
	ID            uint               `json:"id"`
	CreatedAt     string             `json:"created_at"`
	OutletID      *uint              `json:"outlet_id"`
	PersonnelID   uint               `json:"personnel_id"`
	PersonnelName string             `json:"personnel_name"`
	EntityType    string             `json:"entity_type"`
	EntityID      string             `json:"entity_id"`
	Action        models.AuditAction `json:"action"`
	Description   string             `json:"description"`
	Before        json.RawMessage    `json:"before,omitempty"`
	After         json.RawMessage    `json:"after,omitempty"`
}

func rawJSON(s string) json.RawMessage {
	if s == "" || s == "null" {
		return nil
	}
	return json.RawMessage(s)
}

// GET /api/activity?entity_type=outlet&entity_id=3&outlet_id=3&personnel_id=1&limit=50
// actor resolves the authenticated personnel of the request.
func ListActivityHandler(lister Lister, actor func(c *fiber.Ctx) (*models.Personnel, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := actor(c)
		if err != nil {
			return err
		}

		f := Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Limit:      c.QueryInt("limit", 100),
		}
		if f.Limit <= 0 || f.Limit > 500 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500")
		}
		if v := c.QueryInt("personnel_id", 0); v > 0 {
			f.PersonnelID = uint(v)
		}
		if v := c.QueryInt("outlet_id", 0); v > 0 {
			outletID := uint(v)
			f.OutletID = &outletID
		}

		logs, err := lister.ListActivity(c.UserContext(), p, f)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:            l.ID,
				CreatedAt:     l.CreatedAt.Format(time.RFC3339),
				OutletID:      l.OutletID,
				PersonnelID:   l.PersonnelID,
				PersonnelName: l.PersonnelName,
				EntityType:    l.EntityType,
				EntityID:      l.EntityID,
				Action:        l.Action,
				Description:   l.Description,
				Before:        rawJSON(l.BeforeData),
				After:         rawJSON(l.AfterData),
			})
		}
		return c.JSON(resp)
	}
}
