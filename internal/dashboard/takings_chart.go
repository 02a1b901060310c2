package dashboard

import (
	"cashup-backend/internal/auth"
	"cashup-backend/internal/cashup"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type TakingsChartPoint struct {
	Label          string `json:"label"` // YYYY-MM-DD
	TotalTakings   string `json:"total_takings"`
	TillDifference string `json:"till_difference"`
	Closures       int64  `json:"closures"`
}

type TakingsChartTotals struct {
	TotalTakings   string `json:"total_takings"`
	TillDifference string `json:"till_difference"`
	Closures       int64  `json:"closures"`
}

type TakingsChartResponse struct {
	Outlet      string              `json:"outlet"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Points      []TakingsChartPoint `json:"points"`
	GrandTotals TakingsChartTotals  `json:"grand_totals"`
}

// GET /api/outlets/:name/takings-chart?days=7
func TakingsChartHandler(svc *cashup.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.Actor(c)
		if err != nil {
			return err
		}
		outlet, err := svc.OutletByName(c.UserContext(), actor, c.Params("name"))
		if err != nil {
			return err
		}

		days, err := svc.DailyTakings(c.UserContext(), actor, outlet.ID, c.QueryInt("days", 7))
		if err != nil {
			return err
		}

		resp := TakingsChartResponse{
			Outlet: outlet.Name,
			Points: make([]TakingsChartPoint, 0, len(days)),
		}
		var takings, difference decimal.Decimal
		for _, d := range days {
			resp.Points = append(resp.Points, TakingsChartPoint{
				Label:          d.Day.Format("2006-01-02"),
				TotalTakings:   d.TotalTakings.StringFixed(2),
				TillDifference: d.TillDifference.StringFixed(2),
				Closures:       d.Closures,
			})
			takings = takings.Add(d.TotalTakings)
			difference = difference.Add(d.TillDifference)
			resp.GrandTotals.Closures += d.Closures
		}
		if len(resp.Points) > 0 {
			resp.From = resp.Points[0].Label
			resp.To = resp.Points[len(resp.Points)-1].Label
		}
		resp.GrandTotals.TotalTakings = takings.StringFixed(2)
		resp.GrandTotals.TillDifference = difference.StringFixed(2)

		return c.JSON(resp)
	}
}
