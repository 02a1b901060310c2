package closures

import (
	"sort"
	"time"

	"cashup-backend/internal/cashup"
	"cashup-backend/internal/models"
	"cashup-backend/internal/till"

	"github.com/shopspring/decimal"
)

// ClosureRequest is the body of a new till closure. Counts are keyed by
// denomination key, e.g. "note_20GBP"; missing keys count zero.
type ClosureRequest struct {
	CloseTime   *time.Time       `json:"close_time"`
	CashTakings decimal.Decimal  `json:"cash_takings"`
	CardTakings decimal.Decimal  `json:"card_takings"`
	TillFloat   *decimal.Decimal `json:"till_float"`
	Counts      map[string]int64 `json:"counts"`
	Notes       string           `json:"notes"`
}

// AmendRequest changes the fields that are present. Counts, when present,
// replace all twelve counts. Version is the version the edit is based on.
type AmendRequest struct {
	Version     *int             `json:"version"`
	CloseTime   *time.Time       `json:"close_time"`
	CashTakings *decimal.Decimal `json:"cash_takings"`
	CardTakings *decimal.Decimal `json:"card_takings"`
	TillFloat   *decimal.Decimal `json:"till_float"`
	Counts      map[string]int64 `json:"counts"`
	Notes       *string          `json:"notes"`
}

func parseCounts(in map[string]int64) (till.Counts, error) {
	var counts till.Counts
	fields := map[string]string{}
	for key, n := range in {
		i, ok := till.DenominationIndex(key)
		if !ok {
			fields["counts."+key] = "unknown denomination"
			continue
		}
		counts[i] = n
	}
	if len(fields) > 0 {
		return counts, &cashup.ValidationError{Fields: fields}
	}
	return counts, nil
}

func (r ClosureRequest) input() (cashup.ClosureInput, error) {
	counts, err := parseCounts(r.Counts)
	if err != nil {
		return cashup.ClosureInput{}, err
	}
	return cashup.ClosureInput{
		CloseTime:   r.CloseTime,
		CashTakings: r.CashTakings,
		CardTakings: r.CardTakings,
		TillFloat:   r.TillFloat,
		Counts:      counts,
		Notes:       r.Notes,
	}, nil
}

func (r AmendRequest) input() (cashup.AmendInput, error) {
	in := cashup.AmendInput{
		ExpectedVersion: r.Version,
		CloseTime:       r.CloseTime,
		CashTakings:     r.CashTakings,
		CardTakings:     r.CardTakings,
		TillFloat:       r.TillFloat,
		Notes:           r.Notes,
	}
	if r.Counts != nil {
		counts, err := parseCounts(r.Counts)
		if err != nil {
			return cashup.AmendInput{}, err
		}
		in.Counts = &counts
	}
	return in, nil
}

type ClosureResponse struct {
	Identity   string    `json:"identity"`
	OutletID   uint      `json:"outlet_id"`
	ClosedByID uint      `json:"closed_by_id"`
	ClosedBy   string    `json:"closed_by"`
	CloseTime  time.Time `json:"close_time"`

	CashTakings  string           `json:"cash_takings"`
	CardTakings  string           `json:"card_takings"`
	TotalTakings string           `json:"total_takings"`
	Counts       map[string]int64 `json:"counts"`

	TillTotal      string `json:"till_total"`
	TillFloat      string `json:"till_float"`
	TillDifference string `json:"till_difference"`
	ToBank         string `json:"to_bank"`
	Notes          string `json:"notes"`

	VersionNumber         int        `json:"version_number"`
	ObjectCreatedTime     time.Time  `json:"object_created_time"`
	VersionCreatedTime    time.Time  `json:"version_created_time"`
	VersionSupersededTime *time.Time `json:"version_superseded_time"`
	UpdatedByID           uint       `json:"updated_by_id"`
	IsCurrent             bool       `json:"is_current"`
	IsDeleted             bool       `json:"is_deleted"`
}

// newClosureResponse renders one version. head marks the newest version of
// its identity, for which a superseded time means the closure was withdrawn.
func newClosureResponse(c *models.TillClosure, names map[uint]string, head bool) ClosureResponse {
	return ClosureResponse{
		Identity:              c.Identity.String(),
		OutletID:              c.OutletID,
		ClosedByID:            c.ClosedByID,
		ClosedBy:              names[c.ClosedByID],
		CloseTime:             c.CloseTime,
		CashTakings:           c.CashTakings.StringFixed(2),
		CardTakings:           c.CardTakings.StringFixed(2),
		TotalTakings:          c.TotalTakings.StringFixed(2),
		Counts:                c.Counts().Map(),
		TillTotal:             c.TillTotal.StringFixed(2),
		TillFloat:             c.TillFloat.StringFixed(2),
		TillDifference:        c.TillDifference.StringFixed(2),
		ToBank:                c.ToBank().StringFixed(2),
		Notes:                 c.Notes,
		VersionNumber:         c.VersionNumber,
		ObjectCreatedTime:     c.ObjectCreatedTime,
		VersionCreatedTime:    c.VersionCreatedTime,
		VersionSupersededTime: c.VersionSupersededTime,
		UpdatedByID:           c.UpdatedByID,
		IsCurrent:             c.IsCurrent(),
		IsDeleted:             head && !c.IsCurrent(),
	}
}

type ClosureListResponse struct {
	Closures       []ClosureResponse `json:"closures"`
	TotalTakings   string            `json:"total_takings"`
	TillDifference string            `json:"till_difference"`
}

func newClosureListResponse(list *cashup.ClosureList, names map[uint]string) ClosureListResponse {
	out := ClosureListResponse{
		Closures:       make([]ClosureResponse, 0, len(list.Closures)),
		TotalTakings:   list.TotalTakings.StringFixed(2),
		TillDifference: list.TillDifference.StringFixed(2),
	}
	for i := range list.Closures {
		out.Closures = append(out.Closures, newClosureResponse(&list.Closures[i], names, true))
	}
	return out
}

// personnelIDs collects everyone who closed or edited one of closures.
func personnelIDs(closures []models.TillClosure) []uint {
	seen := map[uint]bool{}
	for _, c := range closures {
		seen[c.ClosedByID] = true
		seen[c.UpdatedByID] = true
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
