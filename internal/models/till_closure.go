package models

import (
	"time"

	"cashup-backend/internal/till"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TillClosure is one version of a till closing. All versions of the same
// closing share Identity; the current one has no VersionSupersededTime.
type TillClosure struct {
	ID         uint      `gorm:"primaryKey"`
	OutletID   uint      `gorm:"index;not null"`
	ClosedByID uint      `gorm:"index;not null"`
	CloseTime  time.Time `gorm:"index;not null"`

	CashTakings  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CardTakings  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalTakings decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Note50GBP int64 `gorm:"column:note_50gbp;not null;default:0"`
	Note20GBP int64 `gorm:"column:note_20gbp;not null;default:0"`
	Note10GBP int64 `gorm:"column:note_10gbp;not null;default:0"`
	Note5GBP  int64 `gorm:"column:note_5gbp;not null;default:0"`
	Coin2GBP  int64 `gorm:"column:coin_2gbp;not null;default:0"`
	Coin1GBP  int64 `gorm:"column:coin_1gbp;not null;default:0"`
	Coin50p   int64 `gorm:"column:coin_50p;not null;default:0"`
	Coin20p   int64 `gorm:"column:coin_20p;not null;default:0"`
	Coin10p   int64 `gorm:"column:coin_10p;not null;default:0"`
	Coin5p    int64 `gorm:"column:coin_5p;not null;default:0"`
	Coin2p    int64 `gorm:"column:coin_2p;not null;default:0"`
	Coin1p    int64 `gorm:"column:coin_1p;not null;default:0"`

	TillTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TillFloat      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TillDifference decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Notes string `gorm:"type:text"`

	Identity              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_till_closures_identity_version"`
	VersionNumber         int        `gorm:"not null;uniqueIndex:ux_till_closures_identity_version"`
	ObjectCreatedTime     time.Time  `gorm:"not null"`
	VersionCreatedTime    time.Time  `gorm:"not null"`
	VersionSupersededTime *time.Time `gorm:"index"`
	UpdatedByID           uint       `gorm:"not null"`
}

// Counts returns the denomination counts in till.Denominations order.
func (c *TillClosure) Counts() till.Counts {
	return till.Counts{
		c.Note50GBP, c.Note20GBP, c.Note10GBP, c.Note5GBP,
		c.Coin2GBP, c.Coin1GBP, c.Coin50p, c.Coin20p,
		c.Coin10p, c.Coin5p, c.Coin2p, c.Coin1p,
	}
}

func (c *TillClosure) SetCounts(n till.Counts) {
	c.Note50GBP, c.Note20GBP, c.Note10GBP, c.Note5GBP = n[0], n[1], n[2], n[3]
	c.Coin2GBP, c.Coin1GBP, c.Coin50p, c.Coin20p = n[4], n[5], n[6], n[7]
	c.Coin10p, c.Coin5p, c.Coin2p, c.Coin1p = n[8], n[9], n[10], n[11]
}

func (c *TillClosure) Inputs() till.Inputs {
	return till.Inputs{
		CashTakings: c.CashTakings,
		CardTakings: c.CardTakings,
		Counts:      c.Counts(),
		TillFloat:   c.TillFloat,
	}
}

// Recalculate overwrites the derived totals from the inputs.
func (c *TillClosure) Recalculate() {
	totals := till.Reconcile(c.Inputs())
	c.TotalTakings = totals.TotalTakings
	c.TillTotal = totals.TillTotal
	c.TillDifference = totals.TillDifference
}

func (c *TillClosure) ToBank() decimal.Decimal {
	return till.ToBank(c.TillTotal, c.TillFloat)
}

// IsCurrent is false for historical versions and for withdrawn closures.
func (c *TillClosure) IsCurrent() bool {
	return c.VersionSupersededTime == nil
}
