package till

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Inputs are the staff-entered figures of a till closure.
type Inputs struct {
	CashTakings decimal.Decimal
	CardTakings decimal.Decimal
	Counts      Counts
	TillFloat   decimal.Decimal
}

// Totals are the figures derived from Inputs.
type Totals struct {
	TotalTakings   decimal.Decimal
	TillTotal      decimal.Decimal
	TillDifference decimal.Decimal
}

// Reconcile derives the takings total, the counted till total and the
// discrepancy. Inputs are expected to have passed Validate.
func Reconcile(in Inputs) Totals {
	tillTotal := TillTotal(in.Counts)
	return Totals{
		TotalTakings:   in.CashTakings.Add(in.CardTakings),
		TillTotal:      tillTotal,
		TillDifference: tillTotal.Sub(in.CashTakings).Sub(in.TillFloat),
	}
}

// TillTotal sums the value of every denomination count.
func TillTotal(counts Counts) decimal.Decimal {
	total := decimal.Zero
	for i := range counts {
		total = total.Add(pence(counts[i], Denominations[i].PenceValue))
	}
	return total
}

// ToBank is the cash to be removed from the till once the float is left in it.
func ToBank(tillTotal, tillFloat decimal.Decimal) decimal.Decimal {
	return tillTotal.Sub(tillFloat)
}

// FieldErrors maps an input field name to a message.
type FieldErrors map[string]string

// maxAmount is the first value that no longer fits a decimal(12,2) column.
var maxAmount = decimal.New(1, 10)

// Validate checks amounts and counts and reports every offending field.
func Validate(in Inputs) FieldErrors {
	errs := FieldErrors{}
	checkAmount(errs, "cash_takings", in.CashTakings)
	checkAmount(errs, "card_takings", in.CardTakings)
	checkAmount(errs, "till_float", in.TillFloat)
	for i, c := range in.Counts {
		if c < 0 {
			errs[Denominations[i].Key] = ErrInvalidCount.Error()
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func checkAmount(errs FieldErrors, field string, v decimal.Decimal) {
	switch {
	case v.IsNegative():
		errs[field] = "must not be negative"
	case !v.Equal(v.Round(2)):
		errs[field] = "must have at most 2 decimal places"
	case v.GreaterThanOrEqual(maxAmount):
		errs[field] = fmt.Sprintf("must be less than %s", maxAmount.String())
	}
}
