package till

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidCount is returned for a negative note or coin count.
var ErrInvalidCount = errors.New("denomination count must not be negative")

// Denomination is one note or coin the till can hold.
type Denomination struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	PenceValue int64  `json:"pence_value"`
}

// Denominations lists the GBP notes and coins in count order. The index of a
// denomination here is its index in Counts.
var Denominations = [NumDenominations]Denomination{
	{Key: "note_50GBP", Label: "£50 notes", PenceValue: 5000},
	{Key: "note_20GBP", Label: "£20 notes", PenceValue: 2000},
	{Key: "note_10GBP", Label: "£10 notes", PenceValue: 1000},
	{Key: "note_5GBP", Label: "£5 notes", PenceValue: 500},
	{Key: "coin_2GBP", Label: "£2 coins", PenceValue: 200},
	{Key: "coin_1GBP", Label: "£1 coins", PenceValue: 100},
	{Key: "coin_50p", Label: "50p coins", PenceValue: 50},
	{Key: "coin_20p", Label: "20p coins", PenceValue: 20},
	{Key: "coin_10p", Label: "10p coins", PenceValue: 10},
	{Key: "coin_5p", Label: "5p coins", PenceValue: 5},
	{Key: "coin_2p", Label: "2p coins", PenceValue: 2},
	{Key: "coin_1p", Label: "1p coins", PenceValue: 1},
}

const NumDenominations = 12

// DenominationIndex returns the position of key in Denominations.
func DenominationIndex(key string) (int, bool) {
	for i, d := range Denominations {
		if d.Key == key {
			return i, true
		}
	}
	return -1, false
}

// DenominationCount is a number of notes or coins of a single denomination.
type DenominationCount struct {
	Count      int64
	PenceValue int64
}

// Value returns count × pence / 100 as an exact decimal.
func (d DenominationCount) Value() (decimal.Decimal, error) {
	if d.Count < 0 {
		return decimal.Zero, ErrInvalidCount
	}
	return pence(d.Count, d.PenceValue), nil
}

// PrettyValue formats the value with two decimal places.
func (d DenominationCount) PrettyValue() string {
	v, err := d.Value()
	if err != nil {
		return ""
	}
	return v.StringFixed(2)
}

func pence(count, penceValue int64) decimal.Decimal {
	return decimal.NewFromInt(count).Mul(decimal.NewFromInt(penceValue)).Shift(-2)
}

// Counts holds one count per entry of Denominations.
type Counts [NumDenominations]int64

// At pairs the count at index i with its denomination's pence value.
func (c Counts) At(i int) DenominationCount {
	return DenominationCount{Count: c[i], PenceValue: Denominations[i].PenceValue}
}

// Map keys the counts by denomination key.
func (c Counts) Map() map[string]int64 {
	m := make(map[string]int64, NumDenominations)
	for i, d := range Denominations {
		m[d.Key] = c[i]
	}
	return m
}
