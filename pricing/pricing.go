// Package pricing is the single authoritative price table for fuel
// quotes. Both the booking flow and the payment confirmation path price
// through it.
package pricing

import (
	"fmt"
)

// Fuel types accepted at booking.
const (
	FuelRegular = "regular"
	FuelSupreme = "supreme"
	FuelDiesel  = "diesel"
)

// Table prices fuel in integer cents per gallon.
type Table struct {
	rates           map[string]int64
	fullTankGallons float64
}

// Rates is the wire/config form of the table.
type Rates struct {
	RegularCents    int64   `yaml:"regular_cents"`
	SupremeCents    int64   `yaml:"supreme_cents"`
	DieselCents     int64   `yaml:"diesel_cents"`
	FullTankGallons float64 `yaml:"full_tank_gallons"`
}

// DefaultRates returns the seed price table.
func DefaultRates() Rates {
	return Rates{
		RegularCents:    359,
		SupremeCents:    399,
		DieselCents:     379,
		FullTankGallons: 15,
	}
}

// NewTable builds a table from rates, filling zero values from the defaults.
func NewTable(r Rates) *Table {
	def := DefaultRates()
	if r.RegularCents <= 0 {
		r.RegularCents = def.RegularCents
	}
	if r.SupremeCents <= 0 {
		r.SupremeCents = def.SupremeCents
	}
	if r.DieselCents <= 0 {
		r.DieselCents = def.DieselCents
	}
	if r.FullTankGallons <= 0 {
		r.FullTankGallons = def.FullTankGallons
	}
	return &Table{
		rates: map[string]int64{
			FuelRegular: r.RegularCents,
			FuelSupreme: r.SupremeCents,
			FuelDiesel:  r.DieselCents,
		},
		fullTankGallons: r.FullTankGallons,
	}
}

// ValidFuelType reports whether the table prices the given fuel type.
func (t *Table) ValidFuelType(fuelType string) bool {
	_, ok := t.rates[fuelType]
	return ok
}

// FullTankGallons is the gallon count a full-tank booking is priced at.
func (t *Table) FullTankGallons() float64 { return t.fullTankGallons }

// Quote prices a booking and returns a decimal string such as "53.85".
// fullTank overrides gallons with the configured tank size.
func (t *Table) Quote(fuelType string, gallons float64, fullTank bool) (string, error) {
	rate, ok := t.rates[fuelType]
	if !ok {
		return "", fmt.Errorf("pricing: unknown fuel type %q", fuelType)
	}
	if fullTank {
		gallons = t.fullTankGallons
	}
	if gallons <= 0 {
		return "", fmt.Errorf("pricing: gallons must be positive")
	}
	cents := int64(float64(rate)*gallons + 0.5)
	return FormatCents(cents), nil
}

// FormatCents renders integer cents as a dollar decimal string.
func FormatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
