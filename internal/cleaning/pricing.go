// Package cleaning derives turnover cleaning tasks from bookings.
package cleaning

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casaops/backend/internal/storage/models"
)

// PricingPolicy computes the price of a cleaning scheduled on a given day.
type PricingPolicy interface {
	Price(p *models.Property, day string, guests int) decimal.Decimal
}

// BasePricing prices a cleaning at the property's base rate, adding a flat
// surcharge on configured holidays (matched by month-day).
type BasePricing struct {
	HolidaySurcharge decimal.Decimal
	Holidays         map[string]bool // "MM-DD"
}

// DefaultHolidays are the fixed-date Italian public holidays.
func DefaultHolidays() map[string]bool {
	return map[string]bool{
		"01-01": true, "01-06": true, "04-25": true, "05-01": true,
		"06-02": true, "08-15": true, "11-01": true, "12-08": true,
		"12-25": true, "12-26": true,
	}
}

// NewBasePricing creates the default pricing policy.
func NewBasePricing(surcharge decimal.Decimal) *BasePricing {
	return &BasePricing{
		HolidaySurcharge: surcharge,
		Holidays:         DefaultHolidays(),
	}
}

// Price implements PricingPolicy.
func (b *BasePricing) Price(p *models.Property, day string, guests int) decimal.Decimal {
	price := p.CleaningPrice

	// day is "2006-01-02"; holidays match on month-day.
	if idx := strings.Index(day, "-"); idx != -1 && b.Holidays[day[idx+1:]] {
		price = price.Add(b.HolidaySurcharge)
	}

	return price
}
