package service

import (
	"github.com/mycafe-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

var (
	taxRate     = decimal.RequireFromString("0.12")
	serviceRate = decimal.RequireFromString("0.05")
)

// PricingBreakdown is the bill for an order, in whole rupiah.
type PricingBreakdown struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	ServiceCharge int64 `json:"service_charge"`
	GrandTotal    int64 `json:"grand_total"`
}

// CalculatePricing derives the bill from order lines. Tax and service charge
// each round to the nearest rupiah independently; the grand total is the sum
// of the already-rounded components. Lines are summed as given, whatever
// their status.
func CalculatePricing(lines []database.OrderMenuLine) PricingBreakdown {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
	}

	sub := decimal.NewFromInt(subtotal)
	tax := sub.Mul(taxRate).Round(0).IntPart()
	svc := sub.Mul(serviceRate).Round(0).IntPart()

	return PricingBreakdown{
		Subtotal:      subtotal,
		Tax:           tax,
		ServiceCharge: svc,
		GrandTotal:    subtotal + tax + svc,
	}
}
