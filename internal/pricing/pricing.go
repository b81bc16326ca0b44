package pricing

import "warungpos/internal/domain"

// Rates is the slice of SystemSettings the calculator needs.
type Rates struct {
	TaxRatePercent           float64
	ServiceChargeRatePercent float64
}

type Breakdown struct {
	Subtotal       float64
	DiscountAmount float64
	Tax            float64
	ServiceCharge  float64
	Total          float64
}

// Compute derives the full monetary breakdown for a candidate order. Pure:
// identical inputs always produce an identical breakdown. No rounding is
// applied; display rounding belongs to the presentation layer and is never
// written back.
func Compute(items []domain.OrderItem, discount domain.Discount, orderType string, rates Rates) Breakdown {
	subtotal := 0.0
	for _, item := range items {
		unit := item.UnitPrice
		if item.Variation != nil {
			unit += item.Variation.Price
		}
		for _, addon := range item.Addons {
			unit += addon.Price
		}
		subtotal += unit * float64(item.Qty)
	}

	discountAmount := 0.0
	switch discount.Kind {
	case domain.DiscountPercent:
		discountAmount = subtotal * discount.Value / 100
	case domain.DiscountFixed:
		discountAmount = discount.Value
	}
	if discountAmount < 0 {
		discountAmount = 0
	}

	discounted := subtotal - discountAmount
	if discounted < 0 {
		discounted = 0
	}

	tax := discounted * rates.TaxRatePercent / 100

	serviceCharge := 0.0
	if orderType == domain.OrderTypeDineIn {
		serviceCharge = discounted * rates.ServiceChargeRatePercent / 100
	}

	return Breakdown{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Tax:            tax,
		ServiceCharge:  serviceCharge,
		Total:          discounted + tax + serviceCharge,
	}
}
