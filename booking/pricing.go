package booking

// Quote is the price breakdown of a stay.
type Quote struct {
	Nights              int   `json:"nights"`
	ExtraGuests         int   `json:"extra_guests"`
	BasePrice           Money `json:"base_price"`
	ExtraGuestSurcharge Money `json:"extra_guest_surcharge"`
	Subtotal            Money `json:"subtotal"`
	Discount            Money `json:"discount"`
	Total               Money `json:"total"`
	PromoApplied        bool  `json:"promo_applied"`
}

// ComputePrice prices a stay of guests in u over r. A stay of zero nights costs nothing, which
// covers a date selection that is not complete yet. The promo code, if any, must be active and
// unexpired on the check-in date to apply.
//
// All arithmetic is in minor units. The discounted total is the only value that is rounded.
func ComputePrice(u Unit, r DateRange, guests int, promo *PromoCode) Quote {
	nights := r.Nights()
	if nights == 0 {
		return Quote{}
	}

	q := Quote{
		Nights:      nights,
		ExtraGuests: ExtraGuests(u, guests),
	}
	q.BasePrice = u.PricePerNight * Money(nights)
	q.ExtraGuestSurcharge = Money(q.ExtraGuests) * u.PricePerExtraPerson * Money(nights)
	q.Subtotal = q.BasePrice + q.ExtraGuestSurcharge
	if q.Subtotal < 0 {
		q.Subtotal = 0
	}
	q.Total = q.Subtotal

	if promo != nil && promo.AppliesOn(r.CheckIn) {
		q.Total = applyPercentOff(q.Subtotal, promo.DiscountPercent)
		q.Discount = q.Subtotal - q.Total
		q.PromoApplied = true
	}
	return q
}
