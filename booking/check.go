package booking

import "fmt"

// Check runs the advisory pre-submission checks for p against the catalog and returns the first
// failure. excludeBookingID is the booking being edited, or zero for a new booking.
//
// A nil result only means the client found nothing wrong. The server may still reject the
// booking with ErrServerConflict.
func Check(c Catalog, p Payload, excludeBookingID uint) error {
	r := p.Range()
	if !r.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}

	unit, ok := c.Unit(p.UnitID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUnit, p.UnitID)
	}
	if _, ok := c.Client(p.ClientID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownClient, p.ClientID)
	}
	for _, id := range p.ServiceIDs {
		if _, ok := c.Service(id); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownService, id)
		}
	}
	if p.PromoCodeID != nil {
		promo, ok := c.PromoCode(*p.PromoCodeID)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownPromo, *p.PromoCodeID)
		}
		if err := promo.Validate(); err != nil {
			return err
		}
	}

	if !IsCapacityValid(unit, p.GuestsCount) {
		return fmt.Errorf("%w: %d guests, unit %d allows %d", ErrCapacityExceeded, p.GuestsCount, unit.ID, unit.MaxCapacity)
	}

	// The edited booking keeps its unit even if the unit was deactivated since.
	if !unit.Bookable() {
		if original, ok := c.Booking(excludeBookingID); !ok || original.UnitID != unit.ID {
			return fmt.Errorf("%w: unit %d is not bookable", ErrNoAvailability, unit.ID)
		}
	}
	if conflicts := Conflicts(unit.ID, c.Bookings, r, excludeBookingID); len(conflicts) > 0 {
		return fmt.Errorf("%w: unit %d is booked %s by booking %d", ErrNoAvailability, unit.ID, conflicts[0].Range(), conflicts[0].ID)
	}
	return nil
}

// QuoteFor prices a payload against the catalog. Unknown units price at zero.
func QuoteFor(c Catalog, p Payload) Quote {
	unit, ok := c.Unit(p.UnitID)
	if !ok {
		return Quote{}
	}
	var promo *PromoCode
	if p.PromoCodeID != nil {
		if pc, ok := c.PromoCode(*p.PromoCodeID); ok {
			promo = &pc
		}
	}
	return ComputePrice(unit, p.Range(), p.GuestsCount, promo)
}
