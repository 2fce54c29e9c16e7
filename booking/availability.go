package booking

// Filter describes an availability query.
type Filter struct {
	Range DateRange
	// Guests is the party size. Zero means not yet known and skips the capacity check.
	Guests int
	// ExcludeBookingID keeps a booking being edited from conflicting with itself.
	ExcludeBookingID uint
	// PropertyID, when set, restricts candidates to one property's units.
	PropertyID uint
}

// Conflicts returns the bookings that occupy unitID during r. Cancelled bookings and the
// excluded booking are ignored.
func Conflicts(unitID uint, bookings []Booking, r DateRange, excludeBookingID uint) []Booking {
	var out []Booking
	for _, b := range bookings {
		if conflicts(b, unitID, r, excludeBookingID) {
			out = append(out, b)
		}
	}
	return out
}

func conflicts(b Booking, unitID uint, r DateRange, excludeBookingID uint) bool {
	if b.UnitID != unitID || !b.Blocks() {
		return false
	}
	if excludeBookingID != 0 && b.ID == excludeBookingID {
		return false
	}
	return r.Overlaps(b.Range())
}

// AvailableUnits returns the candidates that can be booked for f. An invalid or missing date
// range yields no units at all.
func AvailableUnits(candidates []Unit, bookings []Booking, f Filter) []Unit {
	if !f.Range.Valid() {
		return nil
	}

	byUnit := make(map[uint][]Booking)
	for _, b := range bookings {
		byUnit[b.UnitID] = append(byUnit[b.UnitID], b)
	}

	var out []Unit
	for _, u := range candidates {
		if !u.Bookable() {
			continue
		}
		if f.PropertyID != 0 && u.PropertyID != f.PropertyID {
			continue
		}
		if f.Guests > 0 && u.MaxCapacity < f.Guests {
			continue
		}
		if len(Conflicts(u.ID, byUnit[u.ID], f.Range, f.ExcludeBookingID)) > 0 {
			continue
		}
		out = append(out, u)
	}
	return out
}

// AvailableProperties returns the properties that own at least one unit passing f.
// Properties are never filtered on their own attributes.
func AvailableProperties(properties []Property, units []Unit, bookings []Booking, f Filter) []Property {
	owners := make(map[uint]bool)
	for _, u := range AvailableUnits(units, bookings, f) {
		owners[u.PropertyID] = true
	}

	var out []Property
	for _, p := range properties {
		if owners[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// AvailableUnits runs the filter over the catalog's units and bookings.
func (c Catalog) AvailableUnits(f Filter) []Unit {
	return AvailableUnits(c.Units, c.Bookings, f)
}

// AvailableProperties runs the property filter over the catalog.
func (c Catalog) AvailableProperties(f Filter) []Property {
	return AvailableProperties(c.Properties, c.Units, c.Bookings, f)
}
