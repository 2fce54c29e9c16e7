package booking

// IsCapacityValid reports whether guests fits the unit: 1 <= guests <= MaxCapacity.
func IsCapacityValid(u Unit, guests int) bool {
	return guests >= 1 && guests <= u.MaxCapacity
}

// RequiresSurcharge reports whether guests exceeds the count included in the base price.
// It does not invalidate a booking.
func RequiresSurcharge(u Unit, guests int) bool {
	return guests > u.Capacity
}

// ExtraGuests is the number of guests charged the extra-person rate.
func ExtraGuests(u Unit, guests int) int {
	if extra := guests - u.Capacity; extra > 0 {
		return extra
	}
	return 0
}
