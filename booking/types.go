// Package booking implements availability, capacity and pricing rules for rental bookings,
// and the progressive booking form built on top of them.
//
// Everything in this package is a pure function over immutable catalog snapshots. Callers own
// mutable state; the package never performs I/O.
package booking

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Address is a postal address shared by properties and clients.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// Property groups units at one address.
type Property struct {
	ID       uint    `json:"id" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Address  Address `json:"address"`
	IsActive bool    `json:"is_active"`
}

// Unit is a rentable room or apartment within a property.
type Unit struct {
	ID                  uint   `json:"id" validate:"required"`
	PropertyID          uint   `json:"property_id" validate:"required"`
	Name                string `json:"name"`
	PricePerNight       Money  `json:"price_per_night" validate:"gte=0"`
	Capacity            int    `json:"capacity" validate:"gte=0"`
	MaxCapacity         int    `json:"max_capacity" validate:"gtefield=Capacity"`
	PricePerExtraPerson Money  `json:"price_per_extra_person" validate:"gte=0"`
	IsActive            bool   `json:"is_active"`
	IsDeleted           bool   `json:"is_deleted"`
}

// Bookable reports whether the unit may be offered at all, ignoring dates.
func (u Unit) Bookable() bool {
	return u.IsActive && !u.IsDeleted
}

// Client is the guest a booking is made for.
type Client struct {
	ID      uint    `json:"id" validate:"required"`
	Name    string  `json:"name"`
	Email   string  `json:"email" validate:"omitempty,email"`
	Address Address `json:"address"`
}

// Service is an optional extra attached to a booking.
type Service struct {
	ID       uint   `json:"id" validate:"required"`
	Name     string `json:"name"`
	Price    Money  `json:"price" validate:"gte=0"`
	IsActive bool   `json:"is_active"`
}

// PromoCode grants a percentage discount on a stay.
type PromoCode struct {
	ID              uint       `json:"id" validate:"required"`
	Code            string     `json:"code" validate:"required"`
	DiscountPercent int        `json:"discount_percent" validate:"gte=0,lte=100"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsActive        bool       `json:"is_active"`
}

// Validate rejects discounts outside 0..100.
func (p PromoCode) Validate() error {
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return fmt.Errorf("promo code %q: %w: %d%%", p.Code, ErrInvalidDiscount, p.DiscountPercent)
	}
	return nil
}

// AppliesOn reports whether the code grants its discount for a booking dated on. The expiry
// date is inclusive through its calendar day.
func (p PromoCode) AppliesOn(on time.Time) bool {
	if !p.IsActive || p.Validate() != nil {
		return false
	}
	if p.ExpiresAt != nil && Day(on).After(Day(*p.ExpiresAt)) {
		return false
	}
	return true
}

type promoCodeJSON struct {
	ID              uint   `json:"id"`
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	IsActive        bool   `json:"is_active"`
}

func (p PromoCode) MarshalJSON() ([]byte, error) {
	raw := promoCodeJSON{
		ID:              p.ID,
		Code:            p.Code,
		DiscountPercent: p.DiscountPercent,
		IsActive:        p.IsActive,
	}
	if p.ExpiresAt != nil {
		raw.ExpiresAt = formatDate(*p.ExpiresAt)
	}
	return json.Marshal(raw)
}

func (p *PromoCode) UnmarshalJSON(data []byte) error {
	var raw promoCodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PromoCode{
		ID:              raw.ID,
		Code:            raw.Code,
		DiscountPercent: raw.DiscountPercent,
		IsActive:        raw.IsActive,
	}
	if raw.ExpiresAt != "" {
		expires, err := parseWireDate(raw.ExpiresAt)
		if err != nil {
			return fmt.Errorf("promo code %q expires_at: %w", raw.Code, err)
		}
		p.ExpiresAt = &expires
	}
	return nil
}

// Booking is a reservation of one unit for one client.
type Booking struct {
	ID            uint      `json:"id" validate:"required"`
	UnitID        uint      `json:"unit_id" validate:"required"`
	ClientID      uint      `json:"client_id" validate:"required"`
	CheckIn       time.Time `json:"check_in" validate:"required"`
	CheckOut      time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	GuestsCount   int       `json:"guests_count" validate:"gte=1"`
	Status        Status    `json:"status" validate:"oneof=pending confirmed cancelled"`
	ServiceIDs    []uint    `json:"services"`
	PromoCodeID   *uint     `json:"promo_code_id,omitempty"`
	DepositPaid   bool      `json:"deposit_paid"`
	DepositAmount Money     `json:"deposit_amount"`
	TotalPrice    Money     `json:"total_price"`
}

// Range returns the stay of the booking.
func (b Booking) Range() DateRange {
	return NewDateRange(b.CheckIn, b.CheckOut)
}

// Blocks reports whether the booking occupies its unit. Cancelled bookings never do.
func (b Booking) Blocks() bool {
	return b.Status != StatusCancelled
}

type bookingJSON struct {
	ID            uint   `json:"id"`
	UnitID        uint   `json:"unit_id"`
	ClientID      uint   `json:"client_id"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	GuestsCount   int    `json:"guests_count"`
	Status        Status `json:"status"`
	ServiceIDs    []uint `json:"services"`
	PromoCodeID   *uint  `json:"promo_code_id,omitempty"`
	DepositPaid   bool   `json:"deposit_paid"`
	DepositAmount Money  `json:"deposit_amount"`
	TotalPrice    Money  `json:"total_price"`
}

// MarshalJSON writes check-in and check-out as calendar dates.
func (b Booking) MarshalJSON() ([]byte, error) {
	return json.Marshal(bookingJSON{
		ID:            b.ID,
		UnitID:        b.UnitID,
		ClientID:      b.ClientID,
		CheckIn:       formatDate(b.CheckIn),
		CheckOut:      formatDate(b.CheckOut),
		GuestsCount:   b.GuestsCount,
		Status:        b.Status,
		ServiceIDs:    b.ServiceIDs,
		PromoCodeID:   b.PromoCodeID,
		DepositPaid:   b.DepositPaid,
		DepositAmount: b.DepositAmount,
		TotalPrice:    b.TotalPrice,
	})
}

// UnmarshalJSON accepts calendar dates or RFC 3339 timestamps.
func (b *Booking) UnmarshalJSON(data []byte) error {
	var raw bookingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	checkIn, err := parseWireDate(raw.CheckIn)
	if err != nil {
		return fmt.Errorf("booking %d check_in: %w", raw.ID, err)
	}
	checkOut, err := parseWireDate(raw.CheckOut)
	if err != nil {
		return fmt.Errorf("booking %d check_out: %w", raw.ID, err)
	}
	*b = Booking{
		ID:            raw.ID,
		UnitID:        raw.UnitID,
		ClientID:      raw.ClientID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		GuestsCount:   raw.GuestsCount,
		Status:        raw.Status,
		ServiceIDs:    raw.ServiceIDs,
		PromoCodeID:   raw.PromoCodeID,
		DepositPaid:   raw.DepositPaid,
		DepositAmount: raw.DepositAmount,
		TotalPrice:    raw.TotalPrice,
	}
	if b.Status == "" {
		b.Status = StatusPending
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func parseWireDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Day(t), nil
}
