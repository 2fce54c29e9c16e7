package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/beesaferoot/rental-booking/booking"
)

// PropertyRecord is a cached property. IDs are assigned by the remote API.
type PropertyRecord struct {
	gorm.Model
	Name       string `gorm:"not null"`
	Street     string
	City       string
	Country    string
	PostalCode string
	Phone      string
	IsActive   bool
}

func (PropertyRecord) TableName() string { return "properties" }

// UnitRecord is a cached unit. Prices are stored in minor units.
type UnitRecord struct {
	gorm.Model
	PropertyID          uint `gorm:"index;not null"`
	Name                string
	PricePerNight       int64
	Capacity            int
	MaxCapacity         int
	PricePerExtraPerson int64
	IsActive            bool
	IsDeleted           bool
}

func (UnitRecord) TableName() string { return "units" }

type ClientRecord struct {
	gorm.Model
	Name       string
	Email      string
	Street     string
	City       string
	Country    string
	PostalCode string
	Phone      string
}

func (ClientRecord) TableName() string { return "clients" }

type ServiceRecord struct {
	gorm.Model
	Name     string
	Price    int64
	IsActive bool
}

func (ServiceRecord) TableName() string { return "services" }

type PromoCodeRecord struct {
	gorm.Model
	Code            string `gorm:"uniqueIndex;not null"`
	DiscountPercent int
	ExpiresAt       *time.Time
	IsActive        bool
}

func (PromoCodeRecord) TableName() string { return "promo_codes" }

// BookingRecord is a cached booking. The stay is [CheckIn, CheckOut).
type BookingRecord struct {
	gorm.Model
	UnitID        uint      `gorm:"index;not null"`
	ClientID      uint      `gorm:"index;not null"`
	CheckIn       time.Time `gorm:"not null"`
	CheckOut      time.Time `gorm:"not null"`
	GuestsCount   int
	Status        string `gorm:"size:16;not null;default:pending"`
	ServiceIDs    []uint `gorm:"serializer:json"`
	PromoCodeID   *uint
	DepositPaid   bool
	DepositAmount int64
	TotalPrice    int64
}

func (BookingRecord) TableName() string { return "bookings" }

// catalogModels lists the record types in dependency order.
func catalogModels() []any {
	return []any{
		&PropertyRecord{},
		&UnitRecord{},
		&ClientRecord{},
		&ServiceRecord{},
		&PromoCodeRecord{},
		&BookingRecord{},
	}
}

func model(id uint) gorm.Model {
	return gorm.Model{ID: id}
}

func propertyRecord(p booking.Property) PropertyRecord {
	return PropertyRecord{
		Model:      model(p.ID),
		Name:       p.Name,
		Street:     p.Address.Street,
		City:       p.Address.City,
		Country:    p.Address.Country,
		PostalCode: p.Address.PostalCode,
		Phone:      p.Address.Phone,
		IsActive:   p.IsActive,
	}
}

func (r PropertyRecord) toDomain() booking.Property {
	return booking.Property{
		ID:   r.ID,
		Name: r.Name,
		Address: booking.Address{
			Street:     r.Street,
			City:       r.City,
			Country:    r.Country,
			PostalCode: r.PostalCode,
			Phone:      r.Phone,
		},
		IsActive: r.IsActive,
	}
}

func unitRecord(u booking.Unit) UnitRecord {
	return UnitRecord{
		Model:               model(u.ID),
		PropertyID:          u.PropertyID,
		Name:                u.Name,
		PricePerNight:       int64(u.PricePerNight),
		Capacity:            u.Capacity,
		MaxCapacity:         u.MaxCapacity,
		PricePerExtraPerson: int64(u.PricePerExtraPerson),
		IsActive:            u.IsActive,
		IsDeleted:           u.IsDeleted,
	}
}

func (r UnitRecord) toDomain() booking.Unit {
	return booking.Unit{
		ID:                  r.ID,
		PropertyID:          r.PropertyID,
		Name:                r.Name,
		PricePerNight:       booking.Money(r.PricePerNight),
		Capacity:            r.Capacity,
		MaxCapacity:         r.MaxCapacity,
		PricePerExtraPerson: booking.Money(r.PricePerExtraPerson),
		IsActive:            r.IsActive,
		IsDeleted:           r.IsDeleted,
	}
}

func clientRecord(c booking.Client) ClientRecord {
	return ClientRecord{
		Model:      model(c.ID),
		Name:       c.Name,
		Email:      c.Email,
		Street:     c.Address.Street,
		City:       c.Address.City,
		Country:    c.Address.Country,
		PostalCode: c.Address.PostalCode,
		Phone:      c.Address.Phone,
	}
}

func (r ClientRecord) toDomain() booking.Client {
	return booking.Client{
		ID:    r.ID,
		Name:  r.Name,
		Email: r.Email,
		Address: booking.Address{
			Street:     r.Street,
			City:       r.City,
			Country:    r.Country,
			PostalCode: r.PostalCode,
			Phone:      r.Phone,
		},
	}
}

func serviceRecord(s booking.Service) ServiceRecord {
	return ServiceRecord{Model: model(s.ID), Name: s.Name, Price: int64(s.Price), IsActive: s.IsActive}
}

func (r ServiceRecord) toDomain() booking.Service {
	return booking.Service{ID: r.ID, Name: r.Name, Price: booking.Money(r.Price), IsActive: r.IsActive}
}

func promoCodeRecord(p booking.PromoCode) PromoCodeRecord {
	return PromoCodeRecord{
		Model:           model(p.ID),
		Code:            p.Code,
		DiscountPercent: p.DiscountPercent,
		ExpiresAt:       p.ExpiresAt,
		IsActive:        p.IsActive,
	}
}

func (r PromoCodeRecord) toDomain() booking.PromoCode {
	p := booking.PromoCode{
		ID:              r.ID,
		Code:            r.Code,
		DiscountPercent: r.DiscountPercent,
		IsActive:        r.IsActive,
	}
	if r.ExpiresAt != nil {
		expires := booking.Day(r.ExpiresAt.UTC())
		p.ExpiresAt = &expires
	}
	return p
}

func bookingRecord(b booking.Booking) BookingRecord {
	return BookingRecord{
		Model:         model(b.ID),
		UnitID:        b.UnitID,
		ClientID:      b.ClientID,
		CheckIn:       booking.Day(b.CheckIn),
		CheckOut:      booking.Day(b.CheckOut),
		GuestsCount:   b.GuestsCount,
		Status:        string(b.Status),
		ServiceIDs:    b.ServiceIDs,
		PromoCodeID:   b.PromoCodeID,
		DepositPaid:   b.DepositPaid,
		DepositAmount: int64(b.DepositAmount),
		TotalPrice:    int64(b.TotalPrice),
	}
}

func (r BookingRecord) toDomain() booking.Booking {
	return booking.Booking{
		ID:            r.ID,
		UnitID:        r.UnitID,
		ClientID:      r.ClientID,
		CheckIn:       booking.Day(r.CheckIn.UTC()),
		CheckOut:      booking.Day(r.CheckOut.UTC()),
		GuestsCount:   r.GuestsCount,
		Status:        booking.Status(r.Status),
		ServiceIDs:    r.ServiceIDs,
		PromoCodeID:   r.PromoCodeID,
		DepositPaid:   r.DepositPaid,
		DepositAmount: booking.Money(r.DepositAmount),
		TotalPrice:    booking.Money(r.TotalPrice),
	}
}
