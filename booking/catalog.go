package booking

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Catalog is an immutable snapshot of everything the engine reads. Methods that change the
// catalog return a new value; slices are never modified in place.
type Catalog struct {
	Properties []Property  `json:"properties" validate:"dive"`
	Units      []Unit      `json:"units" validate:"dive"`
	Bookings   []Booking   `json:"bookings" validate:"dive"`
	Clients    []Client    `json:"clients" validate:"dive"`
	PromoCodes []PromoCode `json:"promo_codes" validate:"dive"`
	Services   []Service   `json:"services" validate:"dive"`
}

var validate = validator.New()

// Validate checks field-level constraints of every record in the catalog.
func (c Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}

func (c Catalog) Unit(id uint) (Unit, bool) {
	for _, u := range c.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

func (c Catalog) Property(id uint) (Property, bool) {
	for _, p := range c.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return Property{}, false
}

func (c Catalog) Booking(id uint) (Booking, bool) {
	for _, b := range c.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}

func (c Catalog) Client(id uint) (Client, bool) {
	for _, cl := range c.Clients {
		if cl.ID == id {
			return cl, true
		}
	}
	return Client{}, false
}

func (c Catalog) PromoCode(id uint) (PromoCode, bool) {
	for _, p := range c.PromoCodes {
		if p.ID == id {
			return p, true
		}
	}
	return PromoCode{}, false
}

// PromoCodeByCode looks a promo code up by its code string.
func (c Catalog) PromoCodeByCode(code string) (PromoCode, bool) {
	for _, p := range c.PromoCodes {
		if p.Code == code {
			return p, true
		}
	}
	return PromoCode{}, false
}

func (c Catalog) Service(id uint) (Service, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// UnitsOf returns the units owned by a property.
func (c Catalog) UnitsOf(propertyID uint) []Unit {
	var units []Unit
	for _, u := range c.Units {
		if u.PropertyID == propertyID {
			units = append(units, u)
		}
	}
	return units
}

// Augment returns a catalog that also contains the given units and properties. Records already
// present by ID are left as they are. It lets an edit form show a booking's unit after that unit
// dropped out of the fetched catalog.
func (c Catalog) Augment(units []Unit, properties []Property) Catalog {
	out := c
	out.Units = append([]Unit(nil), c.Units...)
	for _, u := range units {
		if _, ok := c.Unit(u.ID); !ok {
			out.Units = append(out.Units, u)
		}
	}
	out.Properties = append([]Property(nil), c.Properties...)
	for _, p := range properties {
		if _, ok := c.Property(p.ID); !ok {
			out.Properties = append(out.Properties, p)
		}
	}
	return out
}
