package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is what the API layer sends to create or update a booking.
type Payload struct {
	UnitID      uint      `validate:"required"`
	ClientID    uint      `validate:"required"`
	CheckIn     time.Time `validate:"required"`
	CheckOut    time.Time `validate:"required,gtfield=CheckIn"`
	GuestsCount int       `validate:"gte=1"`
	ServiceIDs  []uint    `validate:"dive,required"`
	PromoCodeID *uint
	Status      Status `validate:"oneof=pending confirmed cancelled"`
}

type payloadJSON struct {
	UnitID      uint   `json:"unit_id"`
	ClientID    uint   `json:"client_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	GuestsCount int    `json:"guests_count"`
	ServiceIDs  []uint `json:"services"`
	PromoCodeID *uint  `json:"promo_code_id,omitempty"`
	Status      Status `json:"status"`
}

// Validate checks the payload's field constraints.
func (p Payload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid booking payload: %w", err)
	}
	return nil
}

// Range returns the requested stay.
func (p Payload) Range() DateRange {
	return NewDateRange(p.CheckIn, p.CheckOut)
}

func (p Payload) MarshalJSON() ([]byte, error) {
	services := p.ServiceIDs
	if services == nil {
		services = []uint{}
	}
	return json.Marshal(payloadJSON{
		UnitID:      p.UnitID,
		ClientID:    p.ClientID,
		CheckIn:     formatDate(p.CheckIn),
		CheckOut:    formatDate(p.CheckOut),
		GuestsCount: p.GuestsCount,
		ServiceIDs:  services,
		PromoCodeID: p.PromoCodeID,
		Status:      p.Status,
	})
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw payloadJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	checkIn, err := parseWireDate(raw.CheckIn)
	if err != nil {
		return fmt.Errorf("check_in: %w", err)
	}
	checkOut, err := parseWireDate(raw.CheckOut)
	if err != nil {
		return fmt.Errorf("check_out: %w", err)
	}
	*p = Payload{
		UnitID:      raw.UnitID,
		ClientID:    raw.ClientID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		GuestsCount: raw.GuestsCount,
		ServiceIDs:  raw.ServiceIDs,
		PromoCodeID: raw.PromoCodeID,
		Status:      raw.Status,
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	return nil
}
