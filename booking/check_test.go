package booking

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	c := testCatalog(t)
	promo := uint(5)
	valid := Payload{
		UnitID: 10, ClientID: 1,
		CheckIn: date(t, "2025-07-05"), CheckOut: date(t, "2025-07-08"),
		GuestsCount: 3, ServiceIDs: []uint{7}, PromoCodeID: &promo, Status: StatusPending,
	}
	require.NoError(t, Check(c, valid, 0))

	tests := []struct {
		name    string
		mutate  func(p *Payload)
		exclude uint
		want    error
	}{
		{"inverted range", func(p *Payload) { p.CheckOut = date(t, "2025-07-04") }, 0, ErrInvalidRange},
		{"unknown unit", func(p *Payload) { p.UnitID = 99 }, 0, ErrUnknownUnit},
		{"unknown client", func(p *Payload) { p.ClientID = 99 }, 0, ErrUnknownClient},
		{"unknown service", func(p *Payload) { p.ServiceIDs = []uint{7, 8} }, 0, ErrUnknownService},
		{"unknown promo", func(p *Payload) { id := uint(9); p.PromoCodeID = &id }, 0, ErrUnknownPromo},
		{"too many guests", func(p *Payload) { p.GuestsCount = 5 }, 0, ErrCapacityExceeded},
		{"no guests", func(p *Payload) { p.GuestsCount = 0 }, 0, ErrCapacityExceeded},
		{"overlapping stay", func(p *Payload) { p.CheckIn = date(t, "2025-07-03") }, 0, ErrNoAvailability},
		{"edit of the overlapping booking", func(p *Payload) { p.CheckIn = date(t, "2025-07-03") }, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := Check(c, p, tt.exclude)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("inactive unit only for its own booking", func(t *testing.T) {
		cc := c
		cc.Units = append([]Unit(nil), c.Units...)
		cc.Units[0].IsActive = false
		assert.ErrorIs(t, Check(cc, valid, 0), ErrNoAvailability)
		assert.NoError(t, Check(cc, valid, 100))
	})

	t.Run("out of range discount", func(t *testing.T) {
		cc := c
		cc.PromoCodes = []PromoCode{{ID: 5, Code: "BROKEN", DiscountPercent: 120, IsActive: true}}
		assert.ErrorIs(t, Check(cc, valid, 0), ErrInvalidDiscount)
	})
}

func TestQuoteFor(t *testing.T) {
	c := testCatalog(t)
	promo := uint(5)
	p := Payload{UnitID: 10, ClientID: 1, CheckIn: date(t, "2025-06-01"), CheckOut: date(t, "2025-06-04"), GuestsCount: 3, PromoCodeID: &promo}
	assert.Equal(t, Money(32400), QuoteFor(c, p).Total)

	p.UnitID = 99
	assert.Equal(t, Quote{}, QuoteFor(c, p))
}

func TestCatalogValidate(t *testing.T) {
	c := testCatalog(t)
	assert.NoError(t, c.Validate())

	c.Units = append([]Unit(nil), c.Units...)
	c.Units[0].MaxCapacity = 1
	assert.Error(t, c.Validate())
}

func TestAugment(t *testing.T) {
	c := testCatalog(t)
	extra := Unit{ID: 30, PropertyID: 3}
	out := c.Augment([]Unit{extra, c.Units[0]}, []Property{{ID: 3, Name: "Old mill"}})

	assert.Len(t, out.Units, len(c.Units)+1)
	assert.Len(t, out.Properties, len(c.Properties)+1)
	assert.Len(t, c.Units, 3, "the original catalog is untouched")
	_, ok := out.Unit(30)
	assert.True(t, ok)
}

func TestBookingJSON(t *testing.T) {
	raw := `{"id":1,"unit_id":10,"client_id":1,"check_in":"2025-07-01T14:00:00Z","check_out":"2025-07-05",
		"guests_count":2,"services":[7],"deposit_paid":true,"deposit_amount":"50.00","total_price":400}`

	var b Booking
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, date(t, "2025-07-01"), b.CheckIn)
	assert.Equal(t, 4, b.Range().Nights())
	assert.Equal(t, Money(5000), b.DepositAmount)
	assert.Equal(t, Money(40000), b.TotalPrice)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"check_in":"2025-07-01"`)
	assert.Contains(t, string(out), `"total_price":400.00`)

	assert.Error(t, json.Unmarshal([]byte(`{"id":2,"check_in":"July 1st"}`), &b))
}

func TestPayloadJSON(t *testing.T) {
	p := Payload{UnitID: 10, ClientID: 1, CheckIn: date(t, "2025-07-05"), CheckOut: date(t, "2025-07-08"), GuestsCount: 2, Status: StatusPending}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unit_id":10,"client_id":1,"check_in":"2025-07-05","check_out":"2025-07-08","guests_count":2,"services":[],"status":"pending"}`, string(out))

	var back Payload
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, p.Range(), back.Range())
	assert.Nil(t, back.PromoCodeID)
}

func TestPromoCodeJSON(t *testing.T) {
	var pc PromoCode
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"code":"SUMMER10","discount_percent":10,"expires_at":"2025-08-31","is_active":true}`), &pc))
	require.NotNil(t, pc.ExpiresAt)
	assert.True(t, pc.AppliesOn(date(t, "2025-08-31")))
	assert.False(t, pc.AppliesOn(date(t, "2025-09-01")))
}

func TestSnapshots(t *testing.T) {
	s := NewSnapshots(Catalog{})
	_, v := s.Current()
	assert.Equal(t, uint64(1), v)

	c := testCatalog(t)
	assert.Equal(t, uint64(2), s.Swap(c))
	got, v := s.Current()
	assert.Equal(t, uint64(2), v)
	assert.Len(t, got.Units, 3)
	assert.Equal(t, uint64(2), s.Version())

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := NewSnapshots(Catalog{})
		var wg sync.WaitGroup
		for i := 1; i <= 50; i++ {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				s.Update(func(c Catalog) Catalog {
					c.Bookings = append(append([]Booking(nil), c.Bookings...), Booking{ID: id})
					return c
				})
			}(uint(i))
		}
		wg.Wait()

		got, v := s.Current()
		assert.Len(t, got.Bookings, 50)
		assert.Equal(t, uint64(51), v)
	})
}
