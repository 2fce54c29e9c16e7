package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func propertyIDs(props []Property) []uint {
	ids := make([]uint, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids
}

// fill drives a new form through every step for unit 11.
func fill(t *testing.T, c Catalog) Form {
	t.Helper()
	f := NewForm()
	for _, e := range []Event{
		ChooseCheckIn{Date: date(t, "2025-07-03")},
		ChooseCheckOut{Date: date(t, "2025-07-06")},
		ChooseProperty{PropertyID: 1},
		ChooseUnit{UnitID: 11},
		ChooseGuests{Count: 2},
		ChooseClient{ClientID: 2},
	} {
		f = Reduce(f, c, e)
	}
	require.Equal(t, StepComplete, f.Step)
	return f
}

func TestReduce(t *testing.T) {
	c := testCatalog(t)

	t.Run("progressive disclosure", func(t *testing.T) {
		f := NewForm()
		assert.Equal(t, StepStart, f.Step)
		assert.True(t, f.Enabled(FieldCheckIn))
		assert.False(t, f.Enabled(FieldCheckOut))

		f = Reduce(f, c, ChooseCheckOut{Date: date(t, "2025-07-06")})
		assert.Equal(t, StepStart, f.Step, "check-out before check-in is ignored")

		f = Reduce(f, c, ChooseCheckIn{Date: date(t, "2025-07-03")})
		assert.Equal(t, StepCheckInChosen, f.Step)
		assert.True(t, f.Enabled(FieldCheckOut))
		assert.False(t, f.Enabled(FieldProperty))

		same := Reduce(f, c, ChooseCheckOut{Date: date(t, "2025-07-03")})
		assert.Equal(t, StepCheckInChosen, same.Step, "zero-night stay is ignored")

		f = Reduce(f, c, ChooseCheckOut{Date: date(t, "2025-07-06")})
		assert.Equal(t, StepCheckOutChosen, f.Step)
		assert.ElementsMatch(t, []uint{1, 2}, propertyIDs(f.Properties))

		f = Reduce(f, c, ChooseProperty{PropertyID: 1})
		assert.Equal(t, StepPropertyChosen, f.Step)
		assert.Equal(t, []uint{11}, unitIDs(f.Units), "unit 10 is booked")

		booked := Reduce(f, c, ChooseUnit{UnitID: 10})
		assert.Equal(t, StepPropertyChosen, booked.Step)

		f = Reduce(f, c, ChooseUnit{UnitID: 11})
		assert.Equal(t, StepUnitChosen, f.Step)
		assert.True(t, f.Enabled(FieldGuests))

		f = Reduce(f, c, ChooseGuests{Count: 3})
		assert.Equal(t, StepUnitChosen, f.Step, "unit 11 hosts at most 2")
		assert.False(t, f.CapacityOK)
		assert.Equal(t, 3, f.Guests)
		assert.False(t, f.Enabled(FieldClient))

		f = Reduce(f, c, ChooseGuests{Count: 2})
		assert.Equal(t, StepGuestsChosen, f.Step)
		assert.True(t, f.CapacityOK)

		unknown := Reduce(f, c, ChooseClient{ClientID: 99})
		assert.Equal(t, StepGuestsChosen, unknown.Step)

		f = Reduce(f, c, ChooseClient{ClientID: 2})
		assert.Equal(t, StepComplete, f.Step)
		assert.True(t, f.Enabled(FieldSubmit))
	})

	t.Run("upstream change resets downstream fields", func(t *testing.T) {
		f := fill(t, c)

		g := Reduce(f, c, ChooseProperty{PropertyID: 2})
		assert.Equal(t, StepPropertyChosen, g.Step)
		assert.Equal(t, uint(2), g.PropertyID)
		assert.Zero(t, g.UnitID)
		assert.Zero(t, g.Guests)
		assert.Zero(t, g.ClientID)
		assert.Equal(t, []uint{20}, unitIDs(g.Units))

		g = Reduce(f, c, ChooseCheckIn{Date: date(t, "2025-07-01")})
		assert.Equal(t, StepCheckInChosen, g.Step)
		assert.True(t, g.CheckOut.IsZero())
		assert.Nil(t, g.Properties)
		assert.Zero(t, g.PropertyID)

		assert.Equal(t, StepComplete, f.Step, "reduce does not modify its input")
		assert.Equal(t, uint(11), f.UnitID)
	})

	t.Run("extras do not move the step", func(t *testing.T) {
		f := Reduce(NewForm(), c, SelectServices{ServiceIDs: []uint{7}})
		promo := uint(5)
		f = Reduce(f, c, SelectPromoCode{PromoCodeID: &promo})
		f = Reduce(f, c, SelectStatus{Status: StatusConfirmed})
		assert.Equal(t, StepStart, f.Step)
		assert.Equal(t, []uint{7}, f.ServiceIDs)
		require.NotNil(t, f.PromoCodeID)
		assert.Equal(t, uint(5), *f.PromoCodeID)
		assert.Equal(t, StatusConfirmed, f.Status)

		f = Reduce(f, c, SelectStatus{Status: "archived"})
		assert.Equal(t, StatusConfirmed, f.Status)
	})
}

func TestFormPayload(t *testing.T) {
	c := testCatalog(t)

	_, err := NewForm().Payload()
	assert.ErrorIs(t, err, ErrIncomplete)

	f := Reduce(fill(t, c), c, SelectServices{ServiceIDs: []uint{7}})
	p, err := f.Payload()
	require.NoError(t, err)
	assert.Equal(t, uint(11), p.UnitID)
	assert.Equal(t, uint(2), p.ClientID)
	assert.Equal(t, 2, p.GuestsCount)
	assert.Equal(t, []uint{7}, p.ServiceIDs)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, 3, p.Range().Nights())
	assert.NoError(t, p.Validate())
	assert.NoError(t, Check(c, p, 0))

	q := f.Quote(c)
	assert.Equal(t, Money(24000), q.Total)
}

func TestStorefrontForm(t *testing.T) {
	c := testCatalog(t)
	f := NewStorefrontForm()
	f = Reduce(f, c, SelectStatus{Status: StatusConfirmed})
	assert.Equal(t, StatusPending, f.Status)
	assert.Equal(t, OriginStorefront, f.Origin)
}

func TestEditForm(t *testing.T) {
	c := testCatalog(t)
	c.Units = append([]Unit(nil), c.Units...)
	c.Units[0].IsActive = false // unit 10, the booking's own unit
	c.Units[1].IsActive = false
	own := c.Bookings[0]

	f := EditForm(c, own)
	assert.Equal(t, StepComplete, f.Step)
	assert.Equal(t, own.ID, f.EditingID)
	assert.Equal(t, uint(1), f.PropertyID)
	assert.Contains(t, unitIDs(f.Units), uint(10), "own unit stays selectable")
	assert.Contains(t, propertyIDs(f.Properties), uint(1), "own property stays selectable")
	assert.True(t, f.CapacityOK)

	p, err := f.Payload()
	require.NoError(t, err)
	assert.Equal(t, own.UnitID, p.UnitID)
	assert.Equal(t, own.ClientID, p.ClientID)
	assert.Equal(t, own.Range(), p.Range())
	assert.Equal(t, own.Status, p.Status)
	assert.NoError(t, Check(c, p, own.ID), "an edit does not conflict with itself")

	g := Reduce(f, c, ChooseGuests{Count: 3})
	assert.Equal(t, StepGuestsChosen, g.Step)
	assert.Equal(t, 3, g.Guests)

	g = Reduce(f, c, ChooseCheckOut{Date: date(t, "2025-07-06")})
	g = Reduce(g, c, ChooseProperty{PropertyID: 1})
	assert.Equal(t, StepCheckOutChosen, g.Step, "property 1 has nothing to offer once the dates change")
	assert.NotContains(t, propertyIDs(g.Properties), uint(1))
}

func TestRefresh(t *testing.T) {
	c := testCatalog(t)
	f := fill(t, c)

	t.Run("unchanged catalog keeps the form", func(t *testing.T) {
		g := Refresh(f, c)
		assert.Equal(t, StepComplete, g.Step)
		assert.Equal(t, uint(11), g.UnitID)
	})

	t.Run("unit booked elsewhere resets from the unit", func(t *testing.T) {
		next := c
		next.Units = append(append([]Unit(nil), c.Units...), Unit{ID: 12, PropertyID: 1, PricePerNight: 9000, Capacity: 2, MaxCapacity: 2, IsActive: true})
		next.Bookings = append(append([]Booking(nil), c.Bookings...), Booking{
			ID: 101, UnitID: 11, ClientID: 1, CheckIn: date(t, "2025-07-04"), CheckOut: date(t, "2025-07-09"),
			GuestsCount: 1, Status: StatusPending,
		})
		g := Refresh(f, next)
		assert.Equal(t, StepPropertyChosen, g.Step)
		assert.Zero(t, g.UnitID)
		assert.Zero(t, g.ClientID)
		assert.Equal(t, []uint{12}, unitIDs(g.Units))
	})

	t.Run("lowered capacity keeps the guest count", func(t *testing.T) {
		next := c
		next.Units = append([]Unit(nil), c.Units...)
		next.Units[1].MaxCapacity = 1
		g := Refresh(f, next)
		assert.Equal(t, StepUnitChosen, g.Step)
		assert.Equal(t, 2, g.Guests)
		assert.False(t, g.CapacityOK)
		assert.Zero(t, g.ClientID)
	})

	t.Run("removed property resets from the property", func(t *testing.T) {
		next := c
		next.Units = []Unit{c.Units[2]}
		g := Refresh(f, next)
		assert.Equal(t, StepCheckOutChosen, g.Step)
		assert.Equal(t, []uint{2}, propertyIDs(g.Properties))
	})
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "complete", StepComplete.String())
	assert.Equal(t, "step(42)", Step(42).String())
}
