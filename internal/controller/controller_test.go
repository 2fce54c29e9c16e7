package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/logging"
)

func day(d int) time.Time {
	return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
}

func testCatalog() booking.Catalog {
	return booking.Catalog{
		Properties: []booking.Property{{ID: 1, Name: "Seaside", IsActive: true}},
		Units: []booking.Unit{
			{ID: 10, PropertyID: 1, Name: "A", PricePerNight: 10000, Capacity: 2, MaxCapacity: 4, PricePerExtraPerson: 2000, IsActive: true},
		},
		Bookings: []booking.Booking{
			{ID: 100, UnitID: 10, ClientID: 1, CheckIn: day(1), CheckOut: day(5), GuestsCount: 2, Status: booking.StatusConfirmed},
		},
		Clients:    []booking.Client{{ID: 1, Name: "Ada"}},
		PromoCodes: []booking.PromoCode{{ID: 5, Code: "SUMMER10", DiscountPercent: 10, IsActive: true}},
	}
}

type fakeSource struct {
	catalog booking.Catalog
	err     error
}

func (f *fakeSource) Load(context.Context) (booking.Catalog, error) {
	return f.catalog, f.err
}

type fakeSubmitter struct {
	mu      sync.Mutex
	created []booking.Payload
	updated map[uint]booking.Payload
	err     error
	nextID  uint
}

func (f *fakeSubmitter) CreateBooking(_ context.Context, p booking.Payload) (booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return booking.Booking{}, f.err
	}
	f.created = append(f.created, p)
	f.nextID++
	return booking.Booking{ID: f.nextID, UnitID: p.UnitID, ClientID: p.ClientID, CheckIn: p.CheckIn, CheckOut: p.CheckOut, GuestsCount: p.GuestsCount, Status: p.Status}, nil
}

func (f *fakeSubmitter) UpdateBooking(_ context.Context, id uint, p booking.Payload) (booking.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return booking.Booking{}, f.err
	}
	if f.updated == nil {
		f.updated = map[uint]booking.Payload{}
	}
	f.updated[id] = p
	return booking.Booking{ID: id, UnitID: p.UnitID, ClientID: p.ClientID, CheckIn: p.CheckIn, CheckOut: p.CheckOut, GuestsCount: p.GuestsCount, Status: p.Status}, nil
}

// refreshingSubmitter lands a catalog refresh while the submission is in flight.
type refreshingSubmitter struct {
	fakeSubmitter
	during func()
}

func (f *refreshingSubmitter) CreateBooking(ctx context.Context, p booking.Payload) (booking.Booking, error) {
	f.during()
	return f.fakeSubmitter.CreateBooking(ctx, p)
}

type fakePromos map[string]booking.PromoCode

func (f fakePromos) ValidatePromoCode(_ context.Context, code string) (booking.PromoCode, error) {
	promo, ok := f[code]
	if !ok {
		return booking.PromoCode{}, fmt.Errorf("unknown promo code %q", code)
	}
	return promo, nil
}

func setup(t *testing.T) (*Controller, *fakeSource, *fakeSubmitter) {
	t.Helper()
	source := &fakeSource{catalog: testCatalog()}
	submitter := &fakeSubmitter{nextID: 200}
	promos := fakePromos{"WINTER20": {ID: 6, Code: "WINTER20", DiscountPercent: 20, IsActive: true}}
	c := New(source, submitter, promos, logging.Discard())
	require.NoError(t, c.Refresh(context.Background()))
	return c, source, submitter
}

func fill(c *Controller, in, out int) booking.Form {
	c.Dispatch(booking.ChooseCheckIn{Date: day(in)})
	c.Dispatch(booking.ChooseCheckOut{Date: day(out)})
	c.Dispatch(booking.ChooseProperty{PropertyID: 1})
	c.Dispatch(booking.ChooseUnit{UnitID: 10})
	c.Dispatch(booking.ChooseGuests{Count: 3})
	return c.Dispatch(booking.ChooseClient{ClientID: 1})
}

func TestRefresh(t *testing.T) {
	c, source, _ := setup(t)
	assert.Equal(t, uint64(2), c.Snapshots().Version())
	assert.Len(t, c.Catalog().Units, 1)

	source.err = errors.New("boom")
	err := c.Refresh(context.Background())
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, uint64(2), c.Snapshots().Version(), "a failed load keeps the old snapshot")
}

func TestDispatchAndQuote(t *testing.T) {
	c, _, _ := setup(t)
	form := fill(c, 5, 8)
	require.Equal(t, booking.StepComplete, form.Step)

	q := c.Quote()
	assert.Equal(t, booking.Money(36000), q.Total)

	c.Dispatch(booking.SelectPromoCode{PromoCodeID: ptr(5)})
	assert.Equal(t, booking.Money(32400), c.Quote().Total)
}

func TestStaleComputationIsDropped(t *testing.T) {
	c, _, _ := setup(t)
	c.Dispatch(booking.ChooseCheckIn{Date: day(5)})

	t.Run("newer event wins", func(t *testing.T) {
		slow := c.Preview(booking.ChooseCheckOut{Date: day(9)})
		c.Dispatch(booking.ChooseCheckOut{Date: day(8)})
		assert.False(t, c.Commit(slow))
		assert.Equal(t, day(8), c.Form().CheckOut)
	})

	t.Run("snapshot swap invalidates", func(t *testing.T) {
		p := c.Preview(booking.ChooseProperty{PropertyID: 1})
		c.SetCatalog(testCatalog())
		assert.False(t, c.Commit(p))
		assert.Equal(t, booking.StepCheckOutChosen, c.Form().Step)
	})

	t.Run("fresh computation commits", func(t *testing.T) {
		p := c.Preview(booking.ChooseProperty{PropertyID: 1})
		assert.True(t, c.Commit(p))
		assert.Equal(t, booking.StepPropertyChosen, c.Form().Step)
	})
}

func TestRefreshResetsUnavailableSelection(t *testing.T) {
	c, _, _ := setup(t)
	fill(c, 5, 8)

	cat := testCatalog()
	cat.Bookings = append(cat.Bookings, booking.Booking{ID: 101, UnitID: 10, ClientID: 1, CheckIn: day(6), CheckOut: day(7), GuestsCount: 1, Status: booking.StatusPending})
	c.SetCatalog(cat)

	form := c.Form()
	assert.Equal(t, booking.StepCheckOutChosen, form.Step)
	assert.Zero(t, form.PropertyID)
	assert.Zero(t, form.UnitID)
	assert.Empty(t, form.Properties)
}

func TestSubmit(t *testing.T) {
	t.Run("creates and resets the form", func(t *testing.T) {
		c, _, submitter := setup(t)
		c.Start(booking.OriginStorefront)
		fill(c, 5, 8)

		saved, err := c.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint(201), saved.ID)
		require.Len(t, submitter.created, 1)
		assert.Equal(t, booking.StatusPending, submitter.created[0].Status)

		_, ok := c.Catalog().Booking(201)
		assert.True(t, ok, "the saved booking blocks its dates right away")
		assert.Equal(t, booking.StepStart, c.Form().Step)
		assert.Equal(t, booking.OriginStorefront, c.Form().Origin)
	})

	t.Run("incomplete form is not sent", func(t *testing.T) {
		c, _, submitter := setup(t)
		c.Dispatch(booking.ChooseCheckIn{Date: day(5)})
		_, err := c.Submit(context.Background())
		assert.ErrorIs(t, err, booking.ErrIncomplete)
		assert.Empty(t, submitter.created)
	})

	t.Run("server conflict is returned unchanged", func(t *testing.T) {
		c, _, submitter := setup(t)
		fill(c, 5, 8)
		conflict := fmt.Errorf("booking API returned 409: %w", booking.ErrServerConflict)
		submitter.err = conflict

		_, err := c.Submit(context.Background())
		assert.Same(t, conflict, err)
		assert.Equal(t, booking.StepComplete, c.Form().Step, "the form is kept for another try")
	})

	t.Run("edit updates the booking", func(t *testing.T) {
		c, _, submitter := setup(t)
		form, err := c.Edit(100)
		require.NoError(t, err)
		assert.Equal(t, booking.StepComplete, form.Step)

		c.Dispatch(booking.SelectStatus{Status: booking.StatusCancelled})
		saved, err := c.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint(100), saved.ID)
		require.Contains(t, submitter.updated, uint(100))
		assert.Equal(t, booking.StatusCancelled, submitter.updated[100].Status)

		b, _ := c.Catalog().Booking(100)
		assert.Equal(t, booking.StatusCancelled, b.Status)
		assert.Len(t, c.Catalog().Bookings, 1)
	})

	t.Run("keeps a refresh that landed during submission", func(t *testing.T) {
		source := &fakeSource{catalog: testCatalog()}
		submitter := &refreshingSubmitter{fakeSubmitter: fakeSubmitter{nextID: 200}}
		c := New(source, submitter, nil, logging.Discard())
		require.NoError(t, c.Refresh(context.Background()))
		submitter.during = func() {
			newer := testCatalog()
			newer.Units = append(newer.Units, booking.Unit{ID: 11, PropertyID: 1, Name: "B", PricePerNight: 9000, Capacity: 2, MaxCapacity: 2, IsActive: true})
			c.Snapshots().Swap(newer)
		}
		fill(c, 5, 8)

		saved, err := c.Submit(context.Background())
		require.NoError(t, err)
		_, ok := c.Catalog().Booking(saved.ID)
		assert.True(t, ok)
		_, ok = c.Catalog().Unit(11)
		assert.True(t, ok, "the refreshed units survive the merge")
	})

	t.Run("unknown booking cannot be edited", func(t *testing.T) {
		c, _, _ := setup(t)
		_, err := c.Edit(999)
		assert.Error(t, err)
	})
}

func TestApplyPromoCode(t *testing.T) {
	c, _, _ := setup(t)
	fill(c, 5, 8)

	promo, err := c.ApplyPromoCode(context.Background(), "WINTER20")
	require.NoError(t, err)
	assert.Equal(t, uint(6), promo.ID)
	_, ok := c.Catalog().PromoCode(6)
	assert.True(t, ok)
	require.NotNil(t, c.Form().PromoCodeID)
	assert.Equal(t, booking.Money(28800), c.Quote().Total)

	_, err = c.ApplyPromoCode(context.Background(), "NOPE")
	assert.Error(t, err)

	offline := New(&fakeSource{}, &fakeSubmitter{}, nil, logging.Discard())
	_, err = offline.ApplyPromoCode(context.Background(), "WINTER20")
	assert.ErrorIs(t, err, ErrNoPromoValidator)
}

func TestConcurrentDispatch(t *testing.T) {
	c, _, _ := setup(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Dispatch(booking.ChooseCheckIn{Date: day(1 + i%10)})
			c.Quote()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, booking.StepCheckInChosen, c.Form().Step)
}

func ptr(id uint) *uint { return &id }
