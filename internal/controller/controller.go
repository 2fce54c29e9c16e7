// Package controller owns the mutable state around the booking engine: the current catalog
// snapshot, the form being filled in, and submission to the API.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/beesaferoot/rental-booking/booking"
)

// CatalogSource supplies catalog snapshots.
type CatalogSource interface {
	Load(ctx context.Context) (booking.Catalog, error)
}

// Submitter persists bookings.
type Submitter interface {
	CreateBooking(ctx context.Context, p booking.Payload) (booking.Booking, error)
	UpdateBooking(ctx context.Context, id uint, p booking.Payload) (booking.Booking, error)
}

// PromoValidator checks a promo code with its issuer.
type PromoValidator interface {
	ValidatePromoCode(ctx context.Context, code string) (booking.PromoCode, error)
}

var ErrNoPromoValidator = errors.New("promo codes cannot be validated without an API")

// Controller serializes form events. Derived views are computed outside the lock and only applied
// if nothing newer landed in the meantime.
type Controller struct {
	snapshots *booking.Snapshots
	source    CatalogSource
	submitter Submitter
	promos    PromoValidator
	log       logrus.FieldLogger

	mu         sync.Mutex
	form       booking.Form
	generation uint64
}

// New returns a controller with an empty catalog and a fresh dashboard form. promos may be nil.
func New(source CatalogSource, submitter Submitter, promos PromoValidator, log logrus.FieldLogger) *Controller {
	return &Controller{
		snapshots: booking.NewSnapshots(booking.Catalog{}),
		source:    source,
		submitter: submitter,
		promos:    promos,
		log:       log.WithField("component", "controller"),
		form:      booking.NewForm(),
	}
}

// Snapshots exposes the catalog holder so other readers share it.
func (c *Controller) Snapshots() *booking.Snapshots {
	return c.snapshots
}

// Catalog returns the current snapshot.
func (c *Controller) Catalog() booking.Catalog {
	cat, _ := c.snapshots.Current()
	return cat
}

// Form returns the current form.
func (c *Controller) Form() booking.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Refresh loads a new snapshot from the source and re-derives the form against it.
func (c *Controller) Refresh(ctx context.Context) error {
	cat, err := c.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}
	c.SetCatalog(cat)
	return nil
}

// SetCatalog swaps in cat and re-derives the form against it.
func (c *Controller) SetCatalog(cat booking.Catalog) {
	c.updateCatalog(func(booking.Catalog) booking.Catalog { return cat })
}

// updateCatalog derives the next snapshot from the current one, so a concurrent refresh is never
// overwritten by an older copy.
func (c *Controller) updateCatalog(fn func(booking.Catalog) booking.Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cat, version := c.snapshots.Update(fn)
	c.form = booking.Refresh(c.form, cat)
	c.generation++
	c.log.WithFields(logrus.Fields{"version": version, "units": len(cat.Units), "bookings": len(cat.Bookings)}).Debug("Catalog swapped")
}

// Start discards the current form and opens an empty one.
func (c *Controller) Start(origin booking.Origin) booking.Form {
	form := booking.NewForm()
	if origin == booking.OriginStorefront {
		form = booking.NewStorefrontForm()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
	c.generation++
	return form
}

// Edit opens an existing booking of the current catalog.
func (c *Controller) Edit(bookingID uint) (booking.Form, error) {
	cat := c.Catalog()
	b, ok := cat.Booking(bookingID)
	if !ok {
		return booking.Form{}, fmt.Errorf("booking %d not found", bookingID)
	}
	form := booking.EditForm(cat, b)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
	c.generation++
	return form, nil
}

// Pending is a derived form not applied yet.
type Pending struct {
	Form       booking.Form
	generation uint64
	version    uint64
}

// Preview computes the result of e without applying it.
func (c *Controller) Preview(e booking.Event) Pending {
	c.mu.Lock()
	form, gen := c.form, c.generation
	c.mu.Unlock()

	cat, version := c.snapshots.Current()
	return Pending{
		Form:       booking.Reduce(form, cat, e),
		generation: gen,
		version:    version,
	}
}

// Commit applies p unless another event or a snapshot swap superseded it.
func (c *Controller) Commit(p Pending) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.generation != c.generation || p.version != c.snapshots.Version() {
		return false
	}
	c.form = p.Form
	c.generation++
	return true
}

// Dispatch applies e to the current form and returns the result.
func (c *Controller) Dispatch(e booking.Event) booking.Form {
	for {
		p := c.Preview(e)
		if c.Commit(p) {
			return p.Form
		}
	}
}

// ApplyPromoCode validates code with the API and selects it. A code the snapshot does not know yet
// is added to it.
func (c *Controller) ApplyPromoCode(ctx context.Context, code string) (booking.PromoCode, error) {
	if c.promos == nil {
		return booking.PromoCode{}, ErrNoPromoValidator
	}
	promo, err := c.promos.ValidatePromoCode(ctx, code)
	if err != nil {
		return booking.PromoCode{}, err
	}

	if _, ok := c.Catalog().PromoCode(promo.ID); !ok {
		c.updateCatalog(func(cat booking.Catalog) booking.Catalog {
			if _, ok := cat.PromoCode(promo.ID); !ok {
				cat.PromoCodes = append(append([]booking.PromoCode(nil), cat.PromoCodes...), promo)
			}
			return cat
		})
	}
	id := promo.ID
	c.Dispatch(booking.SelectPromoCode{PromoCodeID: &id})
	return promo, nil
}

// Quote prices the current form.
func (c *Controller) Quote() booking.Quote {
	return c.Form().Quote(c.Catalog())
}

// Submit runs the advisory checks and sends the form to the API. Submission errors, including
// booking.ErrServerConflict, are returned unchanged. On success the booking joins the snapshot and
// a new form of the same origin is started.
func (c *Controller) Submit(ctx context.Context) (booking.Booking, error) {
	form := c.Form()
	payload, err := form.Payload()
	if err != nil {
		return booking.Booking{}, err
	}
	cat := c.Catalog()
	if err := booking.Check(cat, payload, form.EditingID); err != nil {
		return booking.Booking{}, err
	}

	var saved booking.Booking
	if form.EditingID != 0 {
		saved, err = c.submitter.UpdateBooking(ctx, form.EditingID, payload)
	} else {
		saved, err = c.submitter.CreateBooking(ctx, payload)
	}
	if err != nil {
		c.log.WithError(err).WithField("editing", form.EditingID).Warn("Booking submission failed")
		return booking.Booking{}, err
	}

	c.updateCatalog(func(cat booking.Catalog) booking.Catalog { return withBooking(cat, saved) })
	c.Start(form.Origin)
	c.log.WithFields(logrus.Fields{"booking": saved.ID, "unit": saved.UnitID}).Info("Booking saved")
	return saved, nil
}

func withBooking(cat booking.Catalog, b booking.Booking) booking.Catalog {
	bookings := make([]booking.Booking, 0, len(cat.Bookings)+1)
	replaced := false
	for _, existing := range cat.Bookings {
		if existing.ID == b.ID {
			bookings = append(bookings, b)
			replaced = true
			continue
		}
		bookings = append(bookings, existing)
	}
	if !replaced {
		bookings = append(bookings, b)
	}
	cat.Bookings = bookings
	return cat
}
