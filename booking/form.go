package booking

import (
	"fmt"
	"time"
)

// Step is the furthest point the booking form has reached. Each step unlocks the next field.
type Step int

const (
	StepStart Step = iota
	StepCheckInChosen
	StepCheckOutChosen
	StepPropertyChosen
	StepUnitChosen
	StepGuestsChosen
	StepClientChosen
	StepComplete
)

var stepNames = [...]string{
	StepStart:          "start",
	StepCheckInChosen:  "check-in chosen",
	StepCheckOutChosen: "check-out chosen",
	StepPropertyChosen: "property chosen",
	StepUnitChosen:     "unit chosen",
	StepGuestsChosen:   "guests chosen",
	StepClientChosen:   "client chosen",
	StepComplete:       "complete",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Field is an input of the booking form.
type Field int

const (
	FieldCheckIn Field = iota
	FieldCheckOut
	FieldProperty
	FieldUnit
	FieldGuests
	FieldClient
	FieldSubmit
)

// Origin tells where a booking is entered.
type Origin int

const (
	// OriginDashboard is the owner dashboard; any status may be chosen.
	OriginDashboard Origin = iota
	// OriginStorefront is the public storefront; bookings always start pending.
	OriginStorefront
)

// Form is the state of a booking form. It is a value: Reduce returns a new Form and never
// modifies the one it was given.
type Form struct {
	Step      Step
	Origin    Origin
	EditingID uint

	CheckIn     time.Time
	CheckOut    time.Time
	PropertyID  uint
	UnitID      uint
	Guests      int
	ClientID    uint
	ServiceIDs  []uint
	PromoCodeID *uint
	Status      Status

	// Derived views, recomputed from the catalog whenever an upstream field changes.
	Properties []Property
	Units      []Unit
	CapacityOK bool

	// The edited booking's own unit and property stay selectable until the dates change.
	pinnedUnit     *Unit
	pinnedProperty *Property
}

// NewForm starts an empty dashboard form.
func NewForm() Form {
	return Form{Origin: OriginDashboard, Status: StatusPending}
}

// NewStorefrontForm starts an empty storefront form. Its status is fixed to pending.
func NewStorefrontForm() Form {
	return Form{Origin: OriginStorefront, Status: StatusPending}
}

// EditForm opens an existing booking. The form starts complete with every field filled in, and
// the booking's own unit and property are offered even if they would be filtered out now.
// Callers that fetched a catalog without the booking's unit should Augment it first.
func EditForm(c Catalog, b Booking) Form {
	f := Form{
		Step:        StepComplete,
		Origin:      OriginDashboard,
		EditingID:   b.ID,
		CheckIn:     Day(b.CheckIn),
		CheckOut:    Day(b.CheckOut),
		UnitID:      b.UnitID,
		Guests:      b.GuestsCount,
		ClientID:    b.ClientID,
		ServiceIDs:  append([]uint(nil), b.ServiceIDs...),
		PromoCodeID: copyID(b.PromoCodeID),
		Status:      b.Status,
	}
	if f.Status == "" {
		f.Status = StatusPending
	}
	if u, ok := c.Unit(b.UnitID); ok {
		f.PropertyID = u.PropertyID
		f.pinnedUnit = &u
		f.CapacityOK = IsCapacityValid(u, b.GuestsCount)
		if p, ok := c.Property(u.PropertyID); ok {
			f.pinnedProperty = &p
		}
	}
	f.Properties = f.propertyView(c)
	f.Units = f.unitView(c)
	return f
}

// Event is a user input to the booking form.
type Event interface {
	event()
}

type (
	ChooseCheckIn   struct{ Date time.Time }
	ChooseCheckOut  struct{ Date time.Time }
	ChooseProperty  struct{ PropertyID uint }
	ChooseUnit      struct{ UnitID uint }
	ChooseGuests    struct{ Count int }
	ChooseClient    struct{ ClientID uint }
	SelectServices  struct{ ServiceIDs []uint }
	SelectPromoCode struct{ PromoCodeID *uint }
	SelectStatus    struct{ Status Status }
)

func (ChooseCheckIn) event()   {}
func (ChooseCheckOut) event()  {}
func (ChooseProperty) event()  {}
func (ChooseUnit) event()      {}
func (ChooseGuests) event()    {}
func (ChooseClient) event()    {}
func (SelectServices) event()  {}
func (SelectPromoCode) event() {}
func (SelectStatus) event()    {}

// Reduce applies e to f against the catalog snapshot c. An event that is not allowed at the
// current step, or that names something the form does not offer, leaves the form unchanged.
// Changing a field resets every field after it.
func Reduce(f Form, c Catalog, e Event) Form {
	switch e := e.(type) {
	case ChooseCheckIn:
		if e.Date.IsZero() {
			return f
		}
		f = f.truncate(StepStart)
		f.CheckIn = Day(e.Date)
		f.Step = StepCheckInChosen
		return f

	case ChooseCheckOut:
		if f.Step < StepCheckInChosen || e.Date.IsZero() || !Day(e.Date).After(f.CheckIn) {
			return f
		}
		f = f.truncate(StepCheckInChosen)
		f.CheckOut = Day(e.Date)
		f.Step = StepCheckOutChosen
		f.Properties = f.propertyView(c)
		return f

	case ChooseProperty:
		if f.Step < StepCheckOutChosen || !hasProperty(f.Properties, e.PropertyID) {
			return f
		}
		f = f.truncate(StepCheckOutChosen)
		f.PropertyID = e.PropertyID
		f.Step = StepPropertyChosen
		f.Units = f.unitView(c)
		return f

	case ChooseUnit:
		if f.Step < StepPropertyChosen {
			return f
		}
		if _, ok := findUnit(f.Units, e.UnitID); !ok {
			return f
		}
		f = f.truncate(StepPropertyChosen)
		f.UnitID = e.UnitID
		f.Step = StepUnitChosen
		return f

	case ChooseGuests:
		if f.Step < StepUnitChosen {
			return f
		}
		unit, ok := findUnit(f.Units, f.UnitID)
		if !ok {
			return f
		}
		f = f.truncate(StepUnitChosen)
		f.Guests = e.Count
		f.CapacityOK = IsCapacityValid(unit, e.Count)
		if f.CapacityOK {
			f.Step = StepGuestsChosen
		}
		return f

	case ChooseClient:
		if f.Step < StepGuestsChosen {
			return f
		}
		if _, ok := c.Client(e.ClientID); !ok {
			return f
		}
		f.ClientID = e.ClientID
		f.Step = StepComplete
		return f

	case SelectServices:
		f.ServiceIDs = append([]uint(nil), e.ServiceIDs...)
		return f

	case SelectPromoCode:
		f.PromoCodeID = copyID(e.PromoCodeID)
		return f

	case SelectStatus:
		if f.Origin == OriginStorefront || !e.Status.Valid() {
			return f
		}
		f.Status = e.Status
		return f
	}
	return f
}

// Refresh recomputes the derived views of f against a newer catalog snapshot. When a selected
// property, unit or client is no longer offered, that field and everything after it is reset.
func Refresh(f Form, c Catalog) Form {
	if f.Step < StepCheckOutChosen {
		return f
	}
	f.Properties = f.propertyView(c)
	if f.PropertyID == 0 {
		return f
	}
	if !hasProperty(f.Properties, f.PropertyID) {
		return f.truncate(StepCheckOutChosen)
	}

	f.Units = f.unitView(c)
	if f.UnitID == 0 {
		return f
	}
	unit, ok := findUnit(f.Units, f.UnitID)
	if !ok {
		return f.truncate(StepPropertyChosen)
	}

	if f.Guests == 0 {
		return f
	}
	guests := f.Guests
	if !IsCapacityValid(unit, guests) {
		f = f.truncate(StepUnitChosen)
		f.Guests = guests
		return f
	}
	f.CapacityOK = true
	if f.Step < StepGuestsChosen {
		f.Step = StepGuestsChosen
	}

	if f.ClientID != 0 {
		if _, ok := c.Client(f.ClientID); !ok {
			return f.truncate(StepGuestsChosen)
		}
	}
	return f
}

// Enabled reports whether a field is unlocked at the current step.
func (f Form) Enabled(field Field) bool {
	switch field {
	case FieldCheckIn:
		return true
	case FieldCheckOut:
		return f.Step >= StepCheckInChosen
	case FieldProperty:
		return f.Step >= StepCheckOutChosen
	case FieldUnit:
		return f.Step >= StepPropertyChosen
	case FieldGuests:
		return f.Step >= StepUnitChosen
	case FieldClient:
		return f.Step >= StepGuestsChosen
	case FieldSubmit:
		return f.Step == StepComplete
	}
	return false
}

// Complete reports whether the form can be submitted.
func (f Form) Complete() bool {
	return f.Step == StepComplete
}

// Range returns the chosen stay, which may be incomplete.
func (f Form) Range() DateRange {
	return DateRange{CheckIn: f.CheckIn, CheckOut: f.CheckOut}
}

// Payload builds the submission payload of a complete form.
func (f Form) Payload() (Payload, error) {
	if !f.Complete() {
		return Payload{}, fmt.Errorf("%w: at %s", ErrIncomplete, f.Step)
	}
	status := f.Status
	if status == "" || f.Origin == OriginStorefront {
		status = StatusPending
	}
	return Payload{
		UnitID:      f.UnitID,
		ClientID:    f.ClientID,
		CheckIn:     f.CheckIn,
		CheckOut:    f.CheckOut,
		GuestsCount: f.Guests,
		ServiceIDs:  append([]uint(nil), f.ServiceIDs...),
		PromoCodeID: copyID(f.PromoCodeID),
		Status:      status,
	}, nil
}

// Quote prices the current selection. It is zero until a unit and both dates are chosen.
func (f Form) Quote(c Catalog) Quote {
	if f.UnitID == 0 {
		return Quote{}
	}
	unit, ok := findUnit(f.Units, f.UnitID)
	if !ok {
		if unit, ok = c.Unit(f.UnitID); !ok {
			return Quote{}
		}
	}
	var promo *PromoCode
	if f.PromoCodeID != nil {
		if pc, ok := c.PromoCode(*f.PromoCodeID); ok {
			promo = &pc
		}
	}
	return ComputePrice(unit, f.Range(), f.Guests, promo)
}

// truncate keeps the fields up to and including step s and clears the rest.
func (f Form) truncate(s Step) Form {
	if s < StepCheckInChosen {
		f.CheckIn = time.Time{}
	}
	if s < StepCheckOutChosen {
		f.CheckOut = time.Time{}
		f.Properties = nil
		f.pinnedUnit = nil
		f.pinnedProperty = nil
	}
	if s < StepPropertyChosen {
		f.PropertyID = 0
		f.Units = nil
	}
	if s < StepUnitChosen {
		f.UnitID = 0
	}
	if s < StepGuestsChosen {
		f.Guests = 0
		f.CapacityOK = false
	}
	if s < StepComplete {
		f.ClientID = 0
	}
	f.Step = s
	return f
}

func (f Form) filter() Filter {
	return Filter{Range: f.Range(), ExcludeBookingID: f.EditingID, PropertyID: f.PropertyID}
}

func (f Form) propertyView(c Catalog) []Property {
	flt := f.filter()
	flt.PropertyID = 0
	props := c.AvailableProperties(flt)
	if f.pinnedProperty != nil && !hasProperty(props, f.pinnedProperty.ID) {
		props = append(props, *f.pinnedProperty)
	}
	return props
}

func (f Form) unitView(c Catalog) []Unit {
	if f.PropertyID == 0 {
		return nil
	}
	units := AvailableUnits(c.UnitsOf(f.PropertyID), c.Bookings, f.filter())
	if p := f.pinnedUnit; p != nil && p.PropertyID == f.PropertyID {
		if _, ok := findUnit(units, p.ID); !ok {
			units = append(units, *p)
		}
	}
	return units
}

func hasProperty(props []Property, id uint) bool {
	for _, p := range props {
		if p.ID == id {
			return true
		}
	}
	return false
}

func findUnit(units []Unit, id uint) (Unit, bool) {
	for _, u := range units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
