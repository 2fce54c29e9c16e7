package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/controller"
)

func BookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create or edit a booking",
		Long:  `Fills in the booking form from flags, one step at a time, and submits it to the booking API. With --edit only the flags given are changed; changing the dates re-checks everything after them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			editID, _ := cmd.Flags().GetUint("edit")
			storefront, _ := cmd.Flags().GetBool("storefront")
			if editID != 0 && storefront {
				return errors.New("--edit and --storefront cannot be combined")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.source(ctx)
			if err != nil {
				return err
			}
			var (
				submitter controller.Submitter
				promos    controller.PromoValidator
			)
			if client := a.remote(); client != nil {
				submitter, promos = client, client
			} else if !dryRun {
				return errors.New("API_BASE_URL is not set, use --dry-run to check a booking offline")
			}

			ctrl := controller.New(src, submitter, promos, a.log)
			if err := ctrl.Refresh(ctx); err != nil {
				return err
			}

			if editID != 0 {
				if _, err := ctrl.Edit(editID); err != nil {
					return err
				}
			} else if storefront {
				ctrl.Start(booking.OriginStorefront)
			}

			if err := fillForm(cmd, ctrl, editID != 0); err != nil {
				return err
			}
			if code, _ := cmd.Flags().GetString("promo"); code != "" {
				if err := applyPromo(cmd, a, ctrl, code); err != nil {
					return err
				}
			}

			form := ctrl.Form()
			payload, err := form.Payload()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printQuote(out, ctrl.Quote())
			if err := printPayload(out, payload); err != nil {
				return err
			}

			if dryRun {
				if err := booking.Check(ctrl.Catalog(), payload, form.EditingID); err != nil {
					return err
				}
				fmt.Fprintln(out, "Dry run: booking not submitted")
				return nil
			}

			saved, err := ctrl.Submit(ctx)
			if errors.Is(err, booking.ErrServerConflict) {
				return fmt.Errorf("the booking API rejected the booking, the unit was taken meanwhile: %w", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Booking %d saved (%s, %s)\n", saved.ID, saved.Status, saved.Range())
			return nil
		},
	}

	addPayloadFlags(cmd)
	cmd.Flags().Uint("property", 0, "Property ID (defaults to the unit's property)")
	cmd.Flags().Bool("dry-run", false, "Check and price the booking without submitting it")
	cmd.Flags().Uint("edit", 0, "ID of an existing booking to change")
	cmd.Flags().Bool("storefront", false, "Book as a storefront guest; the status is always pending")
	return cmd
}

type formStep struct {
	flags []string
	event func() booking.Event
	want  booking.Step
	fail  func() error
}

// fillForm dispatches the form events for the flags given. On an edit, replay starts at the first
// changed field since every later field is reset by it.
func fillForm(cmd *cobra.Command, ctrl *controller.Controller, editing bool) error {
	flags := cmd.Flags()
	current := ctrl.Form()

	checkIn, checkOut := current.CheckIn, current.CheckOut
	if !editing || flags.Changed("check-in") || flags.Changed("check-out") {
		r, err := rangeFlagsOr(cmd, current.Range())
		if err != nil {
			return err
		}
		checkIn, checkOut = r.CheckIn, r.CheckOut
	}
	unitID := current.UnitID
	if !editing || flags.Changed("unit") {
		unitID, _ = flags.GetUint("unit")
	}
	propertyID := current.PropertyID
	if flags.Changed("property") {
		propertyID, _ = flags.GetUint("property")
	} else if u, ok := ctrl.Catalog().Unit(unitID); ok {
		propertyID = u.PropertyID
	}
	guests := current.Guests
	if !editing || flags.Changed("guests") {
		guests, _ = flags.GetInt("guests")
	}
	clientID := current.ClientID
	if !editing || flags.Changed("client") {
		clientID, _ = flags.GetUint("client")
	}

	steps := []formStep{
		{[]string{"check-in", "check-out"}, func() booking.Event { return booking.ChooseCheckIn{Date: checkIn} }, booking.StepCheckInChosen,
			func() error { return errors.New("--check-in is required") }},
		{[]string{"check-out"}, func() booking.Event { return booking.ChooseCheckOut{Date: checkOut} }, booking.StepCheckOutChosen,
			func() error {
				return fmt.Errorf("%w: %s", booking.ErrInvalidRange, booking.NewDateRange(checkIn, checkOut))
			}},
		{[]string{"property", "unit"}, func() booking.Event { return booking.ChooseProperty{PropertyID: propertyID} }, booking.StepPropertyChosen,
			func() error {
				return fmt.Errorf("%w: property %d has no free unit for %s", booking.ErrNoAvailability, propertyID, booking.NewDateRange(checkIn, checkOut))
			}},
		{[]string{"unit"}, func() booking.Event { return booking.ChooseUnit{UnitID: unitID} }, booking.StepUnitChosen,
			func() error {
				return fmt.Errorf("%w: unit %d is not available for %s", booking.ErrNoAvailability, unitID, booking.NewDateRange(checkIn, checkOut))
			}},
		{[]string{"guests"}, func() booking.Event { return booking.ChooseGuests{Count: guests} }, booking.StepGuestsChosen,
			func() error { return fmt.Errorf("%w: %d guests in unit %d", booking.ErrCapacityExceeded, guests, unitID) }},
		{[]string{"client"}, func() booking.Event { return booking.ChooseClient{ClientID: clientID} }, booking.StepComplete,
			func() error { return fmt.Errorf("%w: %d", booking.ErrUnknownClient, clientID) }},
	}

	start := 0
	if editing {
		start = len(steps)
		for i, s := range steps {
			if anyChanged(cmd, s.flags...) {
				start = i
				break
			}
		}
	}
	for _, s := range steps[start:] {
		if form := ctrl.Dispatch(s.event()); form.Step < s.want {
			return s.fail()
		}
	}

	if !editing || flags.Changed("services") {
		services, _ := flags.GetUintSlice("services")
		ctrl.Dispatch(booking.SelectServices{ServiceIDs: services})
	}
	if !editing || flags.Changed("status") {
		status, _ := flags.GetString("status")
		if !booking.Status(status).Valid() {
			return fmt.Errorf("invalid status %q", status)
		}
		ctrl.Dispatch(booking.SelectStatus{Status: booking.Status(status)})
	}
	return nil
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func rangeFlagsOr(cmd *cobra.Command, fallback booking.DateRange) (booking.DateRange, error) {
	r := fallback
	if v, _ := cmd.Flags().GetString("check-in"); v != "" {
		in, err := booking.ParseDate(v)
		if err != nil {
			return booking.DateRange{}, err
		}
		r.CheckIn = in
	}
	if v, _ := cmd.Flags().GetString("check-out"); v != "" {
		out, err := booking.ParseDate(v)
		if err != nil {
			return booking.DateRange{}, err
		}
		r.CheckOut = out
	}
	return booking.NewDateRange(r.CheckIn, r.CheckOut), nil
}

func applyPromo(cmd *cobra.Command, a *app, ctrl *controller.Controller, code string) error {
	if a.remote() != nil {
		_, err := ctrl.ApplyPromoCode(cmd.Context(), code)
		return err
	}
	promo, err := a.promoByCode(cmd.Context(), ctrl.Catalog(), code)
	if err != nil {
		return err
	}
	ctrl.Dispatch(booking.SelectPromoCode{PromoCodeID: &promo.ID})
	return nil
}

func printPayload(w io.Writer, p booking.Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}
