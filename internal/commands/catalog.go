package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/rental-booking/booking"
)

func ImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the cached catalog with a JSON file",
		Long:  `Reads a catalog JSON document with properties, units, bookings, clients, promo_codes and services arrays and replaces the local catalog cache with it. Use "-" to read from stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open catalog file: %w", err)
				}
				defer f.Close()
				r = f
			}

			var cat booking.Catalog
			if err := json.NewDecoder(r).Decode(&cat); err != nil {
				return fmt.Errorf("failed to parse catalog file: %w", err)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.migratedStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.ReplaceCatalog(cmd.Context(), cat); err != nil {
				return err
			}
			printCatalogSummary(cmd.OutOrStdout(), "Imported", cat)
			return nil
		},
	}
}

func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the catalog from the booking API into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			client := a.remote()
			if client == nil {
				return errors.New("API_BASE_URL is not set")
			}
			s, err := a.migratedStore(cmd.Context())
			if err != nil {
				return err
			}

			cat, err := client.Load(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.ReplaceCatalog(cmd.Context(), cat); err != nil {
				return err
			}
			printCatalogSummary(cmd.OutOrStdout(), "Synced", cat)
			return nil
		},
	}
}

func printCatalogSummary(w io.Writer, verb string, cat booking.Catalog) {
	fmt.Fprintf(w, "%s %d properties, %d units, %d bookings, %d clients, %d promo codes, %d services\n",
		verb, len(cat.Properties), len(cat.Units), len(cat.Bookings), len(cat.Clients), len(cat.PromoCodes), len(cat.Services))
}

func AvailabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "List properties and units free for a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rangeFlags(cmd)
			if err != nil {
				return err
			}
			guests, _ := cmd.Flags().GetInt("guests")
			propertyID, _ := cmd.Flags().GetUint("property")
			exclude, _ := cmd.Flags().GetUint("exclude")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !r.Valid() {
				return fmt.Errorf("%w: %s", booking.ErrInvalidRange, r)
			}
			f := booking.Filter{Range: r, Guests: guests, ExcludeBookingID: exclude}

			var properties []booking.Property
			for _, p := range cat.AvailableProperties(f) {
				if propertyID == 0 || p.ID == propertyID {
					properties = append(properties, p)
				}
			}
			if len(properties) == 0 {
				fmt.Fprintf(out, "Nothing available for %s\n", r)
				return nil
			}

			fmt.Fprintf(out, "%-8s  %-28s  %10s  %-8s\n", "ID", "Name", "Per Night", "Guests")
			for _, p := range properties {
				f.PropertyID = p.ID
				units := cat.AvailableUnits(f)
				if len(units) == 0 {
					continue
				}
				fmt.Fprintf(out, "%-8d  %-28s\n", p.ID, p.Name)
				for _, u := range units {
					fmt.Fprintf(out, "%-8d  %-28s  %10s  %d-%d\n", u.ID, "  "+u.Name, u.PricePerNight, u.Capacity, u.MaxCapacity)
				}
			}
			return nil
		},
	}

	addRangeFlags(cmd)
	cmd.Flags().Int("guests", 0, "Number of guests (0 skips the capacity check)")
	cmd.Flags().Uint("property", 0, "Only show units of this property")
	cmd.Flags().Uint("exclude", 0, "Booking ID to ignore, when moving an existing booking")
	return cmd
}

func QuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a stay in a unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rangeFlags(cmd)
			if err != nil {
				return err
			}
			unitID, _ := cmd.Flags().GetUint("unit")
			guests, _ := cmd.Flags().GetInt("guests")
			code, _ := cmd.Flags().GetString("promo")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			unit, ok := cat.Unit(unitID)
			if !ok {
				return fmt.Errorf("%w: %d", booking.ErrUnknownUnit, unitID)
			}
			if !r.Valid() {
				return fmt.Errorf("%w: %s", booking.ErrInvalidRange, r)
			}

			var promo *booking.PromoCode
			if code != "" {
				p, err := a.promoByCode(cmd.Context(), cat, code)
				if err != nil {
					return err
				}
				promo = &p
			}

			out := cmd.OutOrStdout()
			if !booking.IsCapacityValid(unit, guests) {
				fmt.Fprintf(out, "Warning: %d guests exceeds the maximum of %d for unit %d\n", guests, unit.MaxCapacity, unit.ID)
			}
			printQuote(out, booking.ComputePrice(unit, r, guests, promo))
			return nil
		},
	}

	addRangeFlags(cmd)
	cmd.Flags().Uint("unit", 0, "Unit ID")
	cmd.Flags().Int("guests", 1, "Number of guests")
	cmd.Flags().String("promo", "", "Promo code")
	return cmd
}

func printQuote(w io.Writer, q booking.Quote) {
	fmt.Fprintf(w, "%-22s  %10d\n", "Nights", q.Nights)
	fmt.Fprintf(w, "%-22s  %10s\n", "Base price", q.BasePrice)
	if q.ExtraGuests > 0 {
		fmt.Fprintf(w, "%-22s  %10s\n", fmt.Sprintf("Extra guests (%d)", q.ExtraGuests), q.ExtraGuestSurcharge)
	}
	fmt.Fprintf(w, "%-22s  %10s\n", "Subtotal", q.Subtotal)
	if q.PromoApplied {
		fmt.Fprintf(w, "%-22s  %10s\n", "Discount", -q.Discount)
	}
	fmt.Fprintf(w, "%-22s  %10s\n", "Total", q.Total)
}

func CheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the pre-submission checks for a booking",
		Long:  `Checks dates, capacity, references and availability of a booking against the current catalog. Passing the checks does not guarantee the booking API will accept it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, exclude, err := payloadFlags(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.catalog(cmd.Context())
			if err != nil {
				return err
			}
			if code, _ := cmd.Flags().GetString("promo"); code != "" {
				promo, ok := cat.PromoCodeByCode(code)
				if !ok {
					return fmt.Errorf("%w: %s", booking.ErrUnknownPromo, code)
				}
				p.PromoCodeID = &promo.ID
			}

			if err := booking.Check(cat, p, exclude); err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "OK")
			printQuote(out, booking.QuoteFor(cat, p))
			return nil
		},
	}

	addPayloadFlags(cmd)
	cmd.Flags().Uint("exclude", 0, "Booking ID being edited")
	return cmd
}

func addPayloadFlags(cmd *cobra.Command) {
	addRangeFlags(cmd)
	cmd.Flags().Uint("unit", 0, "Unit ID")
	cmd.Flags().Uint("client", 0, "Client ID")
	cmd.Flags().Int("guests", 1, "Number of guests")
	cmd.Flags().UintSlice("services", nil, "Service IDs")
	cmd.Flags().String("promo", "", "Promo code")
	cmd.Flags().String("status", string(booking.StatusPending), "Booking status (pending, confirmed, cancelled)")
}

func payloadFlags(cmd *cobra.Command) (booking.Payload, uint, error) {
	r, err := rangeFlags(cmd)
	if err != nil {
		return booking.Payload{}, 0, err
	}
	var p booking.Payload
	p.CheckIn, p.CheckOut = r.CheckIn, r.CheckOut
	p.UnitID, _ = cmd.Flags().GetUint("unit")
	p.ClientID, _ = cmd.Flags().GetUint("client")
	p.GuestsCount, _ = cmd.Flags().GetInt("guests")
	p.ServiceIDs, _ = cmd.Flags().GetUintSlice("services")
	status, _ := cmd.Flags().GetString("status")
	p.Status = booking.Status(status)
	exclude, _ := cmd.Flags().GetUint("exclude")
	return p, exclude, nil
}
