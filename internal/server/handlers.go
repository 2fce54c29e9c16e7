package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/beesaferoot/rental-booking/booking"
)

type errorMessage struct {
	Error string `json:"error"`
}

func returnJSONError(rw http.ResponseWriter, message string, statusCode int) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(errorMessage{Error: message}); err != nil {
		http.Error(rw, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(rw http.ResponseWriter, statusCode int, v any) {
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) health(rw http.ResponseWriter, r *http.Request) {
	cat, version := s.snapshots.Current()
	s.writeJSON(rw, http.StatusOK, map[string]any{
		"status":           "ok",
		"catalog_version":  version,
		"units":            len(cat.Units),
		"bookings_tracked": len(cat.Bookings),
	})
}

func (s *Server) availableProperties(rw http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		returnJSONError(rw, err.Error(), http.StatusBadRequest)
		return
	}
	cat, _ := s.snapshots.Current()
	properties := cat.AvailableProperties(f)
	if properties == nil {
		properties = []booking.Property{}
	}
	s.writeJSON(rw, http.StatusOK, properties)
}

func (s *Server) availableUnits(rw http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		returnJSONError(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if f.PropertyID == 0 {
		returnJSONError(rw, "property_id is required", http.StatusBadRequest)
		return
	}
	cat, _ := s.snapshots.Current()
	units := cat.AvailableUnits(f)
	if units == nil {
		units = []booking.Unit{}
	}
	s.writeJSON(rw, http.StatusOK, units)
}

func (s *Server) quote(rw http.ResponseWriter, r *http.Request) {
	var p booking.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		returnJSONError(rw, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if !p.Range().Valid() {
		returnJSONError(rw, booking.ErrInvalidRange.Error(), http.StatusBadRequest)
		return
	}
	cat, _ := s.snapshots.Current()
	if _, ok := cat.Unit(p.UnitID); !ok {
		returnJSONError(rw, fmt.Sprintf("unit %d not found", p.UnitID), http.StatusNotFound)
		return
	}
	s.writeJSON(rw, http.StatusOK, booking.QuoteFor(cat, p))
}

type checkResult struct {
	OK     bool           `json:"ok"`
	Reason string         `json:"reason,omitempty"`
	Error  string         `json:"error,omitempty"`
	Quote  *booking.Quote `json:"quote,omitempty"`
}

// check answers 200 whether or not the booking passes; a failed check is a result, not an error.
func (s *Server) check(rw http.ResponseWriter, r *http.Request) {
	var p booking.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		returnJSONError(rw, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	exclude, err := uintParam(r, "exclude_booking_id")
	if err != nil {
		returnJSONError(rw, err.Error(), http.StatusBadRequest)
		return
	}

	cat, _ := s.snapshots.Current()
	if err := booking.Check(cat, p, exclude); err != nil {
		s.writeJSON(rw, http.StatusOK, checkResult{Reason: reason(err), Error: err.Error()})
		return
	}
	if err := p.Validate(); err != nil {
		s.writeJSON(rw, http.StatusOK, checkResult{Reason: "invalid_payload", Error: err.Error()})
		return
	}
	q := booking.QuoteFor(cat, p)
	s.writeJSON(rw, http.StatusOK, checkResult{OK: true, Quote: &q})
}

var reasons = []struct {
	err  error
	code string
}{
	{booking.ErrInvalidRange, "invalid_range"},
	{booking.ErrCapacityExceeded, "capacity_exceeded"},
	{booking.ErrNoAvailability, "no_availability"},
	{booking.ErrUnknownUnit, "unknown_unit"},
	{booking.ErrUnknownClient, "unknown_client"},
	{booking.ErrUnknownService, "unknown_service"},
	{booking.ErrUnknownPromo, "unknown_promo_code"},
	{booking.ErrInvalidDiscount, "invalid_discount"},
}

func reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return "invalid"
}

func parseFilter(r *http.Request) (booking.Filter, error) {
	q := r.URL.Query()
	if q.Get("check_in") == "" || q.Get("check_out") == "" {
		return booking.Filter{}, errors.New("check_in and check_out are required")
	}
	rng, err := booking.ParseDateRange(q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		return booking.Filter{}, err
	}
	f := booking.Filter{Range: rng}

	if v := q.Get("guests"); v != "" {
		if f.Guests, err = strconv.Atoi(v); err != nil || f.Guests < 0 {
			return booking.Filter{}, fmt.Errorf("invalid guests %q", v)
		}
	}
	if f.PropertyID, err = uintParam(r, "property_id"); err != nil {
		return booking.Filter{}, err
	}
	if f.ExcludeBookingID, err = uintParam(r, "exclude_booking_id"); err != nil {
		return booking.Filter{}, err
	}
	return f, nil
}

func uintParam(r *http.Request, name string) (uint, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return uint(n), nil
}
