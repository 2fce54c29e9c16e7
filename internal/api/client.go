// Package api is the client of the remote rental REST API, the system of record for the catalog
// and for bookings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/config"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("booking API is not available")

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("booking API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("booking API returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps a 409 to booking.ErrServerConflict.
func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusConflict {
		return booking.ErrServerConflict
	}
	return nil
}

func (e *Error) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the remote API. It retries transient failures with exponential backoff, and a
// circuit breaker stops calling a server that keeps failing.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the wait before retry number attempt (starting at 1).
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = f }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL, token string, log logrus.FieldLogger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * 200 * time.Millisecond
		},
		log: log.WithField("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "booking-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors mean the server is healthy.
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				return !apiErr.retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
		},
	})
	return c
}

// FromConfig builds a client from the application configuration.
func FromConfig(cfg *config.Config, log logrus.FieldLogger) *Client {
	return New(cfg.APIBaseURL, cfg.APIToken, log,
		WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		WithMaxRetries(cfg.APIMaxRetries),
	)
}

// Load fetches a full catalog snapshot. The collections are fetched concurrently.
func (c *Client) Load(ctx context.Context) (booking.Catalog, error) {
	var cat booking.Catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/properties", nil, &cat.Properties) })
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/units", nil, &cat.Units) })
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/bookings", nil, &cat.Bookings) })
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/clients", nil, &cat.Clients) })
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/promo-codes", nil, &cat.PromoCodes) })
	g.Go(func() error { return c.do(gctx, http.MethodGet, "/services", nil, &cat.Services) })
	if err := g.Wait(); err != nil {
		return booking.Catalog{}, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return cat, nil
}

// CreateBooking submits a new booking. A 409 answer unwraps to booking.ErrServerConflict.
func (c *Client) CreateBooking(ctx context.Context, p booking.Payload) (booking.Booking, error) {
	var created booking.Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", p, &created); err != nil {
		return booking.Booking{}, err
	}
	return created, nil
}

// UpdateBooking submits an edit of booking id.
func (c *Client) UpdateBooking(ctx context.Context, id uint, p booking.Payload) (booking.Booking, error) {
	var updated booking.Booking
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/bookings/%d", id), p, &updated); err != nil {
		return booking.Booking{}, err
	}
	return updated, nil
}

// ValidatePromoCode asks the API whether code may be used and returns it.
func (c *Client) ValidatePromoCode(ctx context.Context, code string) (booking.PromoCode, error) {
	var promo booking.PromoCode
	path := "/promo-codes/validate?" + url.Values{"code": {code}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &promo); err != nil {
		return booking.PromoCode{}, err
	}
	if err := promo.Validate(); err != nil {
		return booking.PromoCode{}, err
	}
	return promo, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	// One key for every attempt so a retried write is applied once.
	var idempotencyKey string
	if method != http.MethodGet {
		idempotencyKey = uuid.NewString()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.retry(ctx, func() error {
			return c.send(ctx, method, path, body, idempotencyKey, out)
		})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.log.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).WithError(err).Debug("Retrying request")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = op(); err == nil {
			return nil
		}
		var apiErr *Error
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
		"elapsed":    time.Since(start),
	}).Debug("API request")

	if resp.StatusCode >= 400 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"error": ...} or {"message": ...} from an error body, or returns the raw
// text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
