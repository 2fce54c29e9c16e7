package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/api"
	"github.com/beesaferoot/rental-booking/internal/config"
	"github.com/beesaferoot/rental-booking/internal/logging"
	"github.com/beesaferoot/rental-booking/internal/store"
)

// app carries what every command needs: configuration, a logger and lazily opened backends.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	closers []io.Closer
	store   *store.Store
	offline bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	log, closer, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	offline, _ := cmd.Flags().GetBool("offline")
	return &app{cfg: cfg, log: log, closers: []io.Closer{closer}, offline: offline}, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close resource")
		}
	}
}

// openStore opens the local catalog cache without touching its schema.
func (a *app) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, s)
	return s, nil
}

// migratedStore opens the local catalog cache and brings its schema up to date.
func (a *app) migratedStore(ctx context.Context) (*store.Store, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog cache: %w", err)
	}
	return s, nil
}

// remote returns the API client, or nil when no API is configured or --offline is set.
func (a *app) remote() *api.Client {
	if a.offline || !a.cfg.RemoteEnabled() {
		return nil
	}
	return api.FromConfig(a.cfg, a.log)
}

// source picks where catalog snapshots come from: the API backed by the local cache, or the
// cache alone.
func (a *app) source(ctx context.Context) (catalogSource, error) {
	cache, err := a.migratedStore(ctx)
	if err != nil {
		return nil, err
	}
	if client := a.remote(); client != nil {
		return &cachedSource{remote: client, cache: cache, log: a.log.WithField("component", "source")}, nil
	}
	return cache, nil
}

func (a *app) catalog(ctx context.Context) (booking.Catalog, error) {
	src, err := a.source(ctx)
	if err != nil {
		return booking.Catalog{}, err
	}
	return src.Load(ctx)
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	return booking.ParseDate(v)
}

func rangeFlags(cmd *cobra.Command) (booking.DateRange, error) {
	in, err := dateFlag(cmd, "check-in")
	if err != nil {
		return booking.DateRange{}, err
	}
	out, err := dateFlag(cmd, "check-out")
	if err != nil {
		return booking.DateRange{}, err
	}
	return booking.NewDateRange(in, out), nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("check-in", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().String("check-out", "", "Check-out date (YYYY-MM-DD)")
}

// promoByCode resolves a promo code, asking the API when one is configured.
func (a *app) promoByCode(ctx context.Context, cat booking.Catalog, code string) (booking.PromoCode, error) {
	if client := a.remote(); client != nil {
		return client.ValidatePromoCode(ctx, code)
	}
	promo, ok := cat.PromoCodeByCode(code)
	if !ok {
		return booking.PromoCode{}, fmt.Errorf("%w: %s", booking.ErrUnknownPromo, code)
	}
	if err := promo.Validate(); err != nil {
		return booking.PromoCode{}, err
	}
	return promo, nil
}
