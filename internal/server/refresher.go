package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beesaferoot/rental-booking/booking"
)

// CatalogSource supplies catalog snapshots.
type CatalogSource interface {
	Load(ctx context.Context) (booking.Catalog, error)
}

// Refresher periodically swaps a fresh catalog into a snapshot holder.
type Refresher struct {
	source    CatalogSource
	snapshots *booking.Snapshots
	interval  time.Duration
	log       logrus.FieldLogger
}

func NewRefresher(source CatalogSource, snapshots *booking.Snapshots, interval time.Duration, log logrus.FieldLogger) *Refresher {
	return &Refresher{
		source:    source,
		snapshots: snapshots,
		interval:  interval,
		log:       log.WithField("component", "refresher"),
	}
}

// RefreshOnce loads and swaps in one snapshot. A failed load keeps the current one.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	cat, err := r.source.Load(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Catalog refresh failed, keeping previous snapshot")
		return err
	}
	version := r.snapshots.Swap(cat)
	r.log.WithFields(logrus.Fields{"version": version, "units": len(cat.Units), "bookings": len(cat.Bookings)}).Debug("Catalog refreshed")
	return nil
}

// Run refreshes every interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.RefreshOnce(ctx)
		}
	}
}
