package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/beesaferoot/rental-booking/booking"
)

type catalogSource interface {
	Load(ctx context.Context) (booking.Catalog, error)
}

type catalogCache interface {
	catalogSource
	ReplaceCatalog(ctx context.Context, c booking.Catalog) error
}

// cachedSource reads from the API and keeps the local cache in step. When the API cannot be
// reached the last cached catalog is served instead.
type cachedSource struct {
	remote catalogSource
	cache  catalogCache
	log    logrus.FieldLogger
}

func (s *cachedSource) Load(ctx context.Context) (booking.Catalog, error) {
	cat, err := s.remote.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Booking API unavailable, serving cached catalog")
		cached, cacheErr := s.cache.Load(ctx)
		if cacheErr != nil {
			return booking.Catalog{}, fmt.Errorf("failed to load catalog: %w (cache: %v)", err, cacheErr)
		}
		return cached, nil
	}

	if err := s.cache.ReplaceCatalog(ctx, cat); err != nil {
		s.log.WithError(err).Warn("Failed to update catalog cache")
	}
	return cat, nil
}
