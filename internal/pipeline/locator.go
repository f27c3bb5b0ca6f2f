package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// SiteLocator reads sites from the directory and fills in missing
// coordinates from the geocoder.
type SiteLocator struct {
	directory domain.SiteDirectory
	geocoder  domain.Geocoder
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSiteLocator creates a locator. Pass a nil geocoder to disable
// coordinate backfill.
func NewSiteLocator(directory domain.SiteDirectory, geocoder domain.Geocoder, timeout time.Duration, logger *slog.Logger) *SiteLocator {
	return &SiteLocator{
		directory: directory,
		geocoder:  geocoder,
		timeout:   timeout,
		logger:    logger,
	}
}

// Locate returns the named site. Directory errors, including
// domain.ErrSiteNotFound, are returned to the caller. A geocoding failure is
// logged and the site is returned without coordinates.
func (l *SiteLocator) Locate(ctx context.Context, name string) (domain.Site, error) {
	site, err := l.directory.GetSite(ctx, name)
	if err != nil {
		return domain.Site{}, fmt.Errorf("locate site: %w", err)
	}
	if site.HasCoordinates() || l.geocoder == nil {
		return site, nil
	}
	return l.backfill(ctx, site), nil
}

func (l *SiteLocator) backfill(ctx context.Context, site domain.Site) domain.Site {
	address := site.Address()
	if address == "" {
		l.logger.Warn("site has no address to geocode", "site", site.Name)
		return site
	}

	gctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	result, err := l.geocoder.Geocode(gctx, address)
	if err != nil {
		l.logger.Warn("geocoding failed", "site", site.Name, "address", address, "error", err)
		return site
	}
	if !result.Found() {
		l.logger.Warn("no geocoding candidate for site", "site", site.Name, "address", address)
		return site
	}

	coords := result.Coords
	updated, err := l.directory.SetCoordinates(ctx, site.Name, coords)
	if err != nil {
		// The check can still use the coordinates even if they were not saved.
		l.logger.Error("failed to save geocoded coordinates", "site", site.Name, "error", err)
		site.Coords = &coords
		return site
	}
	l.logger.Info("site coordinates backfilled",
		"site", site.Name,
		"longitude", coords.Longitude,
		"latitude", coords.Latitude,
		"score", result.Score,
	)
	return updated
}
