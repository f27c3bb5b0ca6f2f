package domain

import (
	"context"
	"strings"
)

// Coordinates is a WGS-84 point. Longitude comes first to match the feeds.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// AccessPoint identifies the wireless access point installed at a site.
// Any of the fields may be empty; the serial is discovered from the MAC or
// name when missing.
type AccessPoint struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
	Serial string `json:"serial,omitempty" yaml:"serial,omitempty"`
}

// Site is a monitored location as stored in the site directory.
type Site struct {
	Name        string       `json:"siteName"`
	Street      string       `json:"street"`
	City        string       `json:"city"`
	County      string       `json:"county,omitempty"`
	State       string       `json:"state"`
	Zip         string       `json:"zip,omitempty"`
	Coords      *Coordinates `json:"coordinates,omitempty"`
	AccessPoint AccessPoint  `json:"accessPoint,omitzero"`
}

// HasCoordinates reports whether the site carries a longitude and latitude.
func (s Site) HasCoordinates() bool {
	return s.Coords != nil
}

// Address renders the single-line address used for geocoding:
// "<street>, <city>, <state> <zip>".
func (s Site) Address() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Street, s.City, s.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	addr := strings.Join(parts, ", ")
	if zip := strings.TrimSpace(s.Zip); zip != "" {
		addr += " " + zip
	}
	return addr
}

// SiteDirectory stores site records keyed by case-insensitive name.
type SiteDirectory interface {
	GetSite(ctx context.Context, name string) (Site, error)
	AddSite(ctx context.Context, site Site) (Site, error)
	AllSites(ctx context.Context) ([]Site, error)
	// SetCoordinates backfills a site's coordinates. Writing the same values
	// twice is harmless.
	SetCoordinates(ctx context.Context, name string, coords Coordinates) (Site, error)
}

// GeocodingResult is the best candidate returned for an address.
type GeocodingResult struct {
	Coords  Coordinates
	Address string
	Score   float64
}

// Found reports whether the result holds an accepted candidate.
func (r GeocodingResult) Found() bool {
	return r.Address != ""
}

// Geocoder resolves a street address to coordinates. A zero result with a nil
// error means no acceptable candidate was found.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
