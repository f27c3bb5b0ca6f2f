package arcgis

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

// Geocoder implements domain.Geocoder using the ArcGIS World Geocoding
// Service findAddressCandidates operation.
type Geocoder struct {
	http     *httpclient.Client
	minScore float64
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewGeocoder creates a geocoding client. Candidates scoring below minScore
// are discarded. An empty token sends anonymous requests.
func NewGeocoder(endpoint, token string, minScore float64, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Geocoder {
	opts := []httpclient.Option{httpclient.WithTimeout(timeout)}
	if token != "" {
		opts = append(opts, httpclient.WithQuery("token", token))
	}
	return &Geocoder{
		http:     httpclient.New(endpoint, opts...),
		minScore: minScore,
		metrics:  metrics,
		logger:   logger,
	}
}

// Geocode returns the top candidate for a single-line address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	params := url.Values{
		"SingleLine":   {address},
		"maxLocations": {"1"},
		"outFields":    {"Match_addr"},
		"f":            {"json"},
	}

	var resp candidatesResponse
	if err := g.http.GetJSON(ctx, "", params, &resp); err != nil {
		g.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("geocode request: %w", err)
	}

	if len(resp.Candidates) == 0 {
		g.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.GeocodingResult{}, nil
	}

	top := resp.Candidates[0]
	if top.Score < g.minScore {
		g.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		g.logger.Debug("geocode candidate below minimum score",
			"address", address,
			"score", top.Score,
			"min_score", g.minScore,
		)
		return domain.GeocodingResult{}, nil
	}

	g.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.GeocodingResult{
		Coords:  domain.Coordinates{Longitude: top.Location.X, Latitude: top.Location.Y},
		Address: top.Address,
		Score:   top.Score,
	}, nil
}

// Geocoding API response types.

type candidatesResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Address  string   `json:"address"`
	Location location `json:"location"` // x is longitude, y is latitude
	Score    float64  `json:"score"`
}

type location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
