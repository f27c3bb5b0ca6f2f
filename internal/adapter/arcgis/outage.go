package arcgis

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// Feature attributes holding epoch milliseconds.
var millisecondFields = map[string]bool{
	"StartDate":            true,
	"EstimatedRestoreDate": true,
}

// fieldOutageStatus is the feed's own status attribute, replaced by PowerStatus.
const fieldOutageStatus = "OutageStatus"

// OutageClient implements domain.OutageProvider against an ArcGIS
// FeatureServer layer of outage polygons.
type OutageClient struct {
	http   *httpclient.Client
	times  *domain.TimeNormalizer
	logger *slog.Logger
}

// NewOutageClient creates a client for the layer's query endpoint.
func NewOutageClient(queryURL string, times *domain.TimeNormalizer, timeout time.Duration, logger *slog.Logger) *OutageClient {
	return &OutageClient{
		http:   httpclient.New(queryURL, httpclient.WithTimeout(timeout)),
		times:  times,
		logger: logger,
	}
}

func (c *OutageClient) Name() domain.ProviderName { return domain.ProviderGIS }

// OutageStatus runs a point-in-polygon query for the site's coordinates.
func (c *OutageClient) OutageStatus(ctx context.Context, site domain.Site) (domain.OutageRecord, error) {
	if !site.HasCoordinates() {
		return domain.OutageRecord{}, fmt.Errorf("%w: site %q has no coordinates", domain.ErrMissingPrecondition, site.Name)
	}

	params := url.Values{
		"where":          {"1=1"},
		"outFields":      {"*"},
		"geometry":       {formatPoint(*site.Coords)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}

	body, err := c.http.Get(ctx, "", params)
	if err != nil {
		return domain.OutageRecord{}, fmt.Errorf("gis outage query: %w", err)
	}

	var resp queryResponse
	if err := httpclient.DecodeJSON(body, &resp); err != nil {
		return domain.OutageRecord{}, fmt.Errorf("gis outage query: %w", err)
	}
	if resp.Features == nil {
		return domain.OutageRecord{}, fmt.Errorf("gis outage query: %w", httpclient.Malformed(body, "no features in payload"))
	}

	features := *resp.Features
	if len(features) == 0 {
		return domain.ActiveRecord(), nil
	}
	if len(features) > 1 {
		c.logger.Warn("multiple outages cover site, using the first",
			"site", site.Name,
			"matches", len(features),
		)
	}
	return c.normalize(features[0].Attributes), nil
}

func (c *OutageClient) normalize(attrs map[string]any) domain.OutageRecord {
	fields := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if k == fieldOutageStatus {
			continue
		}
		if millisecondFields[k] {
			// Zero means the feed has no value for the date.
			if ms, ok := domain.NumberValue(v); ok && ms != 0 {
				fields[k] = c.times.ToLocalTime(int64(ms), domain.Milliseconds)
				continue
			}
		}
		fields[k] = domain.DisplayValue(v)
	}
	return domain.OutageRecord{PowerStatus: domain.PowerInactive, Fields: fields}
}

// formatPoint renders "lon,lat" as the FeatureServer geometry parameter.
func formatPoint(c domain.Coordinates) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

// FeatureServer query response types.

type queryResponse struct {
	Features *[]feature `json:"features"`
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
}
