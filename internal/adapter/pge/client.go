package pge

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// apiKeyHeader carries the subscription key for the outage gateway.
const apiKeyHeader = "Ocp-Apim-Subscription-Key"

// Outage attributes holding epoch seconds.
var secondFields = map[string]bool{
	"autoEtor":        true,
	"crewEta":         true,
	"currentEtor":     true,
	"lastUpdateTime":  true,
	"outageStartTime": true,
}

const fieldOutageStatus = "outageStatus"

// Client implements domain.OutageProvider against the PG&E outage regions feed.
type Client struct {
	http  *httpclient.Client
	times *domain.TimeNormalizer
}

// NewClient creates a client for the regions endpoint.
func NewClient(endpoint, apiKey string, times *domain.TimeNormalizer, timeout time.Duration) *Client {
	opts := []httpclient.Option{httpclient.WithTimeout(timeout)}
	if apiKey != "" {
		opts = append(opts, httpclient.WithHeader(apiKeyHeader, apiKey))
	}
	return &Client{
		http:  httpclient.New(endpoint, opts...),
		times: times,
	}
}

func (c *Client) Name() domain.ProviderName { return domain.ProviderPGE }

// OutageStatus scans the site's region for an outage reported at exactly the
// site's coordinates. Feed coordinates are compared for exact equality; an
// outage a few meters away does not match.
func (c *Client) OutageStatus(ctx context.Context, site domain.Site) (domain.OutageRecord, error) {
	switch {
	case site.City == "":
		return domain.OutageRecord{}, fmt.Errorf("%w: site %q has no region", domain.ErrMissingPrecondition, site.Name)
	case !site.HasCoordinates():
		return domain.OutageRecord{}, fmt.Errorf("%w: site %q has no coordinates", domain.ErrMissingPrecondition, site.Name)
	}

	body, err := c.http.Get(ctx, "", nil)
	if err != nil {
		return domain.OutageRecord{}, fmt.Errorf("pge outage query: %w", err)
	}

	var resp regionsResponse
	if err := httpclient.DecodeJSON(body, &resp); err != nil {
		return domain.OutageRecord{}, fmt.Errorf("pge outage query: %w", err)
	}
	if resp.Regions == nil {
		return domain.OutageRecord{}, fmt.Errorf("pge outage query: %w", httpclient.Malformed(body, "no outagesRegions in payload"))
	}

	for _, region := range *resp.Regions {
		if region.Name != site.City {
			continue
		}
		for _, outage := range region.Outages {
			if matches(outage, *site.Coords) {
				return c.normalize(outage), nil
			}
		}
	}
	return domain.ActiveRecord(), nil
}

// matches compares longitude first, then latitude.
func matches(outage map[string]any, at domain.Coordinates) bool {
	lon, ok := domain.NumberValue(outage["longitude"])
	if !ok || lon != at.Longitude {
		return false
	}
	lat, ok := domain.NumberValue(outage["latitude"])
	return ok && lat == at.Latitude
}

func (c *Client) normalize(outage map[string]any) domain.OutageRecord {
	fields := make(map[string]string, len(outage))
	for k, v := range outage {
		if k == fieldOutageStatus {
			continue
		}
		if secondFields[k] {
			if secs, ok := domain.NumberValue(v); ok && secs != 0 {
				fields[k] = c.times.ToLocalTime(int64(secs), domain.Seconds)
				continue
			}
		}
		fields[k] = domain.DisplayValue(v)
	}
	return domain.OutageRecord{PowerStatus: domain.PowerInactive, Fields: fields}
}

// Outage regions response types.

type regionsResponse struct {
	Regions *[]region `json:"outagesRegions"`
}

type region struct {
	Name    string           `json:"regionName"`
	Outages []map[string]any `json:"outages"`
}
