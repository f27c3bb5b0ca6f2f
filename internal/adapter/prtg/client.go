package prtg

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

const tablePath = "/api/table.json"

// Client implements domain.SensorSource using the PRTG table API.
type Client struct {
	http *httpclient.Client
}

// NewClient creates a PRTG client. passhash is the account's API passhash,
// not its password.
func NewClient(baseURL, username, passhash string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.New(baseURL,
			httpclient.WithTimeout(timeout),
			httpclient.WithQuery("username", username),
			httpclient.WithQuery("passhash", passhash),
		),
	}
}

// Sensors lists sensors named q.Name on a device containing q.Device in a
// group containing q.Group.
func (c *Client) Sensors(ctx context.Context, q domain.SensorQuery) ([]domain.SensorEntry, error) {
	params := url.Values{
		"content":       {"sensors"},
		"columns":       {"objid,sensor,device,group,status"},
		"filter_sensor": {q.Name},
	}
	if q.Device != "" {
		params.Set("filter_device", "@sub("+q.Device+")")
	}
	if q.Group != "" {
		params.Set("filter_group", "@sub("+q.Group+")")
	}

	body, err := c.http.Get(ctx, tablePath, params)
	if err != nil {
		return nil, fmt.Errorf("prtg sensor query: %w", err)
	}

	var resp tableResponse
	if err := httpclient.DecodeJSON(body, &resp); err != nil {
		return nil, fmt.Errorf("prtg sensor query: %w", err)
	}
	if resp.Sensors == nil {
		return nil, fmt.Errorf("prtg sensor query: %w", httpclient.Malformed(body, "no sensors in payload"))
	}

	entries := make([]domain.SensorEntry, 0, len(*resp.Sensors))
	for _, s := range *resp.Sensors {
		entries = append(entries, domain.SensorEntry{
			ID:     domain.DisplayValue(s.ObjID),
			Name:   s.Sensor,
			Device: s.Device,
			Status: s.Status,
		})
	}
	return entries, nil
}

// Table API response types.

type tableResponse struct {
	Sensors *[]sensorRow `json:"sensors"`
}

type sensorRow struct {
	ObjID  any     `json:"objid"`
	Sensor string  `json:"sensor"`
	Device string  `json:"device"`
	Group  string  `json:"group"`
	Status *string `json:"status"`
}
