package meraki

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// Client implements domain.AccessPointInventory using the Meraki Dashboard API
// scoped to one organization.
type Client struct {
	http  *httpclient.Client
	orgID string
}

// NewClient creates a Dashboard API client for the organization.
func NewClient(baseURL, apiKey, orgID string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.New(baseURL,
			httpclient.WithTimeout(timeout),
			httpclient.WithHeader("Authorization", "Bearer "+apiKey),
		),
		orgID: orgID,
	}
}

// DeviceByMAC returns the first organization device with the MAC address.
func (c *Client) DeviceByMAC(ctx context.Context, mac string) (domain.Device, error) {
	return c.firstDevice(ctx, url.Values{"mac": {mac}}, "mac "+mac)
}

// DeviceByName returns the first organization device with the name.
func (c *Client) DeviceByName(ctx context.Context, name string) (domain.Device, error) {
	return c.firstDevice(ctx, url.Values{"name": {name}}, "name "+name)
}

func (c *Client) firstDevice(ctx context.Context, params url.Values, desc string) (domain.Device, error) {
	var devices []device
	if err := c.http.GetJSON(ctx, c.orgPath("/devices"), params, &devices); err != nil {
		return domain.Device{}, fmt.Errorf("meraki device lookup by %s: %w", desc, err)
	}
	if len(devices) == 0 {
		return domain.Device{}, fmt.Errorf("meraki device with %s: %w", desc, domain.ErrNotFound)
	}
	d := devices[0]
	return domain.Device{Serial: d.Serial, Name: d.Name, MAC: d.MAC}, nil
}

// DeviceStatus returns the dashboard status of the device with the serial,
// such as "online", "alerting", "offline" or "dormant".
func (c *Client) DeviceStatus(ctx context.Context, serial string) (string, error) {
	var statuses []deviceStatus
	params := url.Values{"serials[]": {serial}}
	if err := c.http.GetJSON(ctx, c.orgPath("/devices/statuses"), params, &statuses); err != nil {
		return "", fmt.Errorf("meraki device status for serial %s: %w", serial, err)
	}
	if len(statuses) == 0 {
		return "", fmt.Errorf("meraki device status for serial %s: %w", serial, domain.ErrNotFound)
	}
	if statuses[0].Status == "" {
		return "", fmt.Errorf("meraki device status for serial %s: %w", serial, domain.ErrUnparsable)
	}
	return statuses[0].Status, nil
}

func (c *Client) orgPath(suffix string) string {
	return "/organizations/" + url.PathEscape(c.orgID) + suffix
}

// Dashboard API response types.

type device struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
	MAC    string `json:"mac"`
}

type deviceStatus struct {
	Serial string `json:"serial"`
	Status string `json:"status"`
}
