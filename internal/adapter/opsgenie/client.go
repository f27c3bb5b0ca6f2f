package opsgenie

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/httpclient"
)

// Source identifies this service in the alert activity log.
const Source = "power-outage-monitor"

// Client implements domain.IncidentManager using the Opsgenie Alert API.
type Client struct {
	http   *httpclient.Client
	idType string
}

// NewClient creates an Alert API client. idType selects how alert
// identifiers are interpreted: "id", "tiny" or "alias".
func NewClient(baseURL, apiKey, idType string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.New(baseURL,
			httpclient.WithTimeout(timeout),
			httpclient.WithHeader("Authorization", "GenieKey "+apiKey),
		),
		idType: idType,
	}
}

type alertAction struct {
	Details map[string]string `json:"details,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	User    string            `json:"user,omitempty"`
	Source  string            `json:"source,omitempty"`
	Note    string            `json:"note,omitempty"`
}

// AddDetails adds custom properties to the alert. The request is queued
// asynchronously; 202 means accepted.
func (c *Client) AddDetails(ctx context.Context, alertID string, details map[string]string, note string) (int, error) {
	return c.post(ctx, alertID, "/details", alertAction{Details: details, Source: Source, Note: note})
}

// AddTags adds tags to the alert.
func (c *Client) AddTags(ctx context.Context, alertID string, tags []string, note string) (int, error) {
	return c.post(ctx, alertID, "/tags", alertAction{Tags: tags, Source: Source, Note: note})
}

func (c *Client) post(ctx context.Context, alertID, action string, body alertAction) (int, error) {
	path := "/v2/alerts/" + url.PathEscape(alertID) + action
	status, _, err := c.http.PostJSON(ctx, path, url.Values{"identifierType": {c.idType}}, body)
	if err != nil {
		return 0, fmt.Errorf("opsgenie %s: %w", action, err)
	}
	return status, nil
}
