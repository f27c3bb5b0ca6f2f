package domain

import (
	"context"
	"net/http"
	"time"
)

// StatusAccepted is the only response code the incident system returns for a
// successfully queued update.
const StatusAccepted = http.StatusAccepted

// TagSitePowerDown is attached to an incident when power loss is confirmed.
const TagSitePowerDown = "SitePowerDown"

// IncidentManager posts updates to an incident. Implementations return the
// HTTP status code; a transport failure is returned as an error.
type IncidentManager interface {
	AddDetails(ctx context.Context, incidentID string, details map[string]string, note string) (int, error)
	AddTags(ctx context.Context, incidentID string, tags []string, note string) (int, error)
}

// CheckEvent is the record of one completed check, published to the event
// stream.
type CheckEvent struct {
	CheckID    string       `json:"check_id"`
	SiteName   string       `json:"site_name"`
	IncidentID string       `json:"incident_id,omitempty"`
	Provider   ProviderName `json:"provider"`
	SitePower  SitePower    `json:"site_power"`
	Confidence Confidence   `json:"confidence"`
	Tagged     bool         `json:"tagged"`
	Details    DetailRecord `json:"details"`
	CheckedAt  time.Time    `json:"checked_at"`
}
