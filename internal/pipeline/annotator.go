package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

// DefaultActionName names the automated action in incident notes when the
// caller does not.
const DefaultActionName = "CheckSitePower"

// PostOutcome is the result of one incident update.
type PostOutcome struct {
	Attempted  bool
	StatusCode int
	Err        error
}

// Accepted reports whether the incident system accepted the update.
func (o PostOutcome) Accepted() bool {
	return o.Attempted && o.Err == nil && o.StatusCode == domain.StatusAccepted
}

// AnnotationResult records what the annotator did. A zero value means the
// annotation was skipped entirely.
type AnnotationResult struct {
	Details PostOutcome
	Tag     PostOutcome
}

// Annotator posts check results to the incident system. Failures are logged
// and reported in the result, never returned as errors.
type Annotator struct {
	incidents      domain.IncidentManager
	requireDetails bool
	timeout        time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewAnnotator creates an annotator. A nil incident manager disables
// annotation. With requireDetails set, the tag is posted only after the
// details post was accepted.
func NewAnnotator(incidents domain.IncidentManager, requireDetails bool, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Annotator {
	return &Annotator{
		incidents:      incidents,
		requireDetails: requireDetails,
		timeout:        timeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// Annotate posts the detail record to the incident, then the power-down tag
// when tag is set.
func (a *Annotator) Annotate(ctx context.Context, incidentID, actionName string, details domain.DetailRecord, tag bool) AnnotationResult {
	var res AnnotationResult
	if a.incidents == nil || incidentID == "" {
		a.metrics.Annotations.WithLabelValues("details", "skipped").Inc()
		return res
	}
	if actionName == "" {
		actionName = DefaultActionName
	}

	note := fmt.Sprintf("Automated action %s completed. Details of collected statuses have been added as extra properties.", actionName)
	res.Details = a.post(ctx, "details", incidentID, func(ctx context.Context) (int, error) {
		return a.incidents.AddDetails(ctx, incidentID, details, note)
	})

	if !tag {
		return res
	}
	if a.requireDetails && !res.Details.Accepted() {
		a.metrics.Annotations.WithLabelValues("tags", "skipped").Inc()
		a.logger.Warn("power-down tag not posted because details were not accepted", "incident", incidentID)
		return res
	}

	note = fmt.Sprintf("Automated action %s detected site power is down with high confidence. Tag has been added.", actionName)
	res.Tag = a.post(ctx, "tags", incidentID, func(ctx context.Context) (int, error) {
		return a.incidents.AddTags(ctx, incidentID, []string{domain.TagSitePowerDown}, note)
	})
	return res
}

func (a *Annotator) post(ctx context.Context, kind, incidentID string, fn func(context.Context) (int, error)) PostOutcome {
	pctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	code, err := fn(pctx)
	out := PostOutcome{Attempted: true, StatusCode: code, Err: err}
	switch {
	case err != nil:
		a.metrics.Annotations.WithLabelValues(kind, "error").Inc()
		a.logger.Error("incident update failed", "kind", kind, "incident", incidentID, "error", err)
	case code != domain.StatusAccepted:
		a.metrics.Annotations.WithLabelValues(kind, "rejected").Inc()
		a.logger.Error("incident update rejected", "kind", kind, "incident", incidentID, "status_code", code)
	default:
		a.metrics.Annotations.WithLabelValues(kind, "accepted").Inc()
		a.logger.Info("incident updated", "kind", kind, "incident", incidentID)
	}
	return out
}
