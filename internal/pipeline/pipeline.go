package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

// EventPublisher writes completed checks to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CheckEvent) error
}

// CheckRequest identifies the site to check and the incident to annotate.
type CheckRequest struct {
	SiteName   string
	IncidentID string
	ActionName string
	// Provider pins one outage feed. Empty queries every configured feed and
	// prefers the default.
	Provider domain.ProviderName
}

// CheckResult is everything one check produced.
type CheckResult struct {
	CheckID    string
	Site       domain.Site
	Provider   domain.ProviderName
	Verdict    domain.Verdict
	Details    domain.DetailRecord
	Annotation AnnotationResult
	CheckedAt  time.Time
	// Canceled is set when the caller aborted before all signals were
	// gathered. The verdict is then Unknown/Low and nothing is posted.
	Canceled bool
}

// Pipeline runs site power checks: locate the site, gather outage and
// telemetry signals concurrently, reconcile, annotate and publish.
type Pipeline struct {
	locator   *SiteLocator
	outages   *OutageService
	telemetry *TelemetryResolver
	annotator *Annotator
	publisher EventPublisher
	pubWait   time.Duration
	times     *domain.TimeNormalizer
	policy    domain.Policy
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithPublisher publishes every completed check, waiting at most timeout
// for each write.
func WithPublisher(p EventPublisher, timeout time.Duration) Option {
	return func(pl *Pipeline) {
		pl.publisher = p
		pl.pubWait = timeout
	}
}

// WithTimeNormalizer sets the zone and format of the check time merged into
// outage records. The default is the local zone and domain.DefaultTimeFormat.
func WithTimeNormalizer(times *domain.TimeNormalizer) Option {
	return func(pl *Pipeline) {
		if times != nil {
			pl.times = times
		}
	}
}

// New creates a Pipeline from its stages.
func New(locator *SiteLocator, outages *OutageService, telemetry *TelemetryResolver, annotator *Annotator, policy domain.Policy, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		locator:   locator,
		outages:   outages,
		telemetry: telemetry,
		annotator: annotator,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
	// The default format always parses.
	p.times, _ = domain.NewTimeNormalizer("", "")
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness reports whether the site directory can be reached.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if rc, ok := p.locator.directory.(interface {
		CheckReadiness(context.Context) error
	}); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Check runs one site power check. Only a failure to locate the site is
// returned as an error; every signal-source problem degrades the verdict
// instead.
func (p *Pipeline) Check(ctx context.Context, req CheckRequest) (CheckResult, error) {
	start := time.Now()
	p.metrics.ChecksTotal.Inc()
	p.metrics.ChecksInFlight.Inc()
	defer func() {
		p.metrics.ChecksInFlight.Dec()
		p.metrics.CheckDuration.Observe(time.Since(start).Seconds())
	}()

	site, err := p.locator.Locate(ctx, req.SiteName)
	if err != nil {
		return CheckResult{}, err
	}

	logger := p.logger.With("site", site.Name, "incident", req.IncidentID)
	res := CheckResult{
		CheckID: uuid.NewString(),
		Site:    site,
	}

	ev, lookup := p.gather(ctx, site, req.Provider)
	res.Provider = lookup.Provider

	if ctx.Err() != nil {
		// Partial evidence must not produce a confident verdict.
		res.Canceled = true
		res.Verdict = domain.Verdict{
			Provider:   domain.SignalFromOutage(ev.Outage),
			SitePower:  domain.PowerUnknown,
			Confidence: domain.ConfidenceLow,
		}
		logger.Warn("check canceled before all signals were gathered", "error", ctx.Err())
	} else {
		res.Verdict = domain.Reconcile(p.policy, ev)
		for _, w := range res.Verdict.Warnings {
			logger.Warn(w)
		}
	}

	res.CheckedAt = domain.Now()
	outage := ev.Outage
	if outage != nil {
		rec := outage.WithSite(site, p.times.Format(res.CheckedAt))
		outage = &rec
	}

	res.Details = domain.BuildDetailRecord(domain.DetailInput{
		SiteName:              site.Name,
		Outage:                outage,
		Sensors:               ev.Sensors,
		Verdict:               res.Verdict,
		AccessPointConfigured: p.telemetry.AccessPointConfigured(),
	})
	p.metrics.Verdicts.WithLabelValues(string(res.Verdict.SitePower), string(res.Verdict.Confidence)).Inc()

	logger.Info("site power check complete",
		"check_id", res.CheckID,
		"provider", res.Provider,
		"provider_status", res.Verdict.Provider,
		"site_power", res.Verdict.SitePower,
		"confidence", res.Verdict.Confidence,
		"tag", res.Verdict.Tag,
	)

	if res.Canceled {
		return res, nil
	}

	// The verdict is final; downstream side effects outlive the caller.
	sideCtx := context.WithoutCancel(ctx)
	res.Annotation = p.annotator.Annotate(sideCtx, req.IncidentID, req.ActionName, res.Details, res.Verdict.Tag)
	p.publish(sideCtx, req, res)
	return res, nil
}

// gather queries the outage feed and every telemetry dimension concurrently
// and joins before returning.
func (p *Pipeline) gather(ctx context.Context, site domain.Site, provider domain.ProviderName) (domain.Evidence, OutageLookup) {
	kinds := []domain.SensorKind{domain.SensorPi, domain.SensorProbe, domain.SensorAccessPoint}
	statuses := make([]domain.SensorStatus, len(kinds))
	var lookup OutageLookup

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lookup = p.outages.Lookup(gctx, site, provider)
		return nil
	})
	for i, kind := range kinds {
		g.Go(func() error {
			statuses[i] = p.telemetry.Resolve(gctx, kind, site)
			return nil
		})
	}
	_ = g.Wait() // sources report failures as Unknown, never as errors

	ev := domain.Evidence{
		Outage:  lookup.Record,
		Sensors: make(map[domain.SensorKind]domain.SensorStatus, len(kinds)),
	}
	for i, kind := range kinds {
		ev.Sensors[kind] = statuses[i]
	}
	return ev, lookup
}

func (p *Pipeline) publish(ctx context.Context, req CheckRequest, res CheckResult) {
	if p.publisher == nil {
		return
	}
	event := domain.CheckEvent{
		CheckID:    res.CheckID,
		SiteName:   res.Site.Name,
		IncidentID: req.IncidentID,
		Provider:   res.Provider,
		SitePower:  res.Verdict.SitePower,
		Confidence: res.Verdict.Confidence,
		Tagged:     res.Annotation.Tag.Accepted(),
		Details:    res.Details,
		CheckedAt:  res.CheckedAt,
	}
	pctx, cancel := context.WithTimeout(ctx, p.pubWait)
	defer cancel()

	if err := p.publisher.Publish(pctx, event); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish check event failed", "check_id", res.CheckID, "error", err)
		return
	}
	p.metrics.EventsPublished.Inc()
}

// IsSiteNotFound reports whether a Check error means the site is unknown.
func IsSiteNotFound(err error) bool {
	return errors.Is(err, domain.ErrSiteNotFound)
}
