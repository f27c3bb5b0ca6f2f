package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

// OutageLookup is the outcome of an outage query. Record is nil when no
// provider produced a usable answer.
type OutageLookup struct {
	Record   *domain.OutageRecord
	Provider domain.ProviderName
}

// OutageService queries the configured outage providers for a site.
type OutageService struct {
	providers map[domain.ProviderName]domain.OutageProvider
	order     []domain.ProviderName
	fallback  domain.ProviderName
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewOutageService registers providers under their names. fallback names the
// provider preferred when a caller does not pin one.
func NewOutageService(fallback domain.ProviderName, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, providers ...domain.OutageProvider) *OutageService {
	s := &OutageService{
		providers: make(map[domain.ProviderName]domain.OutageProvider, len(providers)),
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
		s.order = append(s.order, p.Name())
	}
	return s
}

// Lookup returns the outage record for the site. With a pinned provider only
// that feed is queried. Otherwise every registered feed is queried
// concurrently and the default provider's answer wins; another feed's answer
// is used only when the default one fails.
func (s *OutageService) Lookup(ctx context.Context, site domain.Site, pinned domain.ProviderName) OutageLookup {
	if pinned != "" {
		p, ok := s.providers[pinned]
		if !ok {
			s.logger.Warn("outage provider not configured", "site", site.Name, "provider", pinned)
			return OutageLookup{Provider: pinned}
		}
		return OutageLookup{Record: s.query(ctx, p, site), Provider: pinned}
	}

	records := make([]*domain.OutageRecord, len(s.order))
	var g errgroup.Group
	for i, name := range s.order {
		p := s.providers[name]
		g.Go(func() error {
			records[i] = s.query(ctx, p, site)
			return nil
		})
	}
	_ = g.Wait() // queries never return errors; failures become nil records

	byName := make(map[domain.ProviderName]*domain.OutageRecord, len(records))
	for i, name := range s.order {
		byName[name] = records[i]
	}
	if rec := byName[s.fallback]; rec != nil {
		return OutageLookup{Record: rec, Provider: s.fallback}
	}
	for _, name := range s.order {
		if rec := byName[name]; rec != nil {
			s.logger.Info("default outage provider unavailable, using alternate",
				"site", site.Name,
				"default", s.fallback,
				"provider", name,
			)
			return OutageLookup{Record: rec, Provider: name}
		}
	}
	return OutageLookup{Provider: s.fallback}
}

// query calls one provider with the per-call timeout. Any failure is logged
// and returned as nil, never as an Active record.
func (s *OutageService) query(ctx context.Context, p domain.OutageProvider, site domain.Site) *domain.OutageRecord {
	source := string(p.Name())
	start := time.Now()

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := p.OutageStatus(qctx, site)
	s.metrics.SourceDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		reason := domain.Reason(err)
		s.metrics.SourceRequests.WithLabelValues(source, reason).Inc()
		s.logger.Warn("outage status unknown",
			"site", site.Name,
			"provider", source,
			"reason", reason,
			"error", err,
		)
		return nil
	}
	s.metrics.SourceRequests.WithLabelValues(source, "ok").Inc()
	s.logger.Debug("outage status", "site", site.Name, "provider", source, "power_status", rec.PowerStatus)
	return &rec
}
