package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/pipeline"
)

func TestOutageService_DefaultProviderWins(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, rec: domain.ActiveRecord()}
	pge := &stubProvider{name: domain.ProviderPGE, rec: inactive(nil)}

	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), newTestMetrics(), gis, pge)
	got := s.Lookup(context.Background(), siteWithoutCoords(), "")

	require.NotNil(t, got.Record)
	assert.Equal(t, domain.PowerActive, got.Record.PowerStatus)
	assert.Equal(t, domain.ProviderGIS, got.Provider)
	assert.Equal(t, 1, gis.calls)
	assert.Equal(t, 1, pge.calls, "both feeds are queried when no provider is pinned")
}

func TestOutageService_FallsBackWhenDefaultFails(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, err: domain.ErrMalformed}
	pge := &stubProvider{name: domain.ProviderPGE, rec: inactive(map[string]string{"cause": "storm"})}

	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), newTestMetrics(), gis, pge)
	got := s.Lookup(context.Background(), siteWithoutCoords(), "")

	require.NotNil(t, got.Record)
	assert.Equal(t, domain.ProviderPGE, got.Provider)
	assert.Equal(t, domain.PowerInactive, got.Record.PowerStatus)
}

func TestOutageService_PinnedProviderOnly(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, rec: domain.ActiveRecord()}
	pge := &stubProvider{name: domain.ProviderPGE, rec: inactive(nil)}

	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), newTestMetrics(), gis, pge)
	got := s.Lookup(context.Background(), siteWithoutCoords(), domain.ProviderPGE)

	require.NotNil(t, got.Record)
	assert.Equal(t, domain.PowerInactive, got.Record.PowerStatus)
	assert.Zero(t, gis.calls)
}

func TestOutageService_PinnedProviderNotConfigured(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, rec: domain.ActiveRecord()}

	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), newTestMetrics(), gis)
	got := s.Lookup(context.Background(), siteWithoutCoords(), domain.ProviderPGE)
	assert.Nil(t, got.Record)
}

func TestOutageService_FailureIsUnknownNotActive(t *testing.T) {
	metrics := newTestMetrics()
	gis := &stubProvider{name: domain.ProviderGIS, err: errors.New("connection refused")}

	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), metrics, gis)
	got := s.Lookup(context.Background(), siteWithoutCoords(), "")

	assert.Nil(t, got.Record)
	assert.Equal(t, domain.ProviderUnknown, domain.SignalFromOutage(got.Record))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SourceRequests.WithLabelValues("gis", "unreachable")), 0)
}

func TestOutageService_TimeoutIsUnknown(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, rec: domain.ActiveRecord(), delay: time.Second}

	s := pipeline.NewOutageService(domain.ProviderGIS, 20*time.Millisecond, discardLogger(), newTestMetrics(), gis)
	got := s.Lookup(context.Background(), siteWithoutCoords(), "")
	assert.Nil(t, got.Record)
}

func TestOutageService_RepeatedLookupsAreIdentical(t *testing.T) {
	gis := &stubProvider{name: domain.ProviderGIS, rec: inactive(map[string]string{"StartDate": "2023-11-14 22:13:20"})}
	s := pipeline.NewOutageService(domain.ProviderGIS, testTimeout, discardLogger(), newTestMetrics(), gis)

	first := s.Lookup(context.Background(), siteWithoutCoords(), "")
	second := s.Lookup(context.Background(), siteWithoutCoords(), "")
	assert.Equal(t, first, second)
}
