package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

const testTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func ptr[T any](v T) *T { return &v }

// --- site directory ---

type memDirectory struct {
	mu       sync.Mutex
	sites    map[string]domain.Site
	setCalls int
	setErr   error
}

func newMemDirectory(sites ...domain.Site) *memDirectory {
	d := &memDirectory{sites: make(map[string]domain.Site)}
	for _, s := range sites {
		d.sites[strings.ToLower(s.Name)] = s
	}
	return d
}

func (d *memDirectory) GetSite(_ context.Context, name string) (domain.Site, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sites[strings.ToLower(name)]
	if !ok {
		return domain.Site{}, domain.ErrSiteNotFound
	}
	return s, nil
}

func (d *memDirectory) AddSite(_ context.Context, s domain.Site) (domain.Site, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sites[strings.ToLower(s.Name)]; ok {
		return domain.Site{}, domain.ErrSiteExists
	}
	d.sites[strings.ToLower(s.Name)] = s
	return s, nil
}

func (d *memDirectory) AllSites(context.Context) ([]domain.Site, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Site, 0, len(d.sites))
	for _, s := range d.sites {
		out = append(out, s)
	}
	return out, nil
}

func (d *memDirectory) SetCoordinates(_ context.Context, name string, c domain.Coordinates) (domain.Site, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setCalls++
	if d.setErr != nil {
		return domain.Site{}, d.setErr
	}
	s, ok := d.sites[strings.ToLower(name)]
	if !ok {
		return domain.Site{}, domain.ErrSiteNotFound
	}
	s.Coords = &c
	d.sites[strings.ToLower(name)] = s
	return s, nil
}

// --- geocoder ---

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
	addr   string
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (domain.GeocodingResult, error) {
	g.calls++
	g.addr = address
	return g.result, g.err
}

// --- outage providers ---

type stubProvider struct {
	name  domain.ProviderName
	rec   domain.OutageRecord
	err   error
	delay time.Duration
	mu    sync.Mutex
	calls int
}

func (p *stubProvider) Name() domain.ProviderName { return p.name }

func (p *stubProvider) OutageStatus(ctx context.Context, _ domain.Site) (domain.OutageRecord, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return domain.OutageRecord{}, ctx.Err()
		}
	}
	return p.rec, p.err
}

func inactive(fields map[string]string) domain.OutageRecord {
	return domain.OutageRecord{PowerStatus: domain.PowerInactive, Fields: fields}
}

// --- telemetry ---

// stubSensors answers by sensor name. A query with no configured answer
// returns an empty list.
type stubSensors struct {
	mu      sync.Mutex
	entries map[string][]domain.SensorEntry
	errs    map[string]error
	queries []domain.SensorQuery
	block   bool
}

func (s *stubSensors) Sensors(ctx context.Context, q domain.SensorQuery) ([]domain.SensorEntry, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := s.errs[q.Name]; err != nil {
		return nil, err
	}
	return s.entries[q.Name], nil
}

func sensorsReporting(pi, probe string) *stubSensors {
	return &stubSensors{entries: map[string][]domain.SensorEntry{
		"Ping":         {{ID: "1", Name: "Ping", Status: ptr(pi)}},
		"Probe Health": {{ID: "2", Name: "Probe Health", Status: ptr(probe)}},
	}}
}

type stubInventory struct {
	byMAC    map[string]domain.Device
	byName   map[string]domain.Device
	statuses map[string]string
	macCalls int
}

func (i *stubInventory) DeviceByMAC(_ context.Context, mac string) (domain.Device, error) {
	i.macCalls++
	d, ok := i.byMAC[mac]
	if !ok {
		return domain.Device{}, domain.ErrNotFound
	}
	return d, nil
}

func (i *stubInventory) DeviceByName(_ context.Context, name string) (domain.Device, error) {
	d, ok := i.byName[name]
	if !ok {
		return domain.Device{}, domain.ErrNotFound
	}
	return d, nil
}

func (i *stubInventory) DeviceStatus(_ context.Context, serial string) (string, error) {
	s, ok := i.statuses[serial]
	if !ok {
		return "", domain.ErrNotFound
	}
	return s, nil
}

// --- incident manager ---

type recordedPost struct {
	kind    string
	id      string
	details map[string]string
	tags    []string
	note    string
}

type stubIncidents struct {
	mu          sync.Mutex
	detailsCode int
	tagsCode    int
	detailsErr  error
	posts       []recordedPost
}

func (s *stubIncidents) AddDetails(_ context.Context, id string, details map[string]string, note string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, recordedPost{kind: "details", id: id, details: details, note: note})
	return s.detailsCode, s.detailsErr
}

func (s *stubIncidents) AddTags(_ context.Context, id string, tags []string, note string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, recordedPost{kind: "tags", id: id, tags: tags, note: note})
	return s.tagsCode, nil
}

func (s *stubIncidents) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.posts {
		if p.kind == kind {
			n++
		}
	}
	return n
}

// --- publisher ---

type capturePublisher struct {
	events []domain.CheckEvent
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e domain.CheckEvent) error {
	c.events = append(c.events, e)
	return c.err
}
