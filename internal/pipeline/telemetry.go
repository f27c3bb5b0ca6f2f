package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

// SensorNaming holds the fixed names that, combined with a site name, locate
// the ping and probe sensors in PRTG.
type SensorNaming struct {
	PiSensor    string // sensor name, e.g. "Ping"
	PiDevice    string // device name fragment, e.g. "PI - LTE"; the group is the site
	ProbeSensor string // sensor name, e.g. "Probe Health"; the device is the site
	ProbeGroup  string // group name fragment, e.g. "Probe Device"
}

func (n SensorNaming) query(kind domain.SensorKind, site domain.Site) domain.SensorQuery {
	if kind == domain.SensorProbe {
		return domain.SensorQuery{Name: n.ProbeSensor, Device: site.Name, Group: n.ProbeGroup}
	}
	return domain.SensorQuery{Name: n.PiSensor, Device: n.PiDevice, Group: site.Name}
}

// errUnrecognizedStatus marks a status string outside the known vocabulary.
var errUnrecognizedStatus = errors.New("unrecognized status")

// TelemetryResolver classifies ping, probe and access-point readings for a
// site. A nil source leaves its dimensions Unknown.
type TelemetryResolver struct {
	sensors   domain.SensorSource
	inventory domain.AccessPointInventory
	naming    SensorNaming
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTelemetryResolver creates a resolver. Either source may be nil.
func NewTelemetryResolver(sensors domain.SensorSource, inventory domain.AccessPointInventory, naming SensorNaming, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *TelemetryResolver {
	return &TelemetryResolver{
		sensors:   sensors,
		inventory: inventory,
		naming:    naming,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// AccessPointConfigured reports whether an access-point source is wired in.
func (r *TelemetryResolver) AccessPointConfigured() bool {
	return r.inventory != nil
}

// Resolve returns the reading for one telemetry dimension. It never fails;
// every problem is logged and yields Unknown.
func (r *TelemetryResolver) Resolve(ctx context.Context, kind domain.SensorKind, site domain.Site) domain.SensorStatus {
	start := time.Now()
	var (
		status domain.SensorStatus
		err    error
	)
	switch kind {
	case domain.SensorPi, domain.SensorProbe:
		status, err = r.resolvePRTG(ctx, kind, site)
	case domain.SensorAccessPoint:
		status, err = r.resolveAccessPoint(ctx, site)
	default:
		status, err = domain.UnknownSensor(kind), fmt.Errorf("unsupported sensor kind %q", kind)
	}
	r.metrics.SourceDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := sensorReason(err)
		r.metrics.SourceRequests.WithLabelValues(string(kind), reason).Inc()
		r.logger.Warn("sensor status unknown",
			"site", site.Name,
			"sensor", kind,
			"reason", reason,
			"raw_status", status.Raw,
			"error", err,
		)
		return status
	}
	r.metrics.SourceRequests.WithLabelValues(string(kind), "ok").Inc()
	return status
}

func sensorReason(err error) string {
	if errors.Is(err, errUnrecognizedStatus) {
		return "unrecognized_status"
	}
	return domain.Reason(err)
}

func (r *TelemetryResolver) resolvePRTG(ctx context.Context, kind domain.SensorKind, site domain.Site) (domain.SensorStatus, error) {
	unknown := domain.UnknownSensor(kind)
	if r.sensors == nil {
		return unknown, fmt.Errorf("%w: telemetry source not configured", domain.ErrMissingPrecondition)
	}

	q := r.naming.query(kind, site)
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entries, err := r.sensors.Sensors(qctx, q)
	if err != nil {
		return unknown, err
	}
	switch {
	case len(entries) == 0:
		return unknown, fmt.Errorf("%w: no %s sensor %q for site", domain.ErrNotFound, kind, q.Name)
	case len(entries) > 1:
		return unknown, fmt.Errorf("%w: %d %s sensors named %q for site", domain.ErrAmbiguous, len(entries), kind, q.Name)
	case entries[0].Status == nil:
		return unknown, fmt.Errorf("%w: %s sensor %s has no status", domain.ErrUnparsable, kind, entries[0].ID)
	}

	raw := *entries[0].Status
	status := domain.SensorStatus{Kind: kind, State: domain.ClassifyPRTGStatus(raw), Raw: raw}
	if status.State == domain.SensorUnknown {
		return status, fmt.Errorf("%w: %q", errUnrecognizedStatus, raw)
	}
	return status, nil
}

func (r *TelemetryResolver) resolveAccessPoint(ctx context.Context, site domain.Site) (domain.SensorStatus, error) {
	unknown := domain.UnknownSensor(domain.SensorAccessPoint)
	if r.inventory == nil {
		return unknown, fmt.Errorf("%w: access-point source not configured", domain.ErrMissingPrecondition)
	}

	serial, err := r.accessPointSerial(ctx, site.AccessPoint)
	if err != nil {
		return unknown, err
	}

	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.inventory.DeviceStatus(qctx, serial)
	if err != nil {
		return unknown, err
	}
	return domain.SensorStatus{
		Kind:  domain.SensorAccessPoint,
		State: domain.ClassifyMerakiStatus(raw),
		Raw:   raw,
	}, nil
}

// accessPointSerial returns the known serial, or discovers it by MAC and
// then by name.
func (r *TelemetryResolver) accessPointSerial(ctx context.Context, ap domain.AccessPoint) (string, error) {
	if ap.Serial != "" {
		return ap.Serial, nil
	}
	if ap.MAC == "" && ap.Name == "" {
		return "", fmt.Errorf("%w: site has no access point identifier", domain.ErrMissingPrecondition)
	}

	lookup := func(fn func(context.Context, string) (domain.Device, error), key string) (domain.Device, error) {
		qctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return fn(qctx, key)
	}

	var (
		dev domain.Device
		err = fmt.Errorf("%w: access point has no MAC", domain.ErrNotFound)
	)
	if ap.MAC != "" {
		dev, err = lookup(r.inventory.DeviceByMAC, ap.MAC)
	}
	if errors.Is(err, domain.ErrNotFound) && ap.Name != "" {
		dev, err = lookup(r.inventory.DeviceByName, ap.Name)
	}
	if err != nil {
		return "", err
	}
	if dev.Serial == "" {
		return "", fmt.Errorf("%w: access point %q has no serial", domain.ErrUnparsable, dev.Name)
	}
	return dev.Serial, nil
}
