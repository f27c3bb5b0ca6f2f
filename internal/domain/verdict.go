package domain

import (
	"fmt"
	"strings"
)

// ProviderSignal is the outage feed's opinion reduced to a power reading.
type ProviderSignal string

const (
	ProviderUp      ProviderSignal = "Up"
	ProviderDown    ProviderSignal = "Down"
	ProviderUnknown ProviderSignal = ""
)

// SignalFromOutage derives the provider signal. A nil record means the query
// failed and yields ProviderUnknown, never Up.
func SignalFromOutage(rec *OutageRecord) ProviderSignal {
	if rec == nil {
		return ProviderUnknown
	}
	switch rec.PowerStatus {
	case PowerActive:
		return ProviderUp
	case PowerInactive:
		return ProviderDown
	default:
		return ProviderUnknown
	}
}

// SitePower is the reconciled power judgment.
type SitePower string

const (
	PowerUp         SitePower = "Up"
	PowerDown       SitePower = "Down"
	PowerLikelyUp   SitePower = "Likely Up"
	PowerLikelyDown SitePower = "Likely Down"
	PowerUnknown    SitePower = "Unknown"
)

// Confidence labels how well independent signals agree.
type Confidence string

const (
	ConfidenceHigh Confidence = "High"
	ConfidenceLow  Confidence = "Low"
)

// Policy selects the reconciliation rule.
type Policy string

const (
	// PolicyStrictMajority lets any reachable telemetry signal prove power.
	PolicyStrictMajority Policy = "strict-majority"
	// PolicyTwoSignal trusts the provider and grades it with ping and probe.
	PolicyTwoSignal Policy = "two-signal"
)

// ParsePolicy accepts a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrictMajority, PolicyTwoSignal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown confidence policy %q", s)
	}
}

// Verdict is the outcome of reconciling one check's evidence.
type Verdict struct {
	Provider   ProviderSignal
	SitePower  SitePower
	Confidence Confidence
	// Tag is set when the verdict is Down with High confidence and the
	// incident should be tagged. It is decided once per reconciliation.
	Tag bool
	// Warnings carries non-fatal notes raised while reconciling.
	Warnings []string
}

// Evidence is the set of normalized signals for one check.
type Evidence struct {
	Outage  *OutageRecord
	Sensors map[SensorKind]SensorStatus
}

func (e Evidence) state(kind SensorKind) SensorState {
	s, ok := e.Sensors[kind]
	if !ok || s.State == "" {
		return SensorUnknown
	}
	return s.State
}

func (e Evidence) count(state SensorState, kinds ...SensorKind) int {
	n := 0
	for _, k := range kinds {
		if e.state(k) == state {
			n++
		}
	}
	return n
}

var telemetryKinds = []SensorKind{SensorAccessPoint, SensorPi, SensorProbe}

// Reconcile combines the outage signal and telemetry readings into a verdict.
// It performs no I/O.
func Reconcile(policy Policy, ev Evidence) Verdict {
	var v Verdict
	switch policy {
	case PolicyTwoSignal:
		v = reconcileTwoSignal(ev)
	default:
		v = reconcileStrictMajority(ev)
	}
	v.Tag = v.SitePower == PowerDown && v.Confidence == ConfidenceHigh
	return v
}

func reconcileStrictMajority(ev Evidence) Verdict {
	provider := SignalFromOutage(ev.Outage)
	v := Verdict{Provider: provider, Confidence: ConfidenceLow}
	up := ev.count(SensorUp, telemetryKinds...)
	down := ev.count(SensorDown, telemetryKinds...)

	switch {
	case up > 0:
		v.SitePower = PowerUp
		v.Confidence = ConfidenceHigh
	case provider == ProviderUp && down > 0:
		v.SitePower = PowerLikelyDown
	case provider == ProviderUp:
		v.SitePower = PowerLikelyUp
	case provider == ProviderDown:
		v.SitePower = PowerDown
		// Down is only high confidence when telemetry independently agrees.
		if down > 0 {
			v.Confidence = ConfidenceHigh
		}
	default:
		return telemetryOnly(v, down)
	}
	return v
}

func reconcileTwoSignal(ev Evidence) Verdict {
	provider := SignalFromOutage(ev.Outage)
	v := Verdict{Provider: provider, Confidence: ConfidenceLow}
	pi, probe := ev.state(SensorPi), ev.state(SensorProbe)
	bothDown := pi == SensorDown && probe == SensorDown

	switch provider {
	case ProviderUp:
		v.SitePower = PowerUp
		if !bothDown {
			v.Confidence = ConfidenceHigh
		}
	case ProviderDown:
		v.SitePower = PowerDown
		switch {
		case bothDown:
			v.Confidence = ConfidenceHigh
		case pi == SensorUnknown || probe == SensorUnknown:
			v.Warnings = append(v.Warnings, "could not check pi or probe status, confidence defaults to low")
		}
	default:
		if ev.count(SensorUp, SensorPi, SensorProbe) > 0 {
			v.SitePower = PowerUp
			return v
		}
		return telemetryOnly(v, ev.count(SensorDown, SensorPi, SensorProbe))
	}
	return v
}

// telemetryOnly decides a verdict when the provider signal is missing and no
// telemetry signal reports Up.
func telemetryOnly(v Verdict, down int) Verdict {
	v.Confidence = ConfidenceLow
	if down > 0 {
		v.SitePower = PowerLikelyDown
		return v
	}
	v.SitePower = PowerUnknown
	return v
}
