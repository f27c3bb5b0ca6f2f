package domain

import (
	"context"
	"regexp"
)

// SensorKind names a telemetry dimension.
type SensorKind string

const (
	SensorPi          SensorKind = "pi"
	SensorProbe       SensorKind = "probe"
	SensorAccessPoint SensorKind = "access_point"
)

// SensorState is the tri-state reading of one telemetry dimension. Unknown is
// never treated as Down.
type SensorState string

const (
	SensorUp      SensorState = "Up"
	SensorDown    SensorState = "Down"
	SensorUnknown SensorState = "Unknown"
)

// SensorStatus is a classified reading plus the vendor's raw status text.
// Raw is empty when the source could not produce a single usable entity.
type SensorStatus struct {
	Kind  SensorKind
	State SensorState
	Raw   string
}

// UnknownSensor is the reading used whenever a source cannot be resolved.
func UnknownSensor(kind SensorKind) SensorStatus {
	return SensorStatus{Kind: kind, State: SensorUnknown}
}

var (
	upStatusRe   = regexp.MustCompile(`^(Up|Unusual|Warning)`)
	downStatusRe = regexp.MustCompile(`^Down`)
)

// ClassifyPRTGStatus maps a PRTG status string onto the tri-state vocabulary.
// Matching is case-sensitive and anchored at the start of the string.
func ClassifyPRTGStatus(status string) SensorState {
	switch {
	case upStatusRe.MatchString(status):
		return SensorUp
	case downStatusRe.MatchString(status):
		return SensorDown
	default:
		return SensorUnknown
	}
}

// ClassifyMerakiStatus maps a Meraki device status onto the tri-state
// vocabulary. An empty status is Unknown.
func ClassifyMerakiStatus(status string) SensorState {
	switch status {
	case "":
		return SensorUnknown
	case "offline", "dormant":
		return SensorDown
	default:
		return SensorUp
	}
}

// SensorQuery locates PRTG sensors by a fixed naming convention. Device and
// Group are substring filters; Name must match exactly.
type SensorQuery struct {
	Name   string
	Device string
	Group  string
}

// SensorEntry is one sensor row returned by the telemetry platform. Status is
// nil when the row has no status column.
type SensorEntry struct {
	ID     string
	Name   string
	Device string
	Status *string
}

// SensorSource queries the network monitoring platform.
type SensorSource interface {
	Sensors(ctx context.Context, q SensorQuery) ([]SensorEntry, error)
}

// Device is an access point as known to the wireless inventory.
type Device struct {
	Serial string
	Name   string
	MAC    string
}

// AccessPointInventory looks up access points and their reachability. Lookups
// that match nothing return ErrNotFound.
type AccessPointInventory interface {
	DeviceByMAC(ctx context.Context, mac string) (Device, error)
	DeviceByName(ctx context.Context, name string) (Device, error)
	DeviceStatus(ctx context.Context, serial string) (string, error)
}
