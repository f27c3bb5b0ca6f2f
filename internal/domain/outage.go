package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PowerStatus is the normalized outage-feed status for a site.
type PowerStatus string

const (
	// PowerActive means the feed reports no outage covering the site.
	PowerActive PowerStatus = "Active"
	// PowerInactive means the feed reports an outage covering the site.
	PowerInactive PowerStatus = "Inactive"
)

// FieldPowerStatus is the record field holding the PowerStatus value.
const FieldPowerStatus = "PowerStatus"

// OutageRecord is a feed response normalized to one shape. Fields holds the
// provider's own attributes as display strings; they are preserved opaquely
// and prefixed with "Power_" once merged into a detail record.
type OutageRecord struct {
	PowerStatus PowerStatus
	Fields      map[string]string
}

// ActiveRecord is the record returned when no outage matches the site.
func ActiveRecord() OutageRecord {
	return OutageRecord{PowerStatus: PowerActive}
}

// Map returns the flat key/value view of the record, PowerStatus included.
func (r OutageRecord) Map() map[string]string {
	m := make(map[string]string, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[FieldPowerStatus] = string(r.PowerStatus)
	return m
}

// Site context fields merged into an outage record by WithSite.
const (
	FieldSiteName  = "SiteName"
	FieldAddress   = "Address"
	FieldLongitude = "Longitude"
	FieldLatitude  = "Latitude"
	FieldTime      = "Time"
)

// WithSite returns a copy of the record carrying the site's name, address,
// coordinates and the check time. Feed fields win over site fields of the
// same name; the check time always wins.
func (r OutageRecord) WithSite(site Site, checkedAt string) OutageRecord {
	fields := make(map[string]string, len(r.Fields)+5)
	fields[FieldSiteName] = site.Name
	fields[FieldAddress] = site.Address()
	if site.HasCoordinates() {
		fields[FieldLongitude] = trimFloat(site.Coords.Longitude)
		fields[FieldLatitude] = trimFloat(site.Coords.Latitude)
	}
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[FieldTime] = checkedAt
	return OutageRecord{PowerStatus: r.PowerStatus, Fields: fields}
}

// ProviderName selects an outage feed.
type ProviderName string

const (
	ProviderGIS ProviderName = "gis"
	ProviderPGE ProviderName = "pge"
)

// ParseProviderName accepts a provider name case-insensitively.
func ParseProviderName(s string) (ProviderName, error) {
	switch p := ProviderName(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGIS, ProviderPGE:
		return p, nil
	default:
		return "", fmt.Errorf("unknown outage provider %q", s)
	}
}

// OutageProvider queries one outage feed for a site. Implementations return
// ErrMissingPrecondition without calling the feed when the site lacks the
// fields they need.
type OutageProvider interface {
	Name() ProviderName
	OutageStatus(ctx context.Context, site Site) (OutageRecord, error)
}

// DisplayValue renders a decoded JSON value the way it is shown in a detail
// record: strings as-is, numbers without exponent, null as empty.
func DisplayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return trimFloat(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// NumberValue reads a JSON number that may arrive as a number or a numeric
// string. It reports false for null, empty and non-numeric values.
func NumberValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
