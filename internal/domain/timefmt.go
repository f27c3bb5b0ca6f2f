package domain

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// EpochUnit is the resolution of an epoch timestamp reported by a feed.
type EpochUnit int

const (
	Seconds EpochUnit = iota
	Milliseconds
)

// DefaultTimeFormat is used when no format is configured.
const DefaultTimeFormat = "%Y-%m-%d %H:%M:%S"

// TimeNormalizer renders feed timestamps in one configured zone and format.
type TimeNormalizer struct {
	loc    *time.Location
	layout *strftime.Strftime
}

// NewTimeNormalizer builds a normalizer for an IANA zone name and a strftime
// format. An empty zone means the system local zone; an empty format means
// DefaultTimeFormat.
func NewTimeNormalizer(zone, format string) (*TimeNormalizer, error) {
	loc := time.Local
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", zone, err)
		}
		loc = l
	}
	if format == "" {
		format = DefaultTimeFormat
	}
	layout, err := strftime.New(format)
	if err != nil {
		return nil, fmt.Errorf("parse time format %q: %w", format, err)
	}
	return &TimeNormalizer{loc: loc, layout: layout}, nil
}

// ToLocalTime formats an epoch value given in the stated unit. Milliseconds
// are truncated to whole seconds.
func (n *TimeNormalizer) ToLocalTime(epoch int64, unit EpochUnit) string {
	if unit == Milliseconds {
		epoch /= 1000
	}
	return n.Format(time.Unix(epoch, 0))
}

// Format renders t in the configured zone and format.
func (n *TimeNormalizer) Format(t time.Time) string {
	return n.layout.FormatString(t.In(n.loc))
}
