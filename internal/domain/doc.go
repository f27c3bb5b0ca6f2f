// Package domain models the evidence gathered when deciding whether a site
// currently has electrical power.
//
// # Signal Sources
//
// A check combines three independent kinds of evidence:
//
//	Outage feeds      utility or state incident feeds, queried by point or region
//	Telemetry         PRTG ping and probe-health sensors, Meraki access points
//	Site directory    the site's address and coordinates
//
// Each source is unreliable on its own. A feed may be unreachable, return a
// payload with an unexpected shape, or simply not know about a fresh outage.
// Telemetry going dark can mean the site lost power or only lost its uplink.
//
// # Outage Feed Conventions
//
// CalOES power outage incidents (ArcGIS FeatureServer):
//
//	Point intersection query: geometry "<lon>,<lat>", inSR 4326.
//	Zero features means no reported outage at the point.
//	Epoch fields (StartDate, EstimatedRestoreDate) are milliseconds.
//	The OutageStatus attribute is dropped from the normalized record.
//
// PG&E outage regions:
//
//	The whole region list is returned; filtering happens client side.
//	Region names match the site's city exactly (case-sensitive).
//	Outage coordinates are compared as (longitude, latitude), in that order,
//	and must equal the site's stored values exactly.
//	Epoch fields (autoEtor, crewEta, currentEtor, lastUpdateTime,
//	outageStartTime) are seconds, sometimes encoded as strings.
//	The outageStatus field is dropped from the normalized record.
//
// # Telemetry Vocabulary
//
// PRTG status strings are classified by prefix:
//
//	"Up", "Unusual", "Warning"   reachable (Up)
//	"Down", "Down (Acknowledged)" unreachable (Down)
//	"Paused", anything else      Unknown
//
// Meraki device statuses "offline" and "dormant" are Down; any other reported
// status is Up.
//
// # Detail Record
//
// The flattened detail record posted to Opsgenie uses a fixed key vocabulary
// consumed by dashboards. See the Key* constants in detail.go.
package domain
