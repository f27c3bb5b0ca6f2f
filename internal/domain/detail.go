package domain

// Detail record keys. Dashboards read these names verbatim.
const (
	KeySiteName             = "SiteName"
	KeyPowerPrefix          = "Power_"
	KeyProviderStatus       = "Power_ProviderStatus"
	KeySitePower            = "Power_SitePower"
	KeySitePowerConfidence  = "Power_SitePowerConfidence"
	KeyPiStatus             = "PRTG_PiStatus"
	KeyProbeStatus          = "PRTG_ProbeStatus"
	KeyMerakiStatus         = "Cisco_MerakiStatus"
	KeyPowerCheckValidation = "PowerCheckValidation"
)

// DetailRecord is the flattened evidence of a check, posted to the incident
// as extra properties and returned to the caller.
type DetailRecord map[string]string

// DetailInput gathers what BuildDetailRecord needs.
type DetailInput struct {
	SiteName string
	Outage   *OutageRecord
	Sensors  map[SensorKind]SensorStatus
	Verdict  Verdict
	// AccessPointConfigured controls whether Cisco_MerakiStatus is emitted.
	AccessPointConfigured bool
}

// BuildDetailRecord merges the outage record (every field prefixed with
// "Power_"), the raw sensor statuses and the verdict into one record.
// Unresolved sensors are emitted as empty strings.
func BuildDetailRecord(in DetailInput) DetailRecord {
	d := DetailRecord{KeySiteName: in.SiteName}

	if in.Outage != nil {
		for k, v := range in.Outage.Map() {
			d[KeyPowerPrefix+k] = v
		}
	}

	d[KeyProviderStatus] = string(in.Verdict.Provider)
	d[KeySitePower] = string(in.Verdict.SitePower)
	d[KeySitePowerConfidence] = string(in.Verdict.Confidence)

	d[KeyPiStatus] = in.Sensors[SensorPi].Raw
	d[KeyProbeStatus] = in.Sensors[SensorProbe].Raw
	if in.AccessPointConfigured {
		d[KeyMerakiStatus] = merakiDisplay(in.Sensors[SensorAccessPoint])
	}

	d[KeyPowerCheckValidation] = ""
	return d
}

// merakiDisplay reports the access point as Up/Down rather than the raw
// dashboard status, matching what the incident dashboards expect.
func merakiDisplay(s SensorStatus) string {
	switch s.State {
	case SensorUp, SensorDown:
		return string(s.State)
	default:
		return ""
	}
}
