package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sensors(pi, probe, ap SensorState) map[SensorKind]SensorStatus {
	return map[SensorKind]SensorStatus{
		SensorPi:          {Kind: SensorPi, State: pi},
		SensorProbe:       {Kind: SensorProbe, State: probe},
		SensorAccessPoint: {Kind: SensorAccessPoint, State: ap},
	}
}

func outage(status PowerStatus) *OutageRecord {
	return &OutageRecord{PowerStatus: status}
}

const (
	up      = SensorUp
	down    = SensorDown
	unknown = SensorUnknown
)

func TestSignalFromOutage(t *testing.T) {
	assert.Equal(t, ProviderUp, SignalFromOutage(outage(PowerActive)))
	assert.Equal(t, ProviderDown, SignalFromOutage(outage(PowerInactive)))
	assert.Equal(t, ProviderUnknown, SignalFromOutage(nil))
	assert.Equal(t, ProviderUnknown, SignalFromOutage(outage("Restored")))
}

func TestReconcile_StrictMajority(t *testing.T) {
	tests := []struct {
		name       string
		outage     *OutageRecord
		pi, probe  SensorState
		ap         SensorState
		power      SitePower
		confidence Confidence
		tag        bool
	}{
		{"active with telemetry up", outage(PowerActive), up, unknown, unknown, PowerUp, ConfidenceHigh, false},
		{"inactive but access point up", outage(PowerInactive), down, down, up, PowerUp, ConfidenceHigh, false},
		{"active no telemetry", outage(PowerActive), unknown, unknown, unknown, PowerLikelyUp, ConfidenceLow, false},
		{"active telemetry down", outage(PowerActive), down, unknown, unknown, PowerLikelyDown, ConfidenceLow, false},
		{"inactive telemetry down", outage(PowerInactive), down, down, unknown, PowerDown, ConfidenceHigh, true},
		{"inactive one telemetry down", outage(PowerInactive), unknown, down, unknown, PowerDown, ConfidenceHigh, true},
		{"inactive no telemetry", outage(PowerInactive), unknown, unknown, unknown, PowerDown, ConfidenceLow, false},
		{"feed failed telemetry up", nil, up, down, unknown, PowerUp, ConfidenceHigh, false},
		{"feed failed telemetry down", nil, down, down, down, PowerLikelyDown, ConfidenceLow, false},
		{"feed failed no evidence", nil, unknown, unknown, unknown, PowerUnknown, ConfidenceLow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Reconcile(PolicyStrictMajority, Evidence{Outage: tt.outage, Sensors: sensors(tt.pi, tt.probe, tt.ap)})
			assert.Equal(t, tt.power, v.SitePower)
			assert.Equal(t, tt.confidence, v.Confidence)
			assert.Equal(t, tt.tag, v.Tag)
		})
	}
}

func TestReconcile_TwoSignal(t *testing.T) {
	tests := []struct {
		name       string
		outage     *OutageRecord
		pi, probe  SensorState
		power      SitePower
		confidence Confidence
		tag        bool
		warned     bool
	}{
		{"active both up", outage(PowerActive), up, up, PowerUp, ConfidenceHigh, false, false},
		{"active one down", outage(PowerActive), down, up, PowerUp, ConfidenceHigh, false, false},
		{"active unknowns", outage(PowerActive), unknown, unknown, PowerUp, ConfidenceHigh, false, false},
		{"active both down", outage(PowerActive), down, down, PowerUp, ConfidenceLow, false, false},
		{"inactive both down", outage(PowerInactive), down, down, PowerDown, ConfidenceHigh, true, false},
		{"inactive pi unknown", outage(PowerInactive), unknown, down, PowerDown, ConfidenceLow, false, true},
		{"inactive probe up", outage(PowerInactive), down, up, PowerDown, ConfidenceLow, false, false},
		{"feed failed pi up", nil, up, unknown, PowerUp, ConfidenceLow, false, false},
		{"feed failed both down", nil, down, down, PowerLikelyDown, ConfidenceLow, false, false},
		{"feed failed no evidence", nil, unknown, unknown, PowerUnknown, ConfidenceLow, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Reconcile(PolicyTwoSignal, Evidence{Outage: tt.outage, Sensors: sensors(tt.pi, tt.probe, unknown)})
			assert.Equal(t, tt.power, v.SitePower)
			assert.Equal(t, tt.confidence, v.Confidence)
			assert.Equal(t, tt.tag, v.Tag)
			assert.Equal(t, tt.warned, len(v.Warnings) > 0)
		})
	}
}

func TestReconcile_TwoSignalIgnoresAccessPoint(t *testing.T) {
	v := Reconcile(PolicyTwoSignal, Evidence{Outage: outage(PowerInactive), Sensors: sensors(down, down, up)})
	assert.Equal(t, PowerDown, v.SitePower)
	assert.True(t, v.Tag)
}

func TestReconcile_MissingSensorsAreUnknown(t *testing.T) {
	v := Reconcile(PolicyStrictMajority, Evidence{Outage: outage(PowerActive)})
	assert.Equal(t, PowerLikelyUp, v.SitePower)
	assert.Equal(t, ProviderUp, v.Provider)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Two-Signal")
	require.NoError(t, err)
	assert.Equal(t, PolicyTwoSignal, p)

	_, err = ParsePolicy("majority")
	require.Error(t, err)
}

func TestParseProviderName(t *testing.T) {
	p, err := ParseProviderName("PGE")
	require.NoError(t, err)
	assert.Equal(t, ProviderPGE, p)

	_, err = ParseProviderName("sce")
	require.Error(t, err)
}
