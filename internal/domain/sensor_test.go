package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPRTGStatus(t *testing.T) {
	tests := []struct {
		status string
		want   SensorState
	}{
		{"Up", SensorUp},
		{"Unusual", SensorUp},
		{"Warning", SensorUp},
		{"Down", SensorDown},
		{"Down (Acknowledged)", SensorDown},
		{"Down (Partial)", SensorDown},
		{"Paused (paused by user)", SensorUnknown},
		{"Unknown", SensorUnknown},
		{"up", SensorUnknown},
		{"down", SensorUnknown},
		{"", SensorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPRTGStatus(tt.status))
		})
	}
}

func TestClassifyMerakiStatus(t *testing.T) {
	assert.Equal(t, SensorUp, ClassifyMerakiStatus("online"))
	assert.Equal(t, SensorUp, ClassifyMerakiStatus("alerting"))
	assert.Equal(t, SensorDown, ClassifyMerakiStatus("offline"))
	assert.Equal(t, SensorDown, ClassifyMerakiStatus("dormant"))
	assert.Equal(t, SensorUnknown, ClassifyMerakiStatus(""))
}
