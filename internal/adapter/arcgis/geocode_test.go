package arcgis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/observability"
)

const testAddress = "2430 E Shields Ave, Fresno, CA 93726"

func testGeocoder(baseURL, token string, metrics *observability.Metrics) *Geocoder {
	return NewGeocoder(baseURL, token, 90, 5*time.Second, metrics, discardLogger())
}

func TestGeocoder_Success(t *testing.T) {
	srv := serveJSON(t, `{"candidates":[
		{"address":"2430 E Shields Ave, Fresno, California, 93726","location":{"x":-119.7826,"y":36.7803},"score":100},
		{"address":"Shields Ave, Fresno","location":{"x":-119.7,"y":36.7},"score":80}
	]}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, testAddress, q.Get("SingleLine"))
		assert.Equal(t, "tok", q.Get("token"))
		assert.Equal(t, "json", q.Get("f"))
	})
	metrics := observability.NewMetricsForTesting()

	result, err := testGeocoder(srv.URL, "tok", metrics).Geocode(context.Background(), testAddress)
	require.NoError(t, err)

	assert.True(t, result.Found())
	assert.InDelta(t, -119.7826, result.Coords.Longitude, 1e-9)
	assert.InDelta(t, 36.7803, result.Coords.Latitude, 1e-9)
	assert.InDelta(t, 100.0, result.Score, 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")), 0)
}

func TestGeocoder_AnonymousOmitsToken(t *testing.T) {
	srv := serveJSON(t, `{"candidates":[]}`, func(r *http.Request) {
		assert.False(t, r.URL.Query().Has("token"))
	})

	_, err := testGeocoder(srv.URL, "", observability.NewMetricsForTesting()).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
}

func TestGeocoder_BelowMinScore(t *testing.T) {
	srv := serveJSON(t, `{"candidates":[{"address":"Fresno, California","location":{"x":-119.79,"y":36.74},"score":72.5}]}`, nil)
	metrics := observability.NewMetricsForTesting()

	result, err := testGeocoder(srv.URL, "", metrics).Geocode(context.Background(), testAddress)
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("empty")), 0)
}

func TestGeocoder_NoCandidates(t *testing.T) {
	srv := serveJSON(t, `{"candidates":[]}`, nil)

	result, err := testGeocoder(srv.URL, "", observability.NewMetricsForTesting()).Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Equal(t, domain.GeocodingResult{}, result)
}

func TestGeocoder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":498,"message":"Invalid token"}}`))
	}))
	defer srv.Close()
	metrics := observability.NewMetricsForTesting()

	_, err := testGeocoder(srv.URL, "bad", metrics).Geocode(context.Background(), testAddress)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("error")), 0)
}
