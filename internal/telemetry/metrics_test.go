package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPRequestsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/stations", "200"))
	HTTPRequestsTotal.WithLabelValues("GET", "/api/stations", "200").Inc()
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/stations", "200"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestAuthAttemptsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(AuthAttemptsTotal.WithLabelValues("login", "rejected"))
	AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
	after := testutil.ToFloat64(AuthAttemptsTotal.WithLabelValues("login", "rejected"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestStationWritesTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(StationWritesTotal.WithLabelValues("create"))
	StationWritesTotal.WithLabelValues("create").Inc()
	after := testutil.ToFloat64(StationWritesTotal.WithLabelValues("create"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}
