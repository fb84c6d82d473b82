package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/storefront"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRequest(http.MethodGet, "/orders/:id/", 200, 20*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "/orders/:id/", 200, 30*time.Millisecond)
	c.ObserveRequest(http.MethodGet, "/orders/:id/", 401, 5*time.Millisecond)

	requests := gather(t, reg, "storefront_requests_total")
	require.Len(t, requests, 2)
	for _, m := range requests {
		l := labels(m)
		assert.Equal(t, "GET", l["method"])
		assert.Equal(t, "/orders/:id/", l["route"])
		switch l["status_code"] {
		case "200":
			assert.Equal(t, 2.0, m.GetCounter().GetValue())
		case "401":
			assert.Equal(t, 1.0, m.GetCounter().GetValue())
		default:
			t.Errorf("unexpected status label %q", l["status_code"])
		}
	}

	latency := gather(t, reg, "storefront_request_duration_seconds")
	require.Len(t, latency, 1)
	assert.Equal(t, uint64(3), latency[0].GetHistogram().GetSampleCount())
}

func TestObserveRenewalAndReplay(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRenewal(storefront.RenewalSuccess, 100*time.Millisecond)
	c.ObserveRenewal(storefront.RenewalTimeout, 15*time.Second)
	c.IncReplay()
	c.IncReplay()

	renewals := gather(t, reg, "storefront_token_renewals_total")
	assert.Len(t, renewals, 2)

	replays := gather(t, reg, "storefront_request_replays_total")
	require.Len(t, replays, 1)
	assert.Equal(t, 2.0, replays[0].GetCounter().GetValue())
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.IncReplay()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_request_replays_total 1")
}
