package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("load", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.ObservePageRender(2 * time.Millisecond)
	pr.IncPageResult(ResultRendered)
	pr.IncPageResult(ResultRendered)
	pr.IncPageResult(ResultFailed)
	pr.IncBuildOutcome(OutcomeWarning)
	pr.IncPreviewRequest(http.StatusNotModified)
	pr.IncPreviewReload(true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	require.InDelta(t, 2, testutil.ToFloat64(pr.pageResults.WithLabelValues("rendered")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.pageResults.WithLabelValues("failed")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.requests.WithLabelValues("304")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.reloads.WithLabelValues("success")), 0)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.IncPageResult(ResultSkipped)
		pr.ObserveBuildDuration(time.Second)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome(OutcomeSuccess)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `pagebuilder_build_outcomes_total{outcome="success"} 1`))
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)
