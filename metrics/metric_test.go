package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExecMetrics(t *testing.T) {
	ExecCounter.WithLabelValues("zlog", "seal", "ok").Inc()
	ExecCounter.WithLabelValues("zlog", "seal", "ok").Inc()
	require.Equal(t, float64(2), testutil.ToFloat64(ExecCounter.WithLabelValues("zlog", "seal", "ok")))

	ExecDuration.WithLabelValues("zlog", "seal").Observe(0.001)
	ExecBytes.WithLabelValues("zlog", "in").Add(10)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "zlog_objclass_exec_total"))
	require.True(t, strings.Contains(body, "zlog_objclass_exec_duration_seconds"))
}
