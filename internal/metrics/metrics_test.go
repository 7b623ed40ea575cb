package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testmgr/internal/domain"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// value returns the value of the metric name whose labels include labels.
func value(t *testing.T, m *Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !hasLabels(metric, labels) {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, labels []string) bool {
	for i := 0; i+1 < len(labels); i += 2 {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == labels[i] && lp.GetValue() == labels[i+1] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestMetrics_Recorder(t *testing.T) {
	m := New()
	m.RunStarted("run-1", 3)
	assert.Equal(t, 1.0, value(t, m, "testmgr_run_in_progress"))
	assert.Equal(t, 3.0, value(t, m, "testmgr_queued_tests"))

	m.TestFinished(domain.TestRecord{ID: "S.A", Status: domain.StatusPassed, Duration: 10 * time.Millisecond, Frames: 2})
	m.TestFinished(domain.TestRecord{ID: "S.B", Status: domain.StatusFailed, Duration: time.Millisecond, Frames: 1})
	assert.Equal(t, 1.0, value(t, m, "testmgr_queued_tests"))
	assert.Equal(t, 1.0, value(t, m, "testmgr_tests_total", "status", "passed"))
	assert.Equal(t, 1.0, value(t, m, "testmgr_tests_total", "status", "failed"))

	require.NoError(t, m.Report(domain.RunReport{Meta: domain.RunMeta{Outcome: domain.OutcomeStopped, FailedTests: 1}}))
	assert.Equal(t, 0.0, value(t, m, "testmgr_run_in_progress"))
	assert.Equal(t, 0.0, value(t, m, "testmgr_queued_tests"))
	assert.Equal(t, 1.0, value(t, m, "testmgr_runs_total", "outcome", "stopped"))
	assert.Equal(t, 1.0, value(t, m, "testmgr_last_run_failed_tests"))
}

func TestMetrics_Independent(t *testing.T) {
	a, b := New(), New()
	a.TestFinished(domain.TestRecord{Status: domain.StatusPassed})
	assert.Equal(t, 0.0, value(t, b, "testmgr_tests_total", "status", "passed"))
}

func TestServer_Routes(t *testing.T) {
	m := New()
	m.TestFinished(domain.TestRecord{Status: domain.StatusPassed})

	status := func() any { return map[string]bool{"running": true} }
	lookup := func(id string) (any, bool) {
		if id == "Suite.A" {
			return map[string]string{"id": id, "result": "pass"}, true
		}
		return nil, false
	}
	srv := httptest.NewServer(NewServer(m, status, lookup, quietLogger()).Router())
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `testmgr_tests_total{status="passed"} 1`)

	code, body = get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "ok")

	code, body = get("/status")
	assert.Equal(t, http.StatusOK, code)
	var st map[string]bool
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.True(t, st["running"])

	code, body = get("/tests/Suite.A")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"result":"pass"`)

	code, _ = get("/tests/Suite.Missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer(New(), nil, nil, quietLogger())
	addr, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, err = http.Get("http://" + addr + "/status")
	assert.Error(t, err)
	assert.False(t, strings.HasPrefix(addr, ":"))
}
