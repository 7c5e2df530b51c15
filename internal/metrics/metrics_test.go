package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.JobReconciled(KindPackage, "created")
	m.JobReconciled(KindPackage, "created")
	m.JobReconciled(KindBuildconf, "updated")
	m.JobTriggered()
	m.JobPruned()
	m.Failure("render")
	m.ObserveRun(2 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobs.WithLabelValues(KindPackage, "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues(KindBuildconf, "updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.triggered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("render")))

	count, err := testutil.GatherAndCount(m.Registry(), "jobsync_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.JobReconciled(KindPackage, "created")
	m.JobTriggered()
	m.JobPruned()
	m.Failure("render")
	m.ObserveRun(time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Push(context.Background(), "http://127.0.0.1:0", "jobsync"))
}

func TestMetrics_Push(t *testing.T) {
	var (
		method string
		path   string
		body   string
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	m := New()
	m.JobTriggered()
	require.NoError(t, m.Push(context.Background(), gateway.URL, "jobsync"))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/jobsync", path)
	assert.NotEmpty(t, body)

	t.Run("gateway errors are reported", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer failing.Close()
		assert.Error(t, m.Push(context.Background(), failing.URL, "jobsync"))
	})
}
