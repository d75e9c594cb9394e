package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/prereqgraph/pkg/observability"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.Prometheus())
	assert.NotNil(t, r.PipelineStageDuration)
	assert.NotNil(t, r.LayoutTicksTotal)
	assert.NotNil(t, r.SessionsActive)
	assert.NotNil(t, r.CacheRequestsTotal)
	assert.NotNil(t, r.HTTPRequestsTotal)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.OnTick(0.5, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.LayoutTicksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.LayoutTicksTotal))
}

func TestPipelineHooks(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.OnLoadComplete(ctx, "prereq.json", 42, time.Millisecond, nil)
	r.OnLevelComplete(ctx, 42, 6, 2, time.Millisecond)
	r.OnLayoutComplete(ctx, 300, time.Second, nil)
	r.OnRenderComplete(ctx, []string{"svg"}, time.Second, errors.New("boom"))

	assert.Equal(t, 42.0, testutil.ToFloat64(r.GraphNodes))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.GraphColumns))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.LevelFallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PipelineErrorsTotal.WithLabelValues("render")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.PipelineErrorsTotal.WithLabelValues("load")))
	assert.Equal(t, 4, testutil.CollectAndCount(r.PipelineStageDuration))
}

func TestLayoutHooks(t *testing.T) {
	r := NewRegistry()

	r.OnTick(0.9, time.Microsecond)
	r.OnTick(0.8, time.Microsecond)
	r.OnDrag("start")
	r.OnDrag("move")
	r.OnDrag("move")
	r.OnColumnChange("CSCI-2300", 1, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.LayoutTicksTotal))
	assert.InDelta(t, 0.8, testutil.ToFloat64(r.LayoutAlpha), 1e-9)
	assert.Equal(t, 2.0, testutil.ToFloat64(r.DragEventsTotal.WithLabelValues("move")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ColumnChangesTotal))
}

func TestSessionHooks(t *testing.T) {
	r := NewRegistry()

	r.OnSessionOpen("a", 10)
	r.OnSessionOpen("b", 10)
	r.OnSessionClose("a")
	r.OnStreamClient("b", 1)
	r.OnStreamClient("b", 1)
	r.OnStreamClient("b", -1)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SessionsOpenedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StreamClientsActive))
}

func TestCacheAndHTTPHooks(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.OnCacheHit(ctx, "dataset")
	r.OnCacheMiss(ctx, "dataset")
	r.OnCacheMiss(ctx, "dataset")
	r.OnCacheSet(ctx, "layout", 512)
	r.OnResponse(ctx, "GET", "localhost:3100", "/prereq/CSCI", 200, time.Millisecond)
	r.OnError(ctx, "GET", "localhost:3100", "/prereq/CSCI", errors.New("refused"))
	r.RecordHTTPRequest("POST", "/api/sessions", 201, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheRequestsTotal.WithLabelValues("dataset", "miss")))
	assert.Equal(t, 512.0, testutil.ToFloat64(r.CacheWrittenBytes.WithLabelValues("layout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UpstreamRequestsTotal.WithLabelValues("GET", "localhost:3100", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UpstreamErrorsTotal.WithLabelValues("GET", "localhost:3100")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("POST", "/api/sessions", "201")))
}

func TestInstall(t *testing.T) {
	defer observability.Reset()
	r := NewRegistry()
	r.Install()

	observability.Layout().OnDrag("end")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DragEventsTotal.WithLabelValues("end")))
	assert.Same(t, r, observability.Pipeline())
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.OnTick(0.5, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), "prereqgraph_layout_ticks_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
