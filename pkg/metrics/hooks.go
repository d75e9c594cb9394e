package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/observability"
)

var (
	_ observability.PipelineHooks = (*Registry)(nil)
	_ observability.LayoutHooks   = (*Registry)(nil)
	_ observability.SessionHooks  = (*Registry)(nil)
	_ observability.CacheHooks    = (*Registry)(nil)
	_ observability.HTTPHooks     = (*Registry)(nil)
)

func (r *Registry) stage(name string, d time.Duration, err error) {
	r.PipelineStageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		r.PipelineErrorsTotal.WithLabelValues(name).Inc()
	}
}

func (r *Registry) OnLoadStart(context.Context, string) {}

func (r *Registry) OnLoadComplete(_ context.Context, _ string, nodeCount int, d time.Duration, err error) {
	r.stage("load", d, err)
	if err == nil {
		r.GraphNodes.Set(float64(nodeCount))
	}
}

func (r *Registry) OnLevelComplete(_ context.Context, _, columns, fallbacks int, d time.Duration) {
	r.stage("level", d, nil)
	r.GraphColumns.Set(float64(columns))
	r.LevelFallbacksTotal.Add(float64(fallbacks))
}

func (r *Registry) OnLayoutStart(context.Context, int) {}

func (r *Registry) OnLayoutComplete(_ context.Context, ticks int, d time.Duration, err error) {
	r.stage("layout", d, err)
	if err == nil {
		r.LayoutTicksToSettle.Observe(float64(ticks))
	}
}

func (r *Registry) OnRenderStart(context.Context, []string) {}

func (r *Registry) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	r.stage("render", d, err)
}

func (r *Registry) OnTick(alpha float64, d time.Duration) {
	r.LayoutTicksTotal.Inc()
	r.LayoutTickDuration.Observe(d.Seconds())
	r.LayoutAlpha.Set(alpha)
}

func (r *Registry) OnDrag(phase string) {
	r.DragEventsTotal.WithLabelValues(phase).Inc()
}

func (r *Registry) OnColumnChange(string, int, int) {
	r.ColumnChangesTotal.Inc()
}

func (r *Registry) OnSessionOpen(string, int) {
	r.SessionsOpenedTotal.Inc()
	r.SessionsActive.Inc()
}

func (r *Registry) OnSessionClose(string) {
	r.SessionsActive.Dec()
}

func (r *Registry) OnStreamClient(_ string, delta int) {
	r.StreamClientsActive.Add(float64(delta))
}

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheRequestsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheRequestsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheWrittenBytes.WithLabelValues(keyType).Add(float64(size))
}

func (r *Registry) OnRequest(context.Context, string, string, string) {}

func (r *Registry) OnResponse(_ context.Context, method, host, _ string, status int, d time.Duration) {
	r.UpstreamRequestsTotal.WithLabelValues(method, host, strconv.Itoa(status)).Inc()
	r.UpstreamRequestDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (r *Registry) OnError(_ context.Context, method, host, _ string, _ error) {
	r.UpstreamErrorsTotal.WithLabelValues(method, host).Inc()
}

// RecordHTTPRequest records a request served by the API.
func (r *Registry) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
