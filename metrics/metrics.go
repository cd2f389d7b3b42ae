package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "metasearch_"

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	searchesTotal   *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	activeStreams   prometheus.Gauge
	chatToolCalls   *prometheus.CounterVec
)

// Init registers the application metrics
func Init() {
	registerOnce.Do(func() {
		searchesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "searches_total",
				Help: "Total trip searches by delivery mode and result",
			},
			[]string{"mode", "result"},
		)
		upstreamTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total upstream provider requests by provider and result",
			},
			[]string{"provider", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_request_seconds",
				Help:    "Upstream provider request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		)
		activeStreams = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_streams",
				Help: "Currently open SSE streams",
			},
		)
		chatToolCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chat_tool_calls_total",
				Help: "Chat tool executions by tool name",
			},
			[]string{"tool"},
		)

		prometheus.MustRegister(
			searchesTotal,
			upstreamTotal,
			upstreamLatency,
			activeStreams,
			chatToolCalls,
		)
	})
}

// Handler exposes the prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountSearch records one search by delivery mode ("batch" or "stream")
func CountSearch(mode, result string) {
	if searchesTotal == nil {
		return
	}
	searchesTotal.WithLabelValues(mode, result).Inc()
}

// ObserveUpstream records one provider call
func ObserveUpstream(provider string, elapsed time.Duration, err error) {
	if upstreamTotal == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	upstreamTotal.WithLabelValues(provider, result).Inc()
	upstreamLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// StreamOpened increments the open stream gauge
func StreamOpened() {
	if activeStreams != nil {
		activeStreams.Inc()
	}
}

// StreamClosed decrements the open stream gauge
func StreamClosed() {
	if activeStreams != nil {
		activeStreams.Dec()
	}
}

// CountToolCall records one chat tool execution
func CountToolCall(tool string) {
	if chatToolCalls == nil {
		return
	}
	chatToolCalls.WithLabelValues(tool).Inc()
}
