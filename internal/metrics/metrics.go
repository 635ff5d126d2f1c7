package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_commands_total",
			Help: "Natural-language commands interpreted, by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	ItemsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_items_added_total",
			Help: "Pantry items added, by source",
		},
		[]string{"source"},
	)

	ItemsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_items_removed_total",
			Help: "Pantry items removed, by source",
		},
		[]string{"source"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pantry_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	EventQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pantry_event_queue_depth",
			Help: "Pantry events waiting to be persisted",
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records the duration of every request served by next under the
// given route label.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
