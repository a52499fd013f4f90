package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/FrameScene/internal/events"
	"github.com/AaronLay10/FrameScene/internal/version"
)

var (
	// requestsTotal counts API requests.
	// Labels: route (mux pattern), code (HTTP status)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framescene",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total API requests by route and status code",
	}, []string{"route", "code"})

	// requestDuration measures handler latency.
	// Labels: route
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "framescene",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route"})

	// validationsTotal counts /scenes/validate calls.
	// Labels: structural (pass, fail), interpreted (pass, fail)
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framescene",
		Name:      "validations_total",
		Help:      "Scene validations by structural and interpreted result",
	}, []string{"structural", "interpreted"})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "framescene",
		Name:      "events_total",
		Help:      "Total number of events emitted since startup",
	}, func() float64 { return float64(events.TotalCount()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "framescene",
		Name:      "ws_clients",
		Help:      "Number of active WebSocket client connections",
	}, func() float64 { return float64(events.SubscriberCount()) })

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "framescene",
		Name:      "ws_dropped_events_total",
		Help:      "Events not delivered to WebSocket clients whose queue was full",
	}, func() float64 { return float64(events.DroppedTotal()) })

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "framescene",
		Name:        "build_info",
		Help:        "Build information",
		ConstLabels: prometheus.Labels{"version": version.Version},
	}, func() float64 { return 1 })
)

var startTime = time.Now()

var _ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Namespace: "framescene",
	Name:      "uptime_seconds",
	Help:      "Number of seconds since the API started",
}, func() float64 { return time.Since(startTime).Seconds() })

func metricsHandler() http.Handler {
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

// instrument records request count and latency under route.
func instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
