package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairshare_runs_total",
			Help: "Assignment engine runs by outcome.",
		},
		[]string{"outcome"},
	)

	ConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fairshare_conflicts_total",
		Help: "Write races lost during engine runs, including retried ones.",
	})

	BusyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fairshare_busy_total",
		Help: "Runs rejected because the write lock was not acquired in time.",
	})

	AssignmentsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fairshare_assignments_written_total",
		Help: "Assignments persisted across all runs.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairshare_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairshare_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		RunsTotal, ConflictsTotal, BusyTotal, AssignmentsWritten,
		httpRequestsTotal, httpRequestDuration,
	)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an HTTP handler with request count and latency
// metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
	})
}
