package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. A nil *Metrics discards observations.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	marks        *prometheus.CounterVec
	occupancy    *prometheus.CounterVec
	corrections  prometheus.Counter
	jobs         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hostel",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel",
			Name:      "attendance_marks_total",
			Help:      "Attendance marks by status and whether a record was created or updated.",
		}, []string{"status", "outcome"}),
		occupancy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel",
			Name:      "occupancy_adjustments_total",
			Help:      "Room occupancy counter adjustments by direction and result.",
		}, []string{"direction", "result"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hostel",
			Name:      "occupancy_recount_corrections_total",
			Help:      "Rooms whose occupancy counter was corrected by a recount.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostel",
			Name:      "jobs_processed_total",
			Help:      "Background jobs by type and result.",
		}, []string{"type", "result"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.marks, m.occupancy, m.corrections, m.jobs)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMark(status, outcome string) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(status, outcome).Inc()
}

// ObserveOccupancy records one counter adjustment; delta > 0 is an increment.
func (m *Metrics) ObserveOccupancy(delta int, err error) {
	if m == nil {
		return
	}
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	m.occupancy.WithLabelValues(direction, result(err)).Inc()
}

func (m *Metrics) AddCorrections(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.corrections.Add(float64(n))
}

func (m *Metrics) ObserveJob(kind string, err error) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
