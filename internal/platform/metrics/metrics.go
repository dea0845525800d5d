package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	payrollGenerated *prometheus.CounterVec
	leaveDecisions   *prometheus.CounterVec
	attendanceEvents *prometheus.CounterVec

	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
}

// New builds a collector backed by its own registry so tests can create
// several without duplicate registration panics.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workzen",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workzen",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		payrollGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workzen",
			Name:      "payroll_generations_total",
			Help:      "Payroll generation attempts by outcome.",
		}, []string{"outcome"}),
		leaveDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workzen",
			Name:      "leave_decisions_total",
			Help:      "Leave request transitions by resulting status.",
		}, []string{"status"}),
		attendanceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workzen",
			Name:      "attendance_events_total",
			Help:      "Attendance check-ins and check-outs.",
		}, []string{"event"}),
	}
	reg.MustRegister(
		c.requests,
		c.duration,
		c.payrollGenerated,
		c.leaveDecisions,
		c.attendanceEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.RecordRoute("", "", status, duration)
}

func (c *Collector) RecordRoute(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == http.StatusTooManyRequests {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))

	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) PayrollGenerated(outcome string) {
	if c == nil {
		return
	}
	c.payrollGenerated.WithLabelValues(outcome).Inc()
}

func (c *Collector) LeaveDecided(status string) {
	if c == nil {
		return
	}
	c.leaveDecisions.WithLabelValues(status).Inc()
}

func (c *Collector) AttendanceEvent(event string) {
	if c == nil {
		return
	}
	c.attendanceEvents.WithLabelValues(event).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      errs,
		"rateLimitedTotal": limited,
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
	}
}
