// Package metrics provides prometheus instrumentation for badgehub processes
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the process metric instruments
// all methods are safe on a nil receiver so callers may skip wiring
type Recorder struct {
	httpRequests *prom.CounterVec
	httpDuration *prom.HistogramVec

	assertionsIssued  prom.Counter
	assertionsRevoked prom.Counter
	badgesImported    *prom.CounterVec
	emailsSent        *prom.CounterVec
	eventsFlushed     prom.Counter
	jobRuns           *prom.CounterVec
}

// New constructs and registers the badgehub instruments on reg
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "badgehub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method"}),
		assertionsIssued: prom.NewCounter(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "assertions_issued_total",
			Help:      "Badge instances awarded",
		}),
		assertionsRevoked: prom.NewCounter(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "assertions_revoked_total",
			Help:      "Badge instances revoked",
		}),
		badgesImported: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "badges_imported_total",
			Help:      "Backpack imports by outcome",
		}, []string{"outcome"}),
		emailsSent: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "emails_sent_total",
			Help:      "Notification emails by kind and outcome",
		}, []string{"kind", "outcome"}),
		eventsFlushed: prom.NewCounter(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "events_flushed_total",
			Help:      "Badge events flushed to the analytics sink",
		}),
		jobRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "badgehub",
			Name:      "job_runs_total",
			Help:      "Scheduler job runs by job and outcome",
		}, []string{"job", "outcome"}),
	}
	reg.MustRegister(
		r.httpRequests, r.httpDuration,
		r.assertionsIssued, r.assertionsRevoked,
		r.badgesImported, r.emailsSent, r.eventsFlushed, r.jobRuns,
	)
	return r
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method string, status int, d time.Duration) {
	if r == nil || r.httpRequests == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncAssertionIssued counts one awarded badge instance
func (r *Recorder) IncAssertionIssued() {
	if r == nil || r.assertionsIssued == nil {
		return
	}
	r.assertionsIssued.Inc()
}

// IncAssertionRevoked counts one revocation
func (r *Recorder) IncAssertionRevoked() {
	if r == nil || r.assertionsRevoked == nil {
		return
	}
	r.assertionsRevoked.Inc()
}

// IncImport counts one backpack import by outcome (stored, duplicate, invalid)
func (r *Recorder) IncImport(outcome string) {
	if r == nil || r.badgesImported == nil {
		return
	}
	r.badgesImported.WithLabelValues(outcome).Inc()
}

// IncEmail counts one notification email by kind and outcome
func (r *Recorder) IncEmail(kind string, ok bool) {
	if r == nil || r.emailsSent == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	r.emailsSent.WithLabelValues(kind, outcome).Inc()
}

// AddEventsFlushed counts events flushed to the sink
func (r *Recorder) AddEventsFlushed(n int) {
	if r == nil || r.eventsFlushed == nil || n <= 0 {
		return
	}
	r.eventsFlushed.Add(float64(n))
}

// IncJobRun counts one scheduler job run by outcome
func (r *Recorder) IncJobRun(job string, ok bool) {
	if r == nil || r.jobRuns == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "success"
	}
	r.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Middleware instruments handlers with request count and latency
func Middleware(r *Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r == nil {
				next.ServeHTTP(w, req)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, req)
			r.ObserveHTTP(req.Method, ww.Status(), time.Since(start))
		})
	}
}

// Handler serves the registry in prometheus exposition format
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
