// Package metrics exposes the auth service's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login and refresh outcomes, used as the "outcome" label.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeInactive           = "account_inactive"
	OutcomeRateLimited        = "rate_limited"
	OutcomeError              = "error"
)

// Recorder is what the HTTP handlers report to.
type Recorder interface {
	RecordLogin(outcome string, d time.Duration)
	RecordRefresh(outcome string)
	RecordLogout(outcome string)
	RecordTokensIssued(kind string, n int)
}

type Collector struct {
	logins       *prometheus.CounterVec
	loginLatency prometheus.Histogram
	refreshes    *prometheus.CounterVec
	logouts      *prometheus.CounterVec
	issued       *prometheus.CounterVec
}

// NewCollector registers the auth metrics on reg. counters reports the
// number of live failed-attempt counters; it may be nil.
func NewCollector(reg prometheus.Registerer, counters func() int) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_login_duration_seconds",
			Help:    "Time spent handling a login, hash verification included.",
			Buckets: prometheus.DefBuckets,
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logout_total",
			Help: "Refresh token revocations by outcome.",
		}, []string{"outcome"}),
		issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Signed tokens issued by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.logins, c.loginLatency, c.refreshes, c.logouts, c.issued)

	if counters != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "auth_ratelimit_counters",
			Help: "Failed-attempt counters tracked in memory, expired or not until swept.",
		}, func() float64 { return float64(counters()) }))
	}

	return c
}

func (c *Collector) RecordLogin(outcome string, d time.Duration) {
	c.logins.WithLabelValues(outcome).Inc()
	c.loginLatency.Observe(d.Seconds())
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogout(outcome string) {
	c.logouts.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTokensIssued(kind string, n int) {
	c.issued.WithLabelValues(kind).Add(float64(n))
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type discard struct{}

func (discard) RecordLogin(string, time.Duration) {}
func (discard) RecordRefresh(string)              {}
func (discard) RecordLogout(string)               {}
func (discard) RecordTokensIssued(string, int)    {}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}
