package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ChallengesIssued    prometheus.Counter
	AuthSuccesses       prometheus.Counter
	AuthFailures        *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
	IdentitiesCreated   prometheus.Counter
	CTypesRegistered    prometheus.Counter
	ClaimsSubmitted     prometheus.Counter
	ClaimsRejected      prometheus.Counter
	AttestationsIssued  prometheus.Counter
	AttestationsRevoked prometheus.Counter
	Verifications       *prometheus.CounterVec
	UpstreamFailures    *prometheus.CounterVec
	EndpointLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_challenges_issued_total",
			Help: "Total number of authentication challenges issued",
		}),
		AuthSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_auth_successes_total",
			Help: "Total number of successful challenge verifications",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certis_auth_failures_total",
			Help: "Total number of authentication failures, labeled by reason",
		}, []string{"reason"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "certis_active_sessions",
			Help: "Current number of active sessions",
		}),
		IdentitiesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_identities_created_total",
			Help: "Total number of identities created on first authentication",
		}),
		CTypesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_ctypes_registered_total",
			Help: "Total number of credential types registered",
		}),
		ClaimsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_claims_submitted_total",
			Help: "Total number of claims accepted",
		}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_claims_rejected_total",
			Help: "Total number of claims rejected by schema validation",
		}),
		AttestationsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_attestations_issued_total",
			Help: "Total number of attestations issued",
		}),
		AttestationsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certis_attestations_revoked_total",
			Help: "Total number of attestations revoked",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certis_verifications_total",
			Help: "Total number of attestation verifications, labeled by outcome",
		}, []string{"outcome"}),
		UpstreamFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certis_upstream_failures_total",
			Help: "Total number of signer/directory failures, labeled by collaborator",
		}, []string{"collaborator"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certis_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
