// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services and translate domain errors into the JSON error envelope; no
// business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certis/internal/platform/health"
	"certis/internal/platform/metrics"
	"certis/internal/platform/middleware"
)

// Handler bundles the domain services behind the HTTP surface.
type Handler struct {
	authn        AuthnService
	ctypes       CTypeService
	claims       ClaimService
	attestations AttestationService
	identities   IdentityAdmin
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewHandler constructs the HTTP handler set.
func NewHandler(
	authn AuthnService,
	ctypes CTypeService,
	claims ClaimService,
	attestations AttestationService,
	identities IdentityAdmin,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		authn:        authn,
		ctypes:       ctypes,
		claims:       claims,
		attestations: attestations,
		identities:   identities,
		logger:       logger,
		metrics:      m,
	}
}

// RouterConfig carries the transport-level knobs the router needs.
type RouterConfig struct {
	AuthRateLimit float64
	AuthRateBurst int
	Environment   string
}

// NewRouter wires every endpoint with the middleware stack. Authentication
// endpoints are rate limited per client host; everything mutating domain state
// sits behind the bearer-session middleware.
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(latency(h.metrics))

	healthHandler := health.New(cfg.Environment)
	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Use(middleware.ContentTypeJSON)
		r.Post("/challenge", h.HandleIssueChallenge)
		r.Post("/verify", h.HandleVerifyResponse)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.authn, logger))

		r.With(middleware.ContentTypeJSON).Post("/ctypes", h.HandleRegisterCType)
		r.Get("/ctypes/{id}", h.HandleGetCType)

		r.With(middleware.ContentTypeJSON).Post("/claims", h.HandleSubmitClaim)
		r.Get("/claims/{id}", h.HandleGetClaim)

		r.With(middleware.ContentTypeJSON).Post("/attestations", h.HandleAttest)
		r.Post("/attestations/{id}/revoke", h.HandleRevokeAttestation)
		r.Get("/attestations/{id}/verify", h.HandleVerifyAttestation)

		r.With(middleware.ContentTypeJSON).Post("/admin/identities/{did}/roles", h.HandleAssignRole)
		r.Post("/admin/identities/{did}/deactivate", h.HandleDeactivateIdentity)
	})

	return r
}

// latency records per-endpoint request duration using the chi route pattern,
// so path parameters do not explode the label cardinality.
func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			next.ServeHTTP(w, r)
			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.EndpointLatency.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
		})
	}
}
