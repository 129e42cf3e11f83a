package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAudit "github.com/negotiation-hub/negotiation-hub/internal/application/audit"
	appAuth "github.com/negotiation-hub/negotiation-hub/internal/application/auth"
	appLifecycle "github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	appNegotiation "github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	appNotification "github.com/negotiation-hub/negotiation-hub/internal/application/notification"
	appUser "github.com/negotiation-hub/negotiation-hub/internal/application/user"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/sse"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/telemetry"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	lifecycleSvc        *appLifecycle.Service
	negotiationSvc      *appNegotiation.Service
	notificationSvc     *appNotification.Service
	auditSvc            *appAudit.Service
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	sseHub              *sse.Hub
	metrics             *telemetry.Metrics
	limiter             *RateLimiter
	sessionCookieName   string
	sessionCookieSecure bool
	logger              zerolog.Logger
}

// Options carries the optional pieces of a Server.
type Options struct {
	Metrics             *telemetry.Metrics
	Limiter             *RateLimiter
	SessionCookieName   string
	SessionCookieSecure bool
	Logger              zerolog.Logger
}

func NewServer(
	lifecycleSvc *appLifecycle.Service,
	negotiationSvc *appNegotiation.Service,
	notificationSvc *appNotification.Service,
	auditSvc *appAudit.Service,
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	sseHub *sse.Hub,
	opts Options,
) *Server {
	return &Server{
		lifecycleSvc:        lifecycleSvc,
		negotiationSvc:      negotiationSvc,
		notificationSvc:     notificationSvc,
		auditSvc:            auditSvc,
		authSvc:             authSvc,
		userSvc:             userSvc,
		sseHub:              sseHub,
		metrics:             opts.Metrics,
		limiter:             opts.Limiter,
		sessionCookieName:   opts.SessionCookieName,
		sessionCookieSecure: opts.SessionCookieSecure,
		logger:              opts.Logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/bootstrap", s.bootstrapAdmin)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		// Long-lived stream, kept out of the request timeout.
		r.With(s.requireAuth).Get("/notifications/sse", s.sseEndpoint)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.requireAuth)

			r.Route("/negotiations", func(r chi.Router) {
				r.Post("/", s.createNegotiation)
				r.Get("/", s.listNegotiations)
				r.Route("/{negotiationId}", func(r chi.Router) {
					r.Get("/", s.getNegotiation)
					r.Get("/posts", s.listPosts)
					r.Get("/history", s.getHistory)

					r.Get("/lifecycle", s.getLifecycle)
					r.With(s.rateLimit).Put("/lifecycle/{event}", s.submitNegotiationEvent)

					r.Get("/resources/lifecycle", s.getResourceStates)
					r.Get("/resources/{resourceId}/lifecycle", s.getResourceLifecycle)
					r.With(s.rateLimit).Put("/resources/{resourceId}/lifecycle/{event}", s.submitResourceEvent)

					r.Group(func(r chi.Router) {
						r.Use(s.requireRole("ADMIN"))
						r.Post("/resources", s.attachResources)
						r.Put("/posts-enabled", s.setPostsEnabled)
						r.Post("/resources/{resourceId}/lifecycle", s.initializeResource)
					})
				})
			})

			r.Get("/notifications", s.listNotifications)
			r.Post("/notifications/{notificationId}/read", s.markNotificationRead)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireRole("ADMIN"))
				r.Get("/audit", s.queryAudit)
				r.Get("/audit/{auditId}", s.getAudit)
				r.Get("/audit/{auditId}/verify", s.verifyAudit)
				r.Get("/metrics", s.getMetrics)
				r.Get("/rules", s.getRules)

				r.Post("/users", s.createUser)
				r.Get("/users", s.listUsers)
				r.Get("/users/{userId}", s.getUser)
				r.Patch("/users/{userId}", s.updateUser)
				r.Put("/users/{userId}/resources", s.setUserResources)
				r.Put("/users/{userId}/password", s.setUserPassword)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeOptionalBody is decodeBody for endpoints whose body may be empty.
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeBody(r, v)
}

func contextFromRequest(r *http.Request) context.Context {
	return r.Context()
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := []string{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
