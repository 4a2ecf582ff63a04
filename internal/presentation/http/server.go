// Package http exposes the LandAI JSON API, the public page viewer and the
// landing shell through Huma on a standard library mux.
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"landai/app/internal/domain/identity"
	"landai/app/internal/domain/pages"
	"landai/app/internal/platform/idempotency"
	"landai/app/internal/platform/notify"
	"landai/app/internal/platform/ratelimit"
)

// Options configures the HTTP server wiring.
type Options struct {
	PageService     pages.Service
	IdentityService identity.Service
	Notifications   *notify.Queue
	Database        *gorm.DB
	Logger          *logrus.Logger
	SentryHub       *sentry.Hub
	RateLimiter     RateLimiterSettings
	// Limiter overrides the per-client limiter built from RateLimiter.
	Limiter        RequestLimiter
	IdempotencyTTL time.Duration
}

// RateLimiterSettings configures the per-client request limiter.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
	// TrustProxyHeaders keys clients by forwarded headers instead of the peer address.
	TrustProxyHeaders bool
}

// RequestLimiter decides whether a client may issue another request.
type RequestLimiter interface {
	Allow(key string) bool
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api           huma.API
	mux           *stdhttp.ServeMux
	pages         pages.Service
	identity      identity.Service
	notifications *notify.Queue
	idempotency   *idempotency.Cache
	db            *gorm.DB
	logger        *logrus.Logger
	sentry        *sentry.Hub
	rateLimiter   RequestLimiter
	stopLimiter   func()
	trustProxy    bool
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.PageService == nil {
		return nil, eris.New("page service is required")
	}
	if opts.IdentityService == nil {
		return nil, eris.New("identity service is required")
	}

	notifications := opts.Notifications
	if notifications == nil {
		notifications = notify.NewQueue(notify.DefaultTTL)
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("LandAI", "1.0.0")
	config.Info.Description = "Generate, edit and publish AI-written landing pages."

	api := humago.New(mux, config)

	srv := &Server{
		api:           api,
		mux:           mux,
		pages:         opts.PageService,
		identity:      opts.IdentityService,
		notifications: notifications,
		idempotency:   idempotency.New(opts.IdempotencyTTL),
		db:            opts.Database,
		logger:        opts.Logger,
		sentry:        opts.SentryHub,
		stopLimiter:   func() {},
		trustProxy:    opts.RateLimiter.TrustProxyHeaders,
	}

	if opts.Limiter != nil {
		srv.rateLimiter = opts.Limiter
	} else {
		settings := opts.RateLimiter
		if settings.Burst <= 0 {
			return nil, eris.New("rate limiter burst must be greater than zero")
		}
		if settings.RequestsPerSecond <= 0 {
			return nil, eris.New("rate limiter requests per second must be greater than zero")
		}
		if settings.ClientTTL <= 0 {
			return nil, eris.New("rate limiter client TTL must be greater than zero")
		}

		limiter := ratelimit.New(settings.RequestsPerSecond, settings.Burst, settings.ClientTTL)
		srv.rateLimiter = limiter
		srv.stopLimiter = limiter.Stop
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.stopLimiter()
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
		s.authMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("GET /favicon.svg", faviconHandler)

	s.registerStaticRoute()

	s.registerHomeRoute()
	s.registerPublicPageRoute()
	s.registerHealthRoute()

	s.registerAuthRoutes()
	s.registerPageRoutes()
	s.registerNotificationRoutes()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
