// Package bootstrap composes the LandAI application layers from configuration.
package bootstrap

import (
	"context"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"landai/app/internal/data/database"
	"landai/app/internal/data/migrations"
	pagedata "landai/app/internal/data/pages"
	userdata "landai/app/internal/data/users"
	"landai/app/internal/domain/identity"
	"landai/app/internal/domain/pages"
	"landai/app/internal/infrastructure/auth"
	"landai/app/internal/infrastructure/htmlsafe"
	"landai/app/internal/infrastructure/llm/openai"
	"landai/app/internal/platform/config"
	"landai/app/internal/platform/notify"
	"landai/app/internal/platform/ratelimit"
	"landai/app/internal/platform/validation"
	presentationhttp "landai/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	PageService     pages.Service
	IdentityService identity.Service
	HTTPServer      *presentationhttp.Server
	Database        *gorm.DB
	Cleanup         func() error
}

const notificationSweepInterval = time.Minute

// Build composes the LandAI application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	db, err := database.Open(database.Options{Path: cfg.DBPath, Logger: deps.Logger})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	var stops []func()
	closeOnError := func(wrapper error) (Result, error) {
		for _, stop := range stops {
			stop()
		}
		if closeErr := database.Close(db); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.Migrate(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running migrations"))
	}

	pageRepo, err := pagedata.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page repository"))
	}

	userRepo, err := userdata.NewRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating user repository"))
	}

	tokens, err := newTokenService(cfg)
	if err != nil {
		return closeOnError(err)
	}

	validator := validation.New()

	identityService, err := identity.NewService(identity.ServiceOptions{
		Repository: userRepo,
		Tokens:     tokens,
		Passwords:  auth.Argon2Hasher{},
		Validator:  validator,
		Logger:     deps.Logger,
		SentryHub:  deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating identity service"))
	}

	if len(cfg.LLMModels) == 0 {
		return closeOnError(eris.New("LLM_MODELS must include at least one model name"))
	}

	client, err := openai.NewClient(openai.ClientOptions{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMEndpoint,
		Logger:  deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating llm client"))
	}

	if deps.Logger != nil {
		deps.Logger.WithFields(logrus.Fields{"base_url": client.BaseURL(), "model": cfg.LLMModels[0]}).Info("llm client configured")
	}

	generator, err := openai.NewGenerator(openai.GeneratorOptions{
		Client: client,
		Model:  cfg.LLMModels[0],
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising llm generator"))
	}

	publisher, err := pages.NewPublisher(pages.PublisherOptions{
		Repository:  pageRepo,
		Origin:      cfg.SiteOrigin,
		PathRouting: !cfg.PublicURLFragment,
		Logger:      deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating publisher"))
	}

	generationLimiter := ratelimit.PerMinute(cfg.Generation.PerMinute, cfg.Generation.Burst, cfg.RateLimit.ClientTTL)
	stops = append(stops, generationLimiter.Stop)

	var sanitizer pages.Sanitizer
	if cfg.PublicSanitizeHTML {
		sanitizer = htmlsafe.New()
	}

	pageService, err := pages.NewService(pages.ServiceOptions{
		Repository:        pageRepo,
		Generator:         generator,
		Publisher:         publisher,
		Limiter:           generationLimiter,
		Sanitizer:         sanitizer,
		Validator:         validator,
		GenerationTimeout: cfg.GenerationTimeout,
		StoreTimeout:      cfg.StoreTimeout,
		Logger:            deps.Logger,
		SentryHub:         deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page service"))
	}

	notifications := notify.NewQueue(cfg.NotificationTTL)
	notifications.StartSweeper(notificationSweepInterval)
	stops = append(stops, notifications.Stop)

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		PageService:     pageService,
		IdentityService: identityService,
		Notifications:   notifications,
		Database:        db,
		Logger:          deps.Logger,
		SentryHub:       deps.SentryHub,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
			TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		},
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		generationLimiter.Stop()
		notifications.Stop()
		return database.Close(db)
	}

	return Result{
		PageService:     pageService,
		IdentityService: identityService,
		HTTPServer:      httpServer,
		Database:        db,
		Cleanup:         cleanup,
	}, nil
}

// newTokenService uses AUTH_TOKEN_KEY when set, otherwise a key persisted next to the database.
func newTokenService(cfg config.Config) (*auth.TokenService, error) {
	if cfg.AuthTokenKey != "" {
		tokens, err := auth.NewTokenService(cfg.AuthTokenKey, cfg.AuthTokenTTL)
		if err != nil {
			return nil, eris.Wrap(err, "creating token service")
		}
		return tokens, nil
	}

	key, err := auth.LoadOrGenerateKey(filepath.Dir(cfg.DBPath))
	if err != nil {
		return nil, eris.Wrap(err, "loading auth key")
	}

	tokens, err := auth.NewTokenServiceFromBytes(key, cfg.AuthTokenTTL)
	if err != nil {
		return nil, eris.Wrap(err, "creating token service")
	}
	return tokens, nil
}
