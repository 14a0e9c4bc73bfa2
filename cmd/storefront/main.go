package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/config"
	"storefront/internal/content"
	"storefront/internal/events"
	"storefront/internal/geocode"
	"storefront/internal/handler"
	"storefront/internal/notify"
	"storefront/internal/router"
	"storefront/internal/session"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs server-side sessions and the geocode cache when configured
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			if cfg.Session.Backend == "redis" {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			logger.Warn().Err(err).Msg("redis unavailable, geocode cache disabled")
			rdb = nil
		}
	}

	// Session store
	sessionOpts := session.Options{
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
		MaxAge: int(cfg.Session.MaxAge / time.Second),
	}
	var sessionStore sessions.Store
	if cfg.Session.Backend == "redis" {
		sessionStore = session.NewRedisStore(rdb, "storefront:session:", sessionOpts, logger, cfg.Session.AuthKey)
		logger.Info().Msg("using redis session store")
	} else {
		sessionStore = session.NewCookieStore(cfg.Session.AuthKey, sessionOpts)
		logger.Info().Msg("using cookie session store")
	}

	// Home page content with S3 and local fallback
	provider := content.NewProvider(newContentLoader(ctx, cfg, logger), cfg.Checkout.ContentFile, logger)
	if err := provider.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to load home content, using defaults")
	}

	// Storefront events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 256, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	// Address autocompletion
	var cache geocode.Cache
	if rdb != nil {
		cache = geocode.NewRedisCache(rdb)
	}
	geocoder := geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, nil, cache, cfg.Geocode.CacheTTL, logger)

	// Shop API client
	api, err := apiclient.New(cfg.API.BaseURL, &http.Client{}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize API client: %w", err)
	}

	// Templates
	templates := handler.NewTemplateCache(cfg.API.ImageBaseURL)
	if err := templates.Load(); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// Initialize HTTP handlers
	handlers := router.NewHandlers(handler.Deps{
		Templates:     templates,
		Content:       provider,
		Geocoder:      geocoder,
		Events:        publisher,
		CheckoutDelay: cfg.Checkout.RedirectDelay,
	}, logger)
	composer := handler.NewComposer(sessionStore, cfg.Session.Name, api, notify.SystemClock, logger)

	// Initialize router
	mux := router.New(handlers, composer, router.Options{
		CSRFKey:        cfg.Session.CSRFKey,
		Secure:         cfg.Session.CookieSecure,
		TrustedOrigins: cfg.Server.TrustedOrigins,
		MetricsToken:   cfg.Metrics.Token,
		StaticDir:      cfg.Server.StaticDir,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// SIGHUP reloads the home page content
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	// Block until we receive a signal or an error
	for {
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-reload:
			if err := provider.Reload(ctx); err != nil {
				logger.Warn().Err(err).Msg("content reload failed, keeping previous content")
			}

		case sig := <-shutdown:
			logger.Info().
				Str("signal", sig.String()).
				Msg("shutdown signal received, starting graceful shutdown")

			// Create a context with timeout for shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			// Attempt graceful shutdown
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("failed to shutdown server gracefully")
				// Force close
				if closeErr := server.Close(); closeErr != nil {
					logger.Error().Err(closeErr).Msg("failed to close server")
				}
				return fmt.Errorf("server shutdown failed: %w", err)
			}

			logger.Info().Msg("server shutdown completed")
			return nil
		}
	}
}

// newContentLoader tries S3 first when enabled and always falls back to the local file.
func newContentLoader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) content.Loader {
	fileLoader := content.NewFileLoader(logger)
	if !cfg.S3.Enabled {
		logger.Info().Msg("using local file system for home content (S3 disabled)")
		return fileLoader
	}

	s3Loader, err := content.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 loader, falling back to local file system only")
		return fileLoader
	}
	return content.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, true, logger)
}
