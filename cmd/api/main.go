package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"bookshelf/internal/book"
	"bookshelf/internal/config"
	"bookshelf/internal/httpx"
	"bookshelf/internal/identity"
	"bookshelf/internal/metadata"
	"bookshelf/internal/platform/logging"
	"bookshelf/internal/platform/openlibrary"
	"bookshelf/internal/platform/postgres"
	"bookshelf/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	dbPool, err := postgres.Open(ctx, cfg.DatabaseDSN, 2*time.Second)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("database connection OK", "dsn", postgres.RedactDSN(cfg.DatabaseDSN))

	cache, closeCache, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	catalog := metadata.NewOpenLibraryCatalog(openlibrary.NewClient(
		cfg.OpenLibraryUserAgent,
		cfg.OpenLibraryRPS,
		openlibrary.WithBaseURL(cfg.OpenLibraryBaseURL),
	))
	lookup := metadata.NewClient(cache, catalog, log, metadata.Options{
		TTL:            cfg.MetadataCacheTTL,
		CacheTimeout:   cfg.CacheTimeout,
		CatalogTimeout: cfg.CatalogTimeout,
	})

	verifier, err := identity.New(identity.Settings{
		Provider:          cfg.IdentityProvider,
		FirebaseProjectID: cfg.FirebaseProjectID,
		GoogleClientID:    cfg.GoogleClientID,
		Secret:            cfg.AuthSecret,
	})
	if err != nil {
		return err
	}

	bookRepository := book.NewPostgresRepo(dbPool, cfg.DBTimeout)
	bookService := book.NewService(bookRepository, lookup, validation.New(), log)

	router := newRouter(routerDeps{
		books:       bookService,
		verifier:    verifier,
		store:       bookRepository,
		log:         log,
		authTimeout: cfg.AuthTimeout,
	})

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()

	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr, "identity_provider", cfg.IdentityProvider)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openCache returns a redis backed cache when REDIS_URL is set and a no-op cache otherwise.
func openCache(cfg config.Config, log *slog.Logger) (metadata.Cache, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("metadata cache disabled")
		return metadata.NopCache{}, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return metadata.NewRedisCache(client), func() { _ = client.Close() }, nil
}
