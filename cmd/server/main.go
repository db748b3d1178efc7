// @title        Listing Service API
// @version      1.0
// @description  Rental listings: accounts, bearer-token gated uploads and listing browsing.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"

	"github.com/homefinder/listing-service/internal/api"
	"github.com/homefinder/listing-service/internal/api/handler"
	"github.com/homefinder/listing-service/internal/core/ports"
	"github.com/homefinder/listing-service/internal/core/service"
	mongodb "github.com/homefinder/listing-service/internal/infrastructure/db/mongo"
	rediscache "github.com/homefinder/listing-service/internal/infrastructure/db/redis"
	"github.com/homefinder/listing-service/internal/infrastructure/media"
	"github.com/homefinder/listing-service/internal/infrastructure/queue"
	"github.com/homefinder/listing-service/internal/pkg/config"
	"github.com/homefinder/listing-service/internal/pkg/token"
	"github.com/homefinder/listing-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "listing-service",
		Env:     cfg.Env,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file loaded")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Persistence ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	users := mongodb.NewUserRepository(db)
	listings := mongodb.NewListingRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	checks := map[string]handler.Check{
		"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}

	// --- Listing cache (optional) ---
	var cache ports.ListingCache
	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, serving listings without cache")
		} else {
			defer rdb.Close()
			cache = rediscache.NewListingCache(rdb)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	// --- Media ---
	store, err := media.NewStore(afero.NewOsFs(), cfg.Media.Root)
	if err != nil {
		return err
	}
	checks["media"] = func(context.Context) error { return store.Ready() }

	var purger ports.MediaPurger
	if cfg.Media.PurgeOnDelete {
		janitor := queue.NewJanitor(cfg.Media.JanitorWorkers, store, logger.Component("janitor"))
		janitor.Start(ctx)
		purger = janitor
		log.Info().Int("workers", cfg.Media.JanitorWorkers).Msg("media janitor started")
	}

	// --- Services ---
	authSvc := service.NewAuthService(users, token.NewManager(cfg.JWTSecret, cfg.TokenTTL), bcrypt.DefaultCost, logger.Component("auth"))
	listingSvc := service.NewListingService(listings, store, cache, service.ListingOptions{
		DeletePolicy: cfg.Listings.DeletePolicy,
		CacheTTL:     cfg.Redis.CacheTTL,
		Purger:       purger,
	}, logger.Component("listings"))

	e := api.NewRouter(api.Deps{
		Auth:           authSvc,
		Resolver:       authSvc,
		Listings:       listingSvc,
		Images:         store,
		Checks:         checks,
		DeletePolicy:   cfg.Listings.DeletePolicy,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		StorageTimeout: cfg.Media.StorageTimeout,
		Logger:         logger.Component("http"),
		Registerer:     prometheus.DefaultRegisterer,
		Gatherer:       prometheus.DefaultGatherer,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("delete_policy", string(cfg.Listings.DeletePolicy)).
			Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
