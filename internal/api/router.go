package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/homefinder/listing-service/docs"
	"github.com/homefinder/listing-service/internal/api/handler"
	"github.com/homefinder/listing-service/internal/api/middleware"
	"github.com/homefinder/listing-service/internal/core/domain"
	"github.com/homefinder/listing-service/internal/core/ports"
)

// Deps are the collaborators the HTTP layer is wired with.
type Deps struct {
	Auth     ports.AuthService
	Resolver ports.TokenResolver
	Listings ports.ListingService
	Images   handler.ImageReader
	Checks   map[string]handler.Check

	DeletePolicy   domain.DeletePolicy
	MaxUploadBytes string
	StorageTimeout time.Duration

	Logger zerolog.Logger
	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.MaxUploadBytes == "" {
		d.MaxUploadBytes = "20M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.CORS())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: d.Registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	listingHandler := handler.NewListingHandler(d.Listings, d.StorageTimeout)
	imageHandler := handler.NewImageHandler(d.Images)
	healthHandler := handler.NewHealthHandler(d.Checks)
	gate := middleware.Auth(d.Resolver)

	// --- Auth routes ---
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	// --- Listing routes ---
	e.POST("/upload-listing", listingHandler.Upload, echomiddleware.BodyLimit(d.MaxUploadBytes), gate)
	e.GET("/listings", listingHandler.List)
	e.GET("/listings/:id", listingHandler.Get)
	if d.DeletePolicy.RequiresAuth() {
		e.DELETE("/listings/:id", listingHandler.Delete, gate)
	} else {
		e.DELETE("/listings/:id", listingHandler.Delete)
	}
	e.GET("/images/:filename", imageHandler.Serve)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
