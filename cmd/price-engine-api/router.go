// Package main provides the API router setup.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/seunghun2/daedaesonson/cmd/price-engine-api/handlers"
	"github.com/seunghun2/daedaesonson/cmd/price-engine-api/middleware"
	"github.com/seunghun2/daedaesonson/internal/api/grpc"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/service"
)

// AppConfig holds router settings.
type AppConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DefaultAppConfig returns default router settings.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: 60 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, svc *service.Service, cfg *AppConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"price-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	priceHandler := handlers.NewPriceHandler(logger, svc)
	facilityHandler := handlers.NewFacilityHandler(logger, svc.Registry())
	monitoringHandler := handlers.NewMonitoringHandler(logger, svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tables", priceHandler.Tables)
		r.Get("/drift", monitoringHandler.Drift)

		r.Route("/facilities", func(r chi.Router) {
			r.Get("/", facilityHandler.Search)

			r.Route("/{facilityId}", func(r chi.Router) {
				r.Get("/", facilityHandler.Get)
				r.Post("/process", priceHandler.Process)
				r.Get("/prices", priceHandler.Prices)
				r.Get("/representative", priceHandler.Representative)
				r.Get("/structured", priceHandler.GetStructured)
				r.Put("/structured", priceHandler.PutStructured)
				r.Get("/runs", monitoringHandler.Runs)
			})
		})
	})

	path, rpc := grpc.NewPriceServiceHandler(grpc.NewPriceService(logger, svc))
	r.Handle(path+"*", rpc)

	return r
}
