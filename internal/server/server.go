package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parqueadero/internal/logging"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, handler *Handler) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

// NewRouter wires every route and middleware onto a fresh chi router.
func NewRouter(handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/parkinglot", func(r chi.Router) {
		r.Post("/enter", handler.Enter)
		r.Post("/exit", handler.Exit)
		r.Get("/status", handler.LotStatus)
	})

	r.Post("/tagscan", handler.TagScan)
	r.Get("/tagscan/last", handler.LastScan)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", handler.RegisterUser)
		r.Get("/", handler.ListUsers)
		r.Post("/recharge", handler.Recharge)
		r.Get("/{id}/detail", handler.UserDetail)
		r.Get("/{id}/recharges", handler.UserRecharges)
	})

	r.Post("/vehicles", handler.RegisterVehicle)
	r.Get("/vehicles", handler.ListVehicles)

	r.Get("/rates", handler.ListRates)
	r.Get("/records", handler.ListRecords)
	r.Get("/recharges", handler.ListRecharges)
	r.Get("/reports/payments", handler.PaymentsReport)

	return r
}

func (s *Server) Start() error {
	logging.Logger().Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Logger().Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
