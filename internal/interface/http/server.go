// Package http exposes the report API: the attendance report endpoints and
// the health check.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/interface/http/handlers"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
)

// Dependencies wires the handlers behind the server.
type Dependencies struct {
	Reports   *handlers.ReportHandler
	Analytics *handlers.AnalyticsHandler
	Students  *handlers.StudentHandler
	Health    *handlers.HealthHandler
	Logger    *logger.Logger
}

// Server is the report API HTTP server.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer builds the router and middleware chain.
func NewServer(cfg config.HTTPConfig, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	router := http.NewServeMux()
	router.HandleFunc("POST /api/reports/attendance", deps.Reports.Attendance)
	router.HandleFunc("POST /api/reports/attendance/by-session-type", deps.Reports.AttendanceBySessionType)
	router.HandleFunc("GET /api/reports/audience", deps.Analytics.Audience)
	router.HandleFunc("GET /api/reports/groups/{id}/study", deps.Analytics.GroupStudy)
	router.HandleFunc("GET /api/students/{id}", deps.Students.Get)
	router.HandleFunc("GET /api/students/search", deps.Students.Search)
	router.HandleFunc("GET /healthz", deps.Health.Healthz)

	var handler http.Handler = router
	handler = handlers.RequestLogger(log)(handler)
	handler = handlers.RequestID(handler)
	handler = handlers.Recovery(log)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log.With(logger.Component("http")),
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", logger.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
