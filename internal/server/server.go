// Package server exposes research, history and scheduling over HTTP and
// streams research events over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/config"
	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/offers"
	"github.com/sells-group/casino-research/internal/scheduler"
	"github.com/sells-group/casino-research/internal/store"
)

// OfferSource serves the existing offer snapshot.
type OfferSource interface {
	Load(ctx context.Context) (*offers.Snapshot, error)
	Refresh(ctx context.Context) (*offers.Snapshot, error)
}

// Researcher runs and records one research request.
type Researcher interface {
	Execute(ctx context.Context, req model.ResearchRequest) (*model.ResearchResult, error)
}

// Schedule controls scheduled research.
type Schedule interface {
	Start(cfg scheduler.Config) error
	Stop()
	Status() scheduler.Status
}

// Deps are the collaborators behind the API.
type Deps struct {
	Offers    OfferSource
	Research  Researcher
	Store     store.Store
	Scheduler Schedule
	Hub       *Hub
}

// Server is the HTTP API server.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	router chi.Router
}

// New builds the router for deps.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/offers/existing", s.handleExistingOffers)

		r.Post("/research", s.handleResearch)
		r.Get("/research/latest", s.handleLatest)
		r.Get("/research/latest.xlsx", s.handleLatestXLSX)

		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleResetHistory)
		r.Delete("/history/{id}", s.handleDeleteHistory)
		r.Get("/analytics", s.handleAnalytics)

		r.Get("/scheduler/config", s.handleSchedulerStatus)
		r.Post("/scheduler/config", s.handleSchedulerStart)
		r.Delete("/scheduler/config", s.handleSchedulerStop)
	})

	if s.deps.Hub != nil {
		r.Get("/ws", s.deps.Hub.HandleWS)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Research runs are synchronous and can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server: listen")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return <-errCh
}

// requestLogger logs each request with zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
