// Package server exposes the analysis and compensator-design engine over a
// JSON HTTP interface. Every endpoint is a pure, stateless computation over
// the transfer function supplied in the request body.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/san-kum/ctrlab/internal/config"
)

type Server struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Server
}

func New(cfg *config.Config, log *zap.Logger) *Server {
	s := &Server{cfg: cfg, log: log}
	s.http = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(allowCORS)

	r.Post("/analyze_tf", s.handleAnalyzeTF)
	r.Post("/inverse_analyze_tf", s.handleInverseAnalyze)
	r.Post("/analyze_stability_range", s.handleStabilityRange)
	r.Post("/plot_root_locus", s.handleRootLocus)
	r.Post("/analyze_frequency_domain", s.handleFreqDomain)

	r.Route("/analysis", func(r chi.Router) {
		r.Post("/plot_phase_portrait", s.handlePhasePortrait)
	})

	r.Route("/compensation", func(r chi.Router) {
		r.Post("/design_lead_compensator", s.handleDesignLead)
		r.Post("/design_lag_compensator", s.handleDesignLag)
		r.Post("/design_lag_lead_compensator", s.handleDesignLagLead)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.cfg.Server.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.cfg.Server.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}

// Handler returns the assembled route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return s.http.Close()
	}
	return nil
}
