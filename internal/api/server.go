// Package api exposes the converter's operations over a small HTTP control API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgnsrekt/ttsconverter-go/internal/app"
	"github.com/dgnsrekt/ttsconverter-go/internal/config"
	"github.com/dgnsrekt/ttsconverter-go/internal/player"
)

// Controller is the set of operations the API drives.
type Controller interface {
	Speak(ctx context.Context, text string, speed, pitch float64) error
	PauseResumeAudio() (player.State, error)
	StopAudio() error
	SaveAsAudio(path string) error
	Status() app.Status
}

// Server handles HTTP API requests.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	ctrl   Controller
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, ctrl Controller) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		ctrl:   ctrl,
	}

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.ControlPort),
		Handler:     s.routes(),
		ReadTimeout: 10 * time.Second,
		// Speak waits for synthesis, which can take a while for long text.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /v1/status", s.withAuth(s.handleStatus))
	mux.HandleFunc("POST /v1/speak", s.withAuth(s.handleSpeak))
	mux.HandleFunc("POST /v1/pause", s.withAuth(s.handlePause))
	mux.HandleFunc("POST /v1/stop", s.withAuth(s.handleStop))
	mux.HandleFunc("POST /v1/save", s.withAuth(s.handleSave))
	return mux
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting control API", "addr", s.server.Addr, "auth", !s.cfg.AuthDisabled())
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down control API")
	return s.server.Shutdown(ctx)
}
