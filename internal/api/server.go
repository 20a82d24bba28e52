package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/heimdex/heimdex-studio/internal/playback"
	"github.com/heimdex/heimdex-studio/internal/scheduler"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

// loopbackHost is the only interface the studio API binds to.
const loopbackHost = "127.0.0.1"

type ServerConfig struct {
	Port           int
	Service        *studio.Service
	Repository     studio.Repository
	PlaybackServer playback.PlaybackService
	Scheduler      *scheduler.Scheduler
	Logger         *slog.Logger
	StartTime      time.Time
	DeviceID       string
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(loopbackHost, strconv.Itoa(cfg.Port)),
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 5 * time.Second,
			// Uploads and renders move large bodies, so neither read nor
			// write of the body is bounded.
			IdleTimeout: 60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start serves until Shutdown. A closed server is not an error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
