package server

import (
	"context"
	"net/http"
	"time"

	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/service"
)

// AdminServer is the lifecycle wrapper around the admin HTTP endpoint.
type AdminServer struct {
	server *http.Server
	logger *logger.Logger
}

// NewAdminServer builds the admin endpoint from cfg. Returns nil when no
// listen address is configured; the agent then runs headless.
func NewAdminServer(cfg config.Admin, services *service.Services, tokens *auth.TokenStore, bus events.Bus, logger *logger.Logger) *AdminServer {
	if cfg.Address == "" {
		return nil
	}

	handler := NewHandler(services, tokens, bus, logger)

	return &AdminServer{
		server: &http.Server{
			Addr:              cfg.Address,
			Handler:           handler.Init(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run blocks serving the admin API until Shutdown is called.
func (s *AdminServer) Run() {
	s.logger.Info().Str("address", s.server.Addr).Msg("admin api listening")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("admin api stopped")
	}
}

// Shutdown drains in-flight requests and closes the listener.
func (s *AdminServer) Shutdown(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("admin api shutdown")
	}
}
