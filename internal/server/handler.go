// Package server exposes the agent's local admin API: status inspection,
// manual sync triggers, runtime config patches, and bulk transfer controls.
// It binds to a loopback address and is not meant to be reachable from
// outside the host.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/reqledger/go-req-ledger/internal/auth"
	"github.com/reqledger/go-req-ledger/internal/events"
	"github.com/reqledger/go-req-ledger/internal/logger"
	"github.com/reqledger/go-req-ledger/internal/service"
)

type Handler struct {
	services *service.Services
	tokens   *auth.TokenStore
	bus      events.Bus

	logger *logger.Logger
}

func NewHandler(services *service.Services, tokens *auth.TokenStore, bus events.Bus, logger *logger.Logger) *Handler {
	logger.Info().Msg("admin handler created")
	return &Handler{
		services: services,
		tokens:   tokens,
		bus:      bus,
		logger:   logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("encode admin response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := mapErrorStatus(err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
