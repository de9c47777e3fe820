package server

import (
	"errors"
	"net/http"

	"github.com/reqledger/go-req-ledger/internal/service"
)

var errorStatusMap = map[error]int{
	service.ErrSyncDisabled:     http.StatusConflict,
	service.ErrSyncInFlight:     http.StatusConflict,
	service.ErrNotAuthenticated: http.StatusUnauthorized,
	service.ErrNoEndpoint:       http.StatusBadRequest,
	service.ErrOffline:          http.StatusServiceUnavailable,
}

func mapErrorStatus(err error) int {
	for sentinel, status := range errorStatusMap {
		if errors.Is(err, sentinel) {
			return status
		}
	}
	return http.StatusInternalServerError
}
