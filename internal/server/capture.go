package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reqledger/go-req-ledger/models"
)

// captureRequest is the host integration surface: the embedding application
// reports each finished network request here.
func (h *Handler) captureRequest(w http.ResponseWriter, r *http.Request) {
	var rec models.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed record: " + err.Error()})
		return
	}

	if err := h.services.Capture.RecordRequest(r.Context(), rec); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"result": "ok"})
}

// listRequests serves the local ledger to the host for inspection. Filters
// mirror the download query: since, limit, methods, urlLike.
func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	var query models.DownloadQuery

	params := r.URL.Query()
	if v := params.Get("since"); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed since: " + err.Error()})
			return
		}
		query.Since = since
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed limit: " + err.Error()})
			return
		}
		query.Limit = limit
	}
	if v := params.Get("methods"); v != "" {
		query.Methods = strings.Split(v, ",")
	}
	query.URLLike = params.Get("urlLike")

	records, err := h.services.Capture.ListRequests(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.services.Capture.DeleteRequest(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}
