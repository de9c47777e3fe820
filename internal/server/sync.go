package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reqledger/go-req-ledger/internal/config"
	"github.com/reqledger/go-req-ledger/models"
)

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.services.Engine.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) getErrors(w http.ResponseWriter, _ *http.Request) {
	errs := h.services.Monitor.Errors()
	if errs == nil {
		errs = []models.ErrorRecord{}
	}

	h.writeJSON(w, http.StatusOK, errs)
}

// syncNow propagates guard failures to the caller instead of swallowing
// them: a manual trigger is the one place where "why didn't it sync" must be
// visible.
func (h *Handler) syncNow(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Scheduler.TriggerSync(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *Handler) patchConfig(w http.ResponseWriter, r *http.Request) {
	var patch config.SyncPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed config patch: " + err.Error()})
		return
	}

	effective, err := h.services.Engine.UpdateConfig(r.Context(), patch)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, effective)
}

func (h *Handler) clearQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Queue.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *Handler) pushAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Bulk.PushAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) pullAll(w http.ResponseWriter, r *http.Request) {
	var query models.DownloadQuery
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed pull query: " + err.Error()})
			return
		}
	}

	applied, err := h.services.Bulk.PullAll(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"applied": applied})
}

func (h *Handler) syncNamed(w http.ResponseWriter, r *http.Request) {
	resourceKind := chi.URLParam(r, "resourceKind")

	var options map[string]any
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&options); err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed sync options: " + err.Error()})
			return
		}
	}

	result, err := h.services.Bulk.SyncNamed(r.Context(), resourceKind, options)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}
