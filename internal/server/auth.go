package server

import (
	"encoding/json"
	"net/http"

	"github.com/reqledger/go-req-ledger/internal/events"
)

// setToken receives the bearer token from the host application after it
// authenticated with the server. Storing the token announces a completed
// login, which the scheduler treats as a sync trigger.
func (h *Handler) setToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed token body: " + err.Error()})
		return
	}
	if body.Token == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty token"})
		return
	}

	h.tokens.SetToken(body.Token)
	h.bus.Publish(events.TopicLoginCompleted, nil)

	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (h *Handler) clearToken(w http.ResponseWriter, _ *http.Request) {
	h.tokens.SetToken("")

	h.writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}
