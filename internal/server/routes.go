package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withLogging)

	router.Get("/api/status", h.getStatus)
	router.Get("/api/errors", h.getErrors)

	router.Route("/api/sync", func(r chi.Router) {
		r.Post("/now", h.syncNow)
		r.Patch("/config", h.patchConfig)
		r.Post("/queue/clear", h.clearQueue)
		r.Post("/push", h.pushAll)
		r.Post("/pull", h.pullAll)
		r.Post("/{resourceKind}", h.syncNamed)
	})

	router.Post("/api/auth/token", h.setToken)
	router.Delete("/api/auth/token", h.clearToken)

	router.Post("/api/capture", h.captureRequest)
	router.Delete("/api/capture/{id}", h.deleteRequest)
	router.Get("/api/requests", h.listRequests)

	return router
}
