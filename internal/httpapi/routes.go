package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"wordchain/internal/hub"
	"wordchain/internal/session"
	"wordchain/internal/store"
	"wordchain/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, deps session.Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(h))
	r.Get("/rooms/{code}", GetRoom(st))
	r.Get("/ws", ws.Handler(h, deps))
	return r
}
