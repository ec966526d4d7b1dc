package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wordchain/internal/hub"
	"wordchain/internal/store"
)

type roomResponse struct {
	Code        string `json:"code"`
	GameType    string `json:"gameType"`
	Status      string `json:"status"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// GetRoom looks a room up by code straight from the store, so a client can
// check a code before opening a websocket.
func GetRoom(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		rec, err := st.GetByCode(r.Context(), code)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "store unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(roomResponse{
			Code:        rec.Code,
			GameType:    rec.GameType,
			Status:      rec.Status,
			PlayerCount: rec.PlayerCount,
			MaxPlayers:  rec.MaxPlayers,
		})
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status   string `json:"status"`
			Sessions int    `json:"sessions"`
		}{Status: "ok", Sessions: h.Count()})
	}
}
