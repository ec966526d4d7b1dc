package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"wordchain/internal/hub"
	"wordchain/internal/session"
	"wordchain/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a client to a websocket and binds it to a session. Query
// params: name (required) plus either create=true or code=<room code>.
func Handler(h *hub.Hub, deps session.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		code := r.URL.Query().Get("code")
		create := r.URL.Query().Get("create") == "true"
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}
		if !create && code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		var s *session.Session
		var err error
		if create {
			s, err = session.Create(r.Context(), deps, name)
		} else {
			s, err = session.Join(r.Context(), deps, code, name)
		}
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.Leave()
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		h.Add(clientID, s)
		defer func() {
			h.Remove(clientID)
			s.Leave() // covers abrupt disconnects too
		}()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()

		// Writer: the room code first, then every state notice until the
		// session closes its stream.
		go func() {
			write := func(msg types.ServerMessage) {
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}

			write(types.ServerMessage{Type: "room", Code: s.Code()})
			for n := range s.Notices() {
				switch n.Type {
				case session.NoticeState:
					write(types.ServerMessage{Type: "state", Version: n.State.Version, State: n.State})
				case session.NoticeLeft:
					write(types.ServerMessage{Type: "game_left"})
				}
			}
			// Session is gone; unblock the reader.
			conn.Close(websocket.StatusNormalClosure, "session ended")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			switch cm.Type {
			case "submit_word":
				if err := s.SubmitWord(cm.Word); err != nil {
					// Validation rejects stay between us and this client.
					writeError(r.Context(), conn, err.Error())
				}
			case "leave":
				return
			default:
				writeError(r.Context(), conn, "unknown type")
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "error", Error: msg})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	_ = conn.Write(wctx, websocket.MessageText, payload)
	cancel()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
