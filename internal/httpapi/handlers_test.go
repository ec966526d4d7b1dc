package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wordchain/internal/hub"
	"wordchain/internal/pubsub"
	"wordchain/internal/session"
	"wordchain/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	deps := session.Deps{
		Store:         st,
		Broker:        pubsub.NewMemory(),
		Logger:        zap.NewNop(),
		TurnDuration:  time.Second,
		GraceDuration: time.Second,
		CodeLength:    5,
	}
	srv := httptest.NewServer(SetupRoutes(hub.New(zap.NewNop()), st, deps))
	t.Cleanup(srv.Close)
	return srv, st
}

func TestGetRoom(t *testing.T) {
	srv, st := testServer(t)

	require.NoError(t, st.Create(context.Background(), &store.Record{
		ID:          "id-1",
		Code:        "ABCDE",
		GameType:    store.GameTypeWordChain,
		Status:      "waiting",
		PlayerCount: 1,
		MaxPlayers:  store.MaxPlayers,
		State:       []byte(`{"version":0}`),
	}))

	resp, err := http.Get(srv.URL + "/rooms/abcde")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ABCDE", body.Code)
	assert.Equal(t, store.GameTypeWordChain, body.GameType)
	assert.Equal(t, "waiting", body.Status)
	assert.Equal(t, 1, body.PlayerCount)
	assert.Equal(t, store.MaxPlayers, body.MaxPlayers)
}

func TestGetRoomNotFound(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/rooms/NOSUCH")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.Sessions)
}
