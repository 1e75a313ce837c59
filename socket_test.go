/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/imposter/internal/archive"
	"github.com/Seednode/imposter/internal/game"
)

type testServer struct {
	srv *httptest.Server
	reg *game.Registry
	sb  *Switchboard
}

func newTestServer(t *testing.T, store *archive.Store, mutate ...func(*Config)) *testServer {
	t.Helper()

	cfg := validConfig()
	cfg.minPlayers = 2
	cfg.messageRate = 1000
	cfg.messageBurst = 1000
	for _, m := range mutate {
		m(&cfg)
	}

	sb := newSwitchboard(zerolog.Nop())
	reg := game.NewRegistry(game.Options{
		Notifier:   sb,
		MinPlayers: cfg.minPlayers,
		MaxPlayers: cfg.maxPlayers,
	})
	t.Cleanup(reg.Close)

	errs := make(chan error, 64)
	srv := httptest.NewServer(newRouter(&cfg, reg, sb, store, errs))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, reg: reg, sb: sb}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()

	require.NoError(t, conn.WriteJSON(msg))
}

// expect reads until a message of type typ arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", typ)
		if msg["type"] == typ {
			return msg
		}
	}
}

func createRoom(t *testing.T, conn *websocket.Conn, name string) string {
	t.Helper()

	send(t, conn, ClientMessage{Type: "createRoom", Name: name})
	joined := expect(t, conn, "roomJoined")

	code, ok := joined["room"].(string)
	require.True(t, ok)
	require.Len(t, code, game.CodeLength)

	return code
}

func TestSocket_CreateJoinStart(t *testing.T) {
	ts := newTestServer(t, nil)
	host := ts.dial(t)
	guest := ts.dial(t)

	code := createRoom(t, host, "Host")

	send(t, guest, ClientMessage{Type: "joinRoom", Name: "Guest", RoomCode: strings.ToLower(code)})
	joined := expect(t, guest, "roomJoined")
	assert.Equal(t, code, joined["room"])
	assert.Len(t, joined["players"], 2)

	updated := expect(t, host, "roomUpdated")
	assert.Len(t, updated["players"], 2)

	send(t, host, ClientMessage{Type: "startGame", Settings: &game.Settings{Rounds: 1}})

	imposters := 0
	for _, conn := range []*websocket.Conn{host, guest} {
		started := expect(t, conn, "gameStarted")
		assert.EqualValues(t, 1, started["settings"].(map[string]any)["rounds"])

		round := expect(t, conn, "roundStart")
		assert.EqualValues(t, 1, round["round"])
		assert.NotEmpty(t, round["question"])
		if round["isImposter"] == true {
			imposters++
		}
	}
	assert.Equal(t, 1, imposters)
}

func TestSocket_ErrorsGoToCaller(t *testing.T) {
	ts := newTestServer(t, nil)
	host := ts.dial(t)
	guest := ts.dial(t)

	code := createRoom(t, host, "Host")

	send(t, guest, ClientMessage{Type: "joinRoom", Name: "host", RoomCode: code})
	assert.Equal(t, game.ErrNameConflict.Error(), expect(t, guest, "errorMessage")["reason"])

	send(t, guest, ClientMessage{Type: "joinRoom", Name: "Guest", RoomCode: code})
	expect(t, guest, "roomJoined")

	send(t, guest, ClientMessage{Type: "startGame"})
	assert.Equal(t, game.ErrNotHost.Error(), expect(t, guest, "errorMessage")["reason"])

	send(t, guest, ClientMessage{Type: "createRoom", Name: "Again"})
	assert.Equal(t, game.ErrAlreadyInRoom.Error(), expect(t, guest, "errorMessage")["reason"])

	send(t, guest, ClientMessage{Type: "dance"})
	assert.Equal(t, errUnknownAction.Error(), expect(t, guest, "errorMessage")["reason"])

	send(t, guest, ClientMessage{Type: "updateSettings"})
	assert.Equal(t, errMissingSettings.Error(), expect(t, guest, "errorMessage")["reason"])

	require.NoError(t, guest.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, errMalformedMessage.Error(), expect(t, guest, "errorMessage")["reason"])

	send(t, host, ClientMessage{Type: "joinRoom", Name: "Nobody", RoomCode: "????"})
	assert.Equal(t, game.ErrAlreadyInRoom.Error(), expect(t, host, "errorMessage")["reason"])
}

func TestSocket_UnknownRoom(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)

	send(t, conn, ClientMessage{Type: "joinRoom", Name: "Lost", RoomCode: "????"})
	assert.Equal(t, game.ErrRoomNotFound.Error(), expect(t, conn, "errorMessage")["reason"])
}

func TestSocket_RateLimited(t *testing.T) {
	ts := newTestServer(t, nil, func(c *Config) {
		c.messageRate = 0.001
		c.messageBurst = 2
	})
	conn := ts.dial(t)

	// Outside a room these are dropped without a reply.
	send(t, conn, ClientMessage{Type: "submitAnswer", Text: "a"})
	send(t, conn, ClientMessage{Type: "submitAnswer", Text: "b"})
	send(t, conn, ClientMessage{Type: "submitAnswer", Text: "c"})

	assert.Equal(t, errRateLimited.Error(), expect(t, conn, "errorMessage")["reason"])
}

func TestSocket_DisconnectRemovesPlayer(t *testing.T) {
	ts := newTestServer(t, nil)
	host := ts.dial(t)
	guest := ts.dial(t)

	code := createRoom(t, host, "Host")
	send(t, guest, ClientMessage{Type: "joinRoom", Name: "Guest", RoomCode: code})
	expect(t, guest, "roomJoined")
	expect(t, host, "roomUpdated")

	require.NoError(t, host.Close())

	updated := expect(t, guest, "roomUpdated")
	players := updated["players"].([]any)
	require.Len(t, players, 1)
	assert.Equal(t, true, players[0].(map[string]any)["host"])

	send(t, guest, ClientMessage{Type: "leaveRoom"})

	require.Eventually(t, func() bool { return ts.reg.Len() == 0 }, 3*time.Second, 10*time.Millisecond)

	_, ok := ts.reg.Room(code)
	assert.False(t, ok)
}

func TestSwitchboard_DropsUnknownPlayers(t *testing.T) {
	sb := newSwitchboard(zerolog.Nop())

	assert.NotPanics(t, func() { sb.Send("nobody", game.NewErrorMessage(errUnknownAction)) })
	assert.Equal(t, 0, sb.Len())
}

func TestQR(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := ts.dial(t)
	code := createRoom(t, conn, "Host")

	resp, err := http.Get(ts.srv.URL + "/room/" + strings.ToLower(code) + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	missing, err := http.Get(ts.srv.URL + "/room/NOPE/qr")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestInviteURL(t *testing.T) {
	cfg := validConfig()
	cfg.prefix = "/play"

	r := httptest.NewRequest(http.MethodGet, "http://party.example/play/room/AB12/qr", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	assert.Equal(t, "https://party.example/play/?room=AB12", inviteURL(&cfg, r, "AB12"))
}

func TestGames(t *testing.T) {
	store, err := archive.Open(filepath.Join(t.TempDir(), "games.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, room := range []string{"AAAA", "BBBB"} {
		_, err := store.RecordGame(context.Background(), game.GameRecord{
			Room:       room,
			Rounds:     1,
			Winner:     game.Player{ID: "w", Name: "Winner", Score: 2},
			Standings:  []game.Player{{ID: "w", Name: "Winner", Score: 2}},
			FinishedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	ts := newTestServer(t, store)

	resp, err := http.Get(ts.srv.URL + "/games?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var games []archive.Game
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&games))
	require.Len(t, games, 1)
	assert.Equal(t, "BBBB", games[0].Room)

	bad, err := http.Get(ts.srv.URL + "/games?limit=zero")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	plain := newTestServer(t, nil)
	none, err := http.Get(plain.srv.URL + "/games")
	require.NoError(t, err)
	defer none.Body.Close()
	assert.Equal(t, http.StatusNotFound, none.StatusCode)
}

func TestStaticRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	for path, want := range map[string]string{
		"/healthz": "Ok\n",
		"/version": "imposter v" + releaseVersion + "\n",
	} {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, want, string(body), path)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), path)
	}
}
