package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/QuizRush/internal/app"
	"github.com/dkeye/QuizRush/internal/app/orch"
	"github.com/dkeye/QuizRush/internal/core"
	"github.com/dkeye/QuizRush/internal/domain"
)

type harness struct {
	orch *orch.Orchestrator
	url  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms: app.NewRoomRegistry(core.RoomOptions{
			Timing: core.Timing{Tick: time.Second, QuestionTime: 20 * time.Second, RevealTime: 2 * time.Second},
		}, 0, nil),
	}
	ctl := NewSignalWSController(o, Options{})

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(t.Context(), c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		_ = o.Rooms.Shutdown(context.Background())
		srv.Close()
	})
	return &harness{orch: o, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func (h *harness) room(t *testing.T) (*core.Room, domain.PlayerID) {
	t.Helper()
	room, hostID, err := h.orch.Rooms.Create(domain.RoomConfig{
		Name: "quiz", HostName: "alice", MaxPlayers: 4, Settings: domain.DefaultSettings(),
	})
	require.NoError(t, err)
	return room, hostID
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

// expect reads frames until one of the given type arrives.
func expect(t *testing.T, ws *websocket.Conn, kind string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, ws.ReadJSON(&m), "waiting for %s", kind)
		if m["type"] == kind {
			return m
		}
	}
}

func join(t *testing.T, ws *websocket.Conn, room *core.Room, name string) string {
	t.Helper()
	send(t, ws, map[string]any{"type": "join_room", "roomId": string(room.ID()), "playerName": name})
	return expect(t, ws, "room_joined")["playerId"].(string)
}

func TestGameOverWebsocket(t *testing.T) {
	h := newHarness(t)
	room, hostID := h.room(t)

	alice, bob := h.dial(t), h.dial(t)
	aliceID := join(t, alice, room, "alice")
	assert.Equal(t, string(hostID), aliceID)
	bobID := join(t, bob, room, "bob")
	assert.Equal(t, "bob", expect(t, alice, "player_joined")["player"].(map[string]any)["name"])

	send(t, alice, map[string]any{"type": "player_ready", "ready": true})
	send(t, bob, map[string]any{"type": "player_ready", "ready": true})
	assert.Equal(t, true, expect(t, alice, "all_players_ready")["canStart"])

	send(t, alice, map[string]any{"type": "start_game", "questions": []map[string]any{
		{"question": "Pick a", "options": []string{"a", "b"}, "correctAnswer": 0},
	}})
	expect(t, bob, "game_started")
	st := expect(t, bob, "game_state")["state"].(map[string]any)
	assert.Equal(t, "playing", st["phase"])

	send(t, bob, map[string]any{"type": "answer", "answer": "b", "playerId": aliceID})
	assert.Equal(t, domain.ErrIDMismatch.Error(), expect(t, bob, "error")["message"])

	send(t, alice, map[string]any{"type": "answer", "answer": "a", "playerId": aliceID})
	send(t, bob, map[string]any{"type": "answer", "answer": "b", "playerId": bobID})

	for {
		st = expect(t, alice, "game_state")["state"].(map[string]any)
		if st["phase"] == "reveal" {
			break
		}
	}
	scores := st["scores"].(map[string]any)
	assert.EqualValues(t, 1, scores[aliceID])
	assert.EqualValues(t, 0, scores[bobID])
}

func TestRejectionsAreErrorMessages(t *testing.T) {
	h := newHarness(t)
	room, _ := h.room(t)
	ws := h.dial(t)

	send(t, ws, map[string]any{"type": "teleport"})
	assert.Contains(t, expect(t, ws, "error")["message"], "unknown message type")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Contains(t, expect(t, ws, "error")["message"], "malformed")

	send(t, ws, map[string]any{"type": "player_ready", "ready": true})
	assert.Equal(t, domain.ErrNotInRoom.Error(), expect(t, ws, "error")["message"])

	send(t, ws, map[string]any{"type": "join_room", "roomId": "missing", "playerName": "x"})
	assert.Equal(t, domain.ErrRoomNotFound.Error(), expect(t, ws, "error")["message"])

	join(t, ws, room, "alice")
	send(t, ws, map[string]any{"type": "join_room", "roomId": string(room.ID()), "playerName": "again"})
	assert.Equal(t, domain.ErrAlreadyInRoom.Error(), expect(t, ws, "error")["message"])

	send(t, ws, map[string]any{"type": "start_game"})
	assert.Equal(t, domain.ErrNotEnoughPlayers.Error(), expect(t, ws, "error")["message"])

	send(t, ws, map[string]any{"type": "ping"})
	expect(t, ws, "pong")
}

func TestDisconnectLeavesRoom(t *testing.T) {
	h := newHarness(t)
	room, _ := h.room(t)
	alice, bob := h.dial(t), h.dial(t)
	aliceID := join(t, alice, room, "alice")
	bobID := join(t, bob, room, "bob")

	require.NoError(t, alice.Close())

	left := expect(t, bob, "player_left")
	assert.Equal(t, aliceID, left["playerId"])
	assert.Equal(t, bobID, left["newHostId"])
	require.Eventually(t, func() bool { return h.orch.Registry.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestChatOverWebsocket(t *testing.T) {
	h := newHarness(t)
	room, _ := h.room(t)
	alice, bob := h.dial(t), h.dial(t)
	join(t, alice, room, "alice")
	join(t, bob, room, "bob")

	send(t, alice, map[string]any{"type": "chat_message", "message": " hello "})
	msg := expect(t, bob, "chat_message")
	assert.Equal(t, "hello", msg["message"])
	assert.Equal(t, "alice", msg["playerName"])

	send(t, alice, map[string]any{"type": "leave_room"})
	expect(t, bob, "player_left")
	send(t, alice, map[string]any{"type": "chat_message", "message": "anyone?"})
	assert.Equal(t, domain.ErrNotInRoom.Error(), expect(t, alice, "error")["message"])
}
