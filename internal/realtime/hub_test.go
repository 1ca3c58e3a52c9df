package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/forum/backend/internal/auth"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), []string{"*"})
	hub.Handle("echo", func(ctx context.Context, s *Session, data json.RawMessage) {
		_ = hub.Emit(s.ID, "echoed", map[string]any{
			"user_id": s.Identity.UserID,
			"data":    data,
		})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.Anonymous
		if uid, err := strconv.Atoi(r.URL.Query().Get("uid")); err == nil {
			id = auth.Identity{UserID: uid, Username: "user" + strconv.Itoa(uid)}
		}
		_ = hub.Serve(w, r, id)
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, uid int) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.Itoa(uid)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_EmitReachesOnlyTheActingSession(t *testing.T) {
	hub, srv := newTestHub(t)
	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)
	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteJSON(Message{Event: "echo", Data: json.RawMessage(`{"n":1}`)}))

	msg := readMessage(t, alice)
	assert.Equal(t, "echoed", msg.Event)
	assert.JSONEq(t, `{"user_id":1,"data":{"n":1}}`, string(msg.Data))

	// Bob must not see Alice's echo.
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestHub_SkipsBadFramesAndUnknownEvents(t *testing.T) {
	_, srv := newTestHub(t)
	conn := dial(t, srv, 3)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"echo","data":`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte{}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":7}`)))
	require.NoError(t, conn.WriteJSON(Message{Event: "nope", Data: json.RawMessage(`{}`)}))
	require.NoError(t, conn.WriteJSON(Message{Event: "echo", Data: json.RawMessage(`"still here"`)}))

	msg := readMessage(t, conn)
	assert.Equal(t, "echoed", msg.Event)
	assert.JSONEq(t, `{"user_id":3,"data":"still here"}`, string(msg.Data))
}

func TestHub_EmitUnknownSession(t *testing.T) {
	hub, _ := newTestHub(t)
	assert.ErrorIs(t, hub.Emit("missing", "x", nil), ErrSessionNotFound)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, 4)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsSessions(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv, 5)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) ||
		websocket.IsUnexpectedCloseError(err))
	assert.Equal(t, 0, hub.Len())
}

func TestHub_RefusesSessionsAfterClose(t *testing.T) {
	hub, srv := newTestHub(t)
	hub.Close()

	conn := dial(t, srv, 6)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.Len())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://forum.example"})

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("")))
	assert.True(t, check(req("https://forum.example")))
	assert.False(t, check(req("https://evil.example")))
	assert.False(t, check(req("http://forum.example")))

	assert.True(t, originChecker([]string{"*"})(req("https://anything.example")))
}
