package analysis

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codelab/internal/declaration"
)

func newBridgeServer(t *testing.T) (*Bridge, *declaration.Gate, *httptest.Server) {
	t.Helper()
	gate := declaration.NewGate()
	b := NewBridge(gate, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(b.HandleWS))
	t.Cleanup(srv.Close)
	return b, gate, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestReadyFrameResolvesGate(t *testing.T) {
	b, gate, srv := newBridgeServer(t)
	conn := dial(t, srv)

	assert.False(t, gate.Ready())
	require.NoError(t, conn.WriteJSON(inbound{Type: "ready"}))
	assert.Equal(t, "ready", readFrame(t, conn).Type)
	assert.True(t, gate.Ready())

	svc, err := gate.Wait(t.Context())
	require.NoError(t, err)
	assert.Same(t, b, svc.(*Bridge))
}

func TestRegisterAndDisposeAreStreamed(t *testing.T) {
	b, _, srv := newBridgeServer(t)
	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(inbound{Type: "ready"}))
	require.Equal(t, "ready", readFrame(t, conn).Type)

	h, err := b.RegisterExtraFile("export class A {}", "inmemory://model/A.ts")
	require.NoError(t, err)
	added := readFrame(t, conn)
	assert.Equal(t, "addExtraLib", added.Type)
	assert.Equal(t, "inmemory://model/A.ts", added.URI)
	assert.Equal(t, "export class A {}", added.Content)

	require.NoError(t, h.Dispose())
	disposed := readFrame(t, conn)
	assert.Equal(t, "dispose", disposed.Type)
	assert.Equal(t, added.ID, disposed.ID)

	assert.ErrorIs(t, h.Dispose(), ErrUnknownHandle)
	assert.Empty(t, b.Libs())
}

func TestReconnectReplaysLiveLibs(t *testing.T) {
	b, _, srv := newBridgeServer(t)

	_, err := b.RegisterExtraFile("a", "inmemory://model/A.ts")
	require.NoError(t, err)
	h, err := b.RegisterExtraFile("b", "inmemory://model/B.ts")
	require.NoError(t, err)
	require.NoError(t, h.Dispose())

	conn := dial(t, srv)
	replayed := readFrame(t, conn)
	assert.Equal(t, "addExtraLib", replayed.Type)
	assert.Equal(t, "inmemory://model/A.ts", replayed.URI)

	require.NoError(t, conn.WriteJSON(inbound{Type: "ping"}))
	assert.Equal(t, "pong", readFrame(t, conn).Type)
}

func TestRegisterRequiresURI(t *testing.T) {
	b := NewBridge(declaration.NewGate(), nil)
	_, err := b.RegisterExtraFile("x", "  ")
	assert.Error(t, err)
}
