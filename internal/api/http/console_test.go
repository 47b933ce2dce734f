package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/volume"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

func dialConsole(t *testing.T, driver volume.Driver) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(setupRouter(t, driver))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/console"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var welcome ConsoleReply
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "system", welcome.Type)
	assert.Contains(t, welcome.Message, "flashfile")
	return conn
}

func TestConsole(t *testing.T) {
	conn := dialConsole(t, memfs.New(memfs.DefaultConfig()))

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "script", Script: "console.log('wrote'); file.open('a', 'w+'); file.write('hey')"}))
	var res ConsoleResult
	require.NoError(t, conn.ReadJSON(&res))
	assert.Equal(t, "result", res.Type)
	assert.Equal(t, true, res.Value)
	assert.NotEmpty(t, res.ID)
	require.Len(t, res.Console, 1)
	assert.Equal(t, "wrote", res.Console[0].Message)

	// the handle stays open between frames
	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "script", Script: "file.seek('set'); file.read()"}))
	res = ConsoleResult{}
	require.NoError(t, conn.ReadJSON(&res))
	assert.Equal(t, "hey", res.Value)

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "ping"}))
	var reply ConsoleReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "shout"}))
	reply = ConsoleReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "unknown message type", reply.Error)
}

func TestConsoleErrors(t *testing.T) {
	conn := dialConsole(t, lyingVolume{memfs.New(memfs.DefaultConfig())})

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "script", Script: "console.log('x'); file.close(); file.read()"}))
	var reply ConsoleReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Error, "open a file first")
	assert.Empty(t, reply.Advice)
	assert.Len(t, reply.Console, 1)

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "script", Script: "file.fsinfo()"}))
	reply = ConsoleReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, file.AdviceReinitialize, reply.Advice)

	require.NoError(t, conn.WriteJSON(ConsoleMessage{Type: "script", Script: "1", TimeoutMs: -5}))
	reply = ConsoleReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply.Error, "timeout_ms")
}
