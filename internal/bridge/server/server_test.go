package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

func startServer(t *testing.T, options Options) *Server {
	ch := bridge.NewChannel()
	t.Cleanup(ch.Close)
	dispatcher := bridge.NewDispatcher(ch, nil, bridge.DispatcherOptions{})
	s := New(dispatcher, nil, options)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestHealth(t *testing.T) {
	s := startServer(t, Options{Port: -1})
	require.True(t, s.IsListening())

	resp, err := http.Get("http://" + s.Addr().String() + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestTransportsAreMounted(t *testing.T) {
	s := startServer(t, Options{Port: -1, WebRTC: WebRTCOptions{Enabled: true}})
	baseURL := "http://" + s.Addr().String()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(bridge.Command{Action: "health"}))
	var resp bridge.Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, bridge.Response{Success: true, Message: "OK"}, resp)

	gqlResp, err := http.Post(baseURL+"/graphql", "application/json", strings.NewReader(`{"query":"{ health }"}`))
	require.NoError(t, err)
	gqlBody, err := io.ReadAll(gqlResp.Body)
	gqlResp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"health":"OK"}}`, string(gqlBody))

	sdpResp, err := http.Get(baseURL + "/sdp")
	require.NoError(t, err)
	sdpResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, sdpResp.StatusCode)
}

func TestWebRTCDisabledByDefault(t *testing.T) {
	s := startServer(t, Options{Port: -1})

	resp, err := http.Post("http://"+s.Addr().String()+"/sdp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	first := startServer(t, Options{Port: -1})
	port := first.Addr().(*net.TCPAddr).Port

	second := New(bridge.NewDispatcher(bridge.NewChannel(), nil, bridge.DispatcherOptions{}), nil, Options{Port: port})
	err := second.Start()
	require.Error(t, err)
	assert.False(t, second.IsListening())
}
