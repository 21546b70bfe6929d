package rtcbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

func newTestServer(t *testing.T, options Options) *Server {
	ch := bridge.NewChannel()
	t.Cleanup(ch.Close)
	dispatcher := bridge.NewDispatcher(ch, nil, bridge.DispatcherOptions{
		CommandTimeout: 20 * time.Millisecond,
	})
	s, err := New(dispatcher, nil, options)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSDPRejectsNonPost(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSDPPreflight(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, Path, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestSDPRejectsBadOffer(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, body := range []string{`not json`, `{"type":"answer","sdp":"v=0"}`, `{}`} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 0, s.ConnectedCount())
}

func TestReserveConnectionWhenFull(t *testing.T) {
	s := newTestServer(t, Options{MaxConnections: 2})

	require.NotNil(t, s.reserveConnection())
	second := s.reserveConnection()
	require.NotNil(t, second)
	assert.Nil(t, s.reserveConnection())

	second.free()
	assert.Same(t, second, s.reserveConnection())
}

func TestLateCallbackDoesNotFreeReusedSlot(t *testing.T) {
	s := newTestServer(t, Options{MaxConnections: 1})

	oldPeer, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	conn := s.reserveConnection()
	require.NotNil(t, conn)
	conn.mu.Lock()
	conn.peerConnection = oldPeer
	conn.mu.Unlock()
	conn.free()

	newPeer, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	require.Same(t, conn, s.reserveConnection())
	conn.mu.Lock()
	conn.peerConnection = newPeer
	conn.mu.Unlock()

	// the old peer's close callback arriving now must leave the new peer alone
	assert.False(t, conn.freeIfCurrent(oldPeer))
	conn.mu.Lock()
	assert.True(t, conn.isUsed)
	assert.Same(t, newPeer, conn.peerConnection)
	conn.mu.Unlock()
	assert.Nil(t, s.reserveConnection())

	assert.True(t, conn.freeIfCurrent(newPeer))
	assert.Same(t, conn, s.reserveConnection())
}

func TestHandleMessage(t *testing.T) {
	s := newTestServer(t, Options{})

	data, err := s.handleMessage([]byte(`{"action":"health"}`))
	require.NoError(t, err)
	var resp bridge.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, bridge.Response{Success: true, Message: "OK"}, resp)

	data, err = s.handleMessage([]byte(`{"action":"click","params":{"x":1,"y":2}}`))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "click: timed out", resp.Message)
}

func TestDialFailsOnRejectedOffer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server is full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Dial(ctx, srv.URL, ClientOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
