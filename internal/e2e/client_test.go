package e2e

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/wsbridge"
	"github.com/silbinarywolf/simple-game/internal/logging"
)

func startTestBridge(t *testing.T, handle func(req *bridge.Request)) string {
	ch := bridge.NewChannel()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ch.Drain(handle)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	dispatcher := bridge.NewDispatcher(ch, nil, bridge.DispatcherOptions{CommandTimeout: 500 * time.Millisecond})
	srv := httptest.NewServer(wsbridge.New(dispatcher, logging.Discard()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + wsbridge.Path
}

func dialTestClient(t *testing.T, handle func(req *bridge.Request)) *Client {
	ws, err := DialWebSocket(context.Background(), startTestBridge(t, handle))
	require.NoError(t, err)
	client := NewClient(ws)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientLocateAndClick(t *testing.T) {
	var clicked []bridge.Click
	client := dialTestClient(t, func(req *bridge.Request) {
		switch msg := req.Message.(type) {
		case bridge.Locate:
			req.Reply(bridge.Reply{OK: true, Data: bridge.LocateResult{Found: true, Bounds: bridge.NewBounds(300, 260, 200, 80)}})
		case bridge.Click:
			clicked = append(clicked, msg)
			req.ReplyOK(true)
		default:
			req.ReplyOK(true)
		}
	})
	ctx := context.Background()

	bounds, err := client.Locate(ctx, "main-button")
	require.NoError(t, err)
	assert.Equal(t, float32(400), bounds.CenterX)
	assert.Equal(t, float32(300), bounds.CenterY)

	require.NoError(t, client.Click(ctx, bounds.CenterX, bounds.CenterY))
	require.Len(t, clicked, 1)
	assert.Equal(t, bridge.Click{X: 400, Y: 300}, clicked[0])
}

func TestClientQueryComponents(t *testing.T) {
	client := dialTestClient(t, func(req *bridge.Request) {
		req.Reply(bridge.Reply{OK: true, Data: map[string]int{"Ball": 2, "Button": 1}})
	})
	counts, err := client.QueryComponents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Ball": 2, "Button": 1}, counts)
}

func TestClientFailedResponseIsError(t *testing.T) {
	client := dialTestClient(t, func(req *bridge.Request) {
		req.ReplyOK(false)
	})
	err := client.Screenshot(context.Background(), "/tmp/shot.png")
	assert.EqualError(t, err, "screenshot failed: screenshot failed: /tmp/shot.png")
}

func TestConnectUnknownTransport(t *testing.T) {
	_, err := Connect(context.Background(), &Instance{Port: 1}, "carrier-pigeon")
	assert.ErrorContains(t, err, `unknown transport "carrier-pigeon"`)
}

func TestDialWebSocketGivesUp(t *testing.T) {
	port, err := findAvailablePort()
	require.NoError(t, err)
	inst := &Instance{Port: port}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = DialWebSocket(ctx, inst.WebSocketURL())
	assert.Error(t, err)
}
