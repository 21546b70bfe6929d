package e2e

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/rtcbridge"
)

const (
	TransportWebSocket = "ws"
	TransportWebRTC    = "webrtc"
)

// Transport carries commands to the game's test bridge
type Transport interface {
	Do(ctx context.Context, cmd bridge.Command) (bridge.Response, error)
	Close() error
}

// Client has typed helpers over a Transport
type Client struct {
	transport Transport
	latency   latencyTracker
}

func NewClient(transport Transport) *Client {
	return &Client{transport: transport}
}

// Connect dials the instance over the named transport
func Connect(ctx context.Context, inst *Instance, transport string) (*Client, error) {
	switch transport {
	case "", TransportWebSocket:
		ws, err := DialWebSocket(ctx, inst.WebSocketURL())
		if err != nil {
			return nil, err
		}
		return NewClient(ws), nil
	case TransportWebRTC:
		rtc, err := rtcbridge.Dial(ctx, inst.BaseURL(), rtcbridge.ClientOptions{})
		if err != nil {
			return nil, errors.Wrap(err, "unable to connect over webrtc")
		}
		return NewClient(rtc), nil
	default:
		return nil, errors.Errorf("unknown transport %q, expected %q or %q", transport, TransportWebSocket, TransportWebRTC)
	}
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// Latency is the round trip time of every answered command so far
func (c *Client) Latency() LatencyStats {
	return c.latency.Stats()
}

// Do sends a command and turns a failed Response into an error
func (c *Client) Do(ctx context.Context, action string, params interface{}) (bridge.Response, error) {
	cmd, err := bridge.NewCommand(action, params)
	if err != nil {
		return bridge.Response{}, errors.Wrapf(err, "unable to encode %s params", action)
	}
	start := time.Now()
	resp, err := c.transport.Do(ctx, cmd)
	if err != nil {
		return bridge.Response{}, errors.Wrap(err, action)
	}
	c.latency.Observe(time.Since(start))
	if !resp.Success {
		return resp, errors.Errorf("%s failed: %s", action, resp.Message)
	}
	return resp, nil
}

func (c *Client) Hover(ctx context.Context, x, y float32) error {
	_, err := c.Do(ctx, "hover", map[string]float32{"x": x, "y": y})
	return err
}

func (c *Client) Click(ctx context.Context, x, y float32) error {
	_, err := c.Do(ctx, "click", map[string]float32{"x": x, "y": y})
	return err
}

// Screenshot asks the game to save its next frame to path. The path is
// resolved by the game process, so pass an absolute one.
func (c *Client) Screenshot(ctx context.Context, path string) error {
	_, err := c.Do(ctx, "screenshot", map[string]string{"path": path})
	return err
}

func (c *Client) QueryComponents(ctx context.Context) (map[string]int, error) {
	resp, err := c.Do(ctx, "query_components", nil)
	if err != nil {
		return nil, err
	}
	var counts map[string]int
	if err := decodeData(resp.Data, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Locate(ctx context.Context, testID string) (bridge.Bounds, error) {
	resp, err := c.Do(ctx, "locate", map[string]string{"test_id": testID})
	if err != nil {
		return bridge.Bounds{}, err
	}
	var bounds bridge.Bounds
	if err := decodeData(resp.Data, &bounds); err != nil {
		return bridge.Bounds{}, err
	}
	return bounds, nil
}

// decodeData converts the generic JSON value in Response.Data into out
func decodeData(data interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "unable to re-encode response data")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "unexpected response data %s", raw)
	}
	return nil
}

// WebSocket sends one command at a time over a websocket connection
type WebSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWebSocket retries the handshake for up to 5 seconds
func DialWebSocket(ctx context.Context, url string) (*WebSocket, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		var err error
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", url)
	}
	return &WebSocket{conn: conn}, nil
}

func (ws *WebSocket) Do(ctx context.Context, cmd bridge.Command) (bridge.Response, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		ws.conn.SetWriteDeadline(deadline)
		ws.conn.SetReadDeadline(deadline)
		defer func() {
			ws.conn.SetWriteDeadline(time.Time{})
			ws.conn.SetReadDeadline(time.Time{})
		}()
	}
	if err := ws.conn.WriteJSON(&cmd); err != nil {
		return bridge.Response{}, errors.Wrap(err, "unable to send command")
	}
	var resp bridge.Response
	if err := ws.conn.ReadJSON(&resp); err != nil {
		return bridge.Response{}, errors.Wrap(err, "unable to read response")
	}
	return resp, nil
}

func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return ws.conn.Close()
}
