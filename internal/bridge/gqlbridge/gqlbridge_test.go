package gqlbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newServer(t *testing.T, handle func(req *bridge.Request)) *httptest.Server {
	ch := bridge.NewChannel()
	if handle != nil {
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
	}
	dispatcher := bridge.NewDispatcher(ch, nil, bridge.DispatcherOptions{
		CommandTimeout:    50 * time.Millisecond,
		ScreenshotTimeout: 50 * time.Millisecond,
	})
	handler, err := New(dispatcher)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func query(t *testing.T, srv *httptest.Server, q string) graphqlResponse {
	body, err := json.Marshal(map[string]string{"query": q})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result graphqlResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestHealth(t *testing.T) {
	srv := newServer(t, nil)

	result := query(t, srv, `{ health }`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"health":"OK"}`, string(result.Data))
}

func TestComponentCountsAreSorted(t *testing.T) {
	srv := newServer(t, func(req *bridge.Request) {
		req.Reply(bridge.Reply{OK: true, Data: map[string]int{"Button": 1, "Ball": 3}})
	})

	result := query(t, srv, `{ componentCounts { name count } }`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"componentCounts":[{"name":"Ball","count":3},{"name":"Button","count":1}]}`, string(result.Data))
}

func TestClickMutation(t *testing.T) {
	var got bridge.Click
	srv := newServer(t, func(req *bridge.Request) {
		got, _ = req.Message.(bridge.Click)
		req.ReplyOK(true)
	})

	result := query(t, srv, `mutation { click(x: 400, y: 300) { success message } }`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"click":{"success":true,"message":"click completed"}}`, string(result.Data))
	assert.Equal(t, bridge.Click{X: 400, Y: 300}, got)
}

func TestScreenshotFailure(t *testing.T) {
	srv := newServer(t, func(req *bridge.Request) {
		req.ReplyOK(false)
	})

	result := query(t, srv, `mutation { screenshot(path: "out.png") { success message } }`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"screenshot":{"success":false,"message":"screenshot failed: out.png"}}`, string(result.Data))
}

func TestHoverTimeoutIsAnError(t *testing.T) {
	srv := newServer(t, nil)

	result := query(t, srv, `mutation { hover(x: 1, y: 2) { success } }`)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "hover: timed out")
}
