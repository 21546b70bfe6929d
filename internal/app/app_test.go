//go:build headless
// +build headless

package app

import (
	"bytes"
	"context"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/config"
	"github.com/silbinarywolf/simple-game/internal/logging"
	"github.com/silbinarywolf/simple-game/internal/renderer"
	"github.com/silbinarywolf/simple-game/internal/renderer/headless"
	"github.com/silbinarywolf/simple-game/internal/world"
)

func newTestApp(t *testing.T) (*App, *bridge.Channel, *bytes.Buffer) {
	var logs bytes.Buffer
	ch := bridge.NewChannel()
	t.Cleanup(ch.Close)
	app := New(Options{
		Config: config.Config{TestMode: true},
		Log:    logging.New(&logs, &bytes.Buffer{}, log.DebugLevel),
		Bridge: ch,
		Rand:   rand.New(rand.NewSource(1)),
	})
	app.world.SetupUI()
	return app, ch, &logs
}

// send runs frames until the request is answered
func send(t *testing.T, app *App, screen *headless.Screen, ch *bridge.Channel, msg bridge.Message) bridge.Reply {
	type result struct {
		reply bridge.Reply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := ch.Send(context.Background(), msg, 2*time.Second)
		done <- result{reply, err}
	}()
	for {
		select {
		case r := <-done:
			require.NoError(t, r.err)
			return r.reply
		default:
		}
		require.NoError(t, app.Update())
		screen.Reset(world.ScreenWidth, world.ScreenHeight)
		app.Draw(screen)
		time.Sleep(time.Millisecond)
	}
}

func TestClickOverBridge(t *testing.T) {
	app, ch, logs := newTestApp(t)
	screen := headless.NewScreen(world.ScreenWidth, world.ScreenHeight, nil)

	reply := send(t, app, screen, ch, bridge.Click{X: 400, Y: 300})
	assert.True(t, reply.OK)
	require.NoError(t, app.Update())

	assert.Contains(t, logs.String(), "test-id-button-clicked: main-button")
	assert.Len(t, app.world.Balls, 1)
}

func TestScreenshotOverBridge(t *testing.T) {
	app, ch, _ := newTestApp(t)
	screen := headless.NewScreen(world.ScreenWidth, world.ScreenHeight, nil)
	path := filepath.Join(t.TempDir(), "shots", "step_01.png")

	reply := send(t, app, screen, ch, bridge.Screenshot{Path: path})
	assert.True(t, reply.OK)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, world.ScreenWidth, img.Bounds().Dx())
	assert.Equal(t, world.ScreenHeight, img.Bounds().Dy())
}

func TestStop(t *testing.T) {
	app, _, _ := newTestApp(t)

	require.NoError(t, app.Update())
	app.Stop()
	assert.ErrorIs(t, app.Update(), renderer.ErrTermination)
}
