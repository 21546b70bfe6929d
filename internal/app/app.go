package app

import (
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/config"
	"github.com/silbinarywolf/simple-game/internal/font"
	"github.com/silbinarywolf/simple-game/internal/input"
	"github.com/silbinarywolf/simple-game/internal/logging"
	"github.com/silbinarywolf/simple-game/internal/renderer"
	"github.com/silbinarywolf/simple-game/internal/world"
)

type Options struct {
	Config config.Config
	Log    *logging.Logger
	// Bridge is only set in test mode
	Bridge *bridge.Channel
	// Rand defaults to one seeded from the clock
	Rand *rand.Rand
}

type App struct {
	driver renderer.App
	config config.Config
	log    *logging.Logger
	bridge *bridge.Channel
	world  *world.World

	// pendingScreenshots are replied to after the next Draw
	pendingScreenshots []*bridge.Request
	screenshots        sync.WaitGroup

	quit atomic.Bool
}

func New(options Options) *App {
	logger := options.Log
	if logger == nil {
		logger = logging.Discard()
	}
	rng := options.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	app := &App{
		driver: getRenderDriver(),
		config: options.Config,
		log:    logger,
		bridge: options.Bridge,
		world:  world.New(logger, rng),
	}
	return app
}

// Stop makes the game loop exit at the start of the next frame
func (app *App) Stop() {
	app.quit.Store(true)
}

func (app *App) Update() error {
	if app.quit.Load() || input.IsKeyPressed(input.KeyEscape) {
		return renderer.ErrTermination
	}
	// bridge messages first so they see the same state the last frame drew
	if app.bridge != nil {
		app.bridge.Drain(app.handleRequest)
	}
	app.world.ApplyPointer(input.CurrentPointer())
	app.world.Update()
	return nil
}

func (app *App) handleRequest(req *bridge.Request) {
	if msg, ok := req.Message.(bridge.Screenshot); ok {
		app.log.Info("screenshot requested", "path", msg.Path)
		app.pendingScreenshots = append(app.pendingScreenshots, req)
		return
	}
	app.world.HandleMessage(req)
}

func (app *App) Draw(screen renderer.Screen) {
	app.world.Draw(screen)

	if len(app.pendingScreenshots) == 0 {
		return
	}
	requests := app.pendingScreenshots
	app.pendingScreenshots = nil
	img, err := screen.Snapshot()
	if err != nil {
		app.log.Error("unable to capture frame", "err", err)
		for _, req := range requests {
			req.ReplyOK(false)
		}
		return
	}
	for _, req := range requests {
		path := req.Message.(bridge.Screenshot).Path
		app.screenshots.Add(1)
		// encoding a PNG takes longer than a frame
		go func(req *bridge.Request, path string) {
			defer app.screenshots.Done()
			if err := savePNG(path, img); err != nil {
				app.log.Error("screenshot failed", "path", path, "err", err)
				req.ReplyOK(false)
				return
			}
			app.log.Info("screenshot saved", "path", path)
			req.ReplyOK(true)
		}(req, path)
	}
}

func (app *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return world.ScreenWidth, world.ScreenHeight
}

// Run blocks until the window is closed or Stop is called
func (app *App) Run() error {
	app.log.Info("game starting")
	if app.config.TestMode {
		app.log.Info("test mode enabled")
		app.log.Info("test port", "port", app.config.Bridge.Port)
	}
	app.log.Info("log file", "path", app.config.Log.File)

	f := font.Load(app.config.Font.Path, app.log)
	if err := app.driver.SetFont(f.Data); err != nil {
		app.log.Warn("unable to use font, using embedded font", "name", f.Name, "err", err)
		if err := app.driver.SetFont(font.Embedded().Data); err != nil {
			return errors.Wrap(err, "unable to load embedded font")
		}
	}

	app.world.SetupUI()

	app.driver.SetWindowSize(app.config.Window.Width, app.config.Window.Height)
	app.driver.SetWindowTitle(app.config.Window.Title)
	app.driver.SetRunnableOnUnfocused(true)
	err := app.driver.RunGame(app)

	// screenshots in flight still get written and replied to
	app.screenshots.Wait()
	for _, req := range app.pendingScreenshots {
		req.Drop()
	}
	app.pendingScreenshots = nil
	app.log.Info("game stopped")
	return err
}

func savePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "unable to create directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "unable to encode %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "unable to close %s", path)
	}
	return nil
}
