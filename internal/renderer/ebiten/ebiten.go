//go:build !headless
// +build !headless

package ebiten

import (
	"bytes"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/renderer"
)

var _ renderer.App = new(App)

type App struct {
	fontSource *text.GoTextFaceSource
}

type ebitenGameAndScreen struct {
	renderer.Game
	screenDriver Screen
}

func (game *ebitenGameAndScreen) Update() error {
	if err := game.Game.Update(); err != nil {
		if errors.Is(err, renderer.ErrTermination) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

func (game *ebitenGameAndScreen) Draw(screen *ebiten.Image) {
	game.screenDriver.screen = screen
	game.Game.Draw(&game.screenDriver)
}

func (app *App) SetRunnableOnUnfocused(v bool) {
	ebiten.SetRunnableOnUnfocused(v)
}

func (app *App) SetWindowSize(width, height int) {
	ebiten.SetWindowSize(width, height)
}

func (app *App) SetWindowTitle(title string) {
	ebiten.SetWindowTitle(title)
}

func (app *App) SetFont(data []byte) error {
	if isCollection(data) {
		sources, err := text.NewGoTextFaceSourcesFromCollection(bytes.NewReader(data))
		if err != nil {
			return errors.Wrap(err, "unable to parse font collection")
		}
		if len(sources) == 0 {
			return errors.New("font collection is empty")
		}
		app.fontSource = sources[0]
		return nil
	}
	source, err := text.NewGoTextFaceSource(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "unable to parse font")
	}
	app.fontSource = source
	return nil
}

func (app *App) RunGame(game renderer.Game) error {
	gameWrapper := ebitenGameAndScreen{}
	gameWrapper.Game = game
	gameWrapper.screenDriver.fontSource = app.fontSource
	if err := ebiten.RunGame(&gameWrapper); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// isCollection reports if data is a TrueType collection (.ttc)
func isCollection(data []byte) bool {
	return bytes.HasPrefix(data, []byte("ttcf"))
}

type Screen struct {
	screen     *ebiten.Image
	fontSource *text.GoTextFaceSource
}

var _ renderer.Screen = new(Screen)

func (driver *Screen) Fill(c renderer.Color) {
	driver.screen.Fill(c.NRGBA())
}

func (driver *Screen) FillRect(r renderer.Rect, c renderer.Color) {
	vector.DrawFilledRect(driver.screen, r.X, r.Y, r.Width, r.Height, c.NRGBA(), true)
}

func (driver *Screen) StrokeRect(r renderer.Rect, strokeWidth float32, c renderer.Color) {
	// vector strokes are centered on the path, borders are drawn inside the rect
	half := strokeWidth / 2
	vector.StrokeRect(driver.screen, r.X+half, r.Y+half, r.Width-strokeWidth, r.Height-strokeWidth, strokeWidth, c.NRGBA(), true)
}

func (driver *Screen) FillCircle(cx, cy, radius float32, c renderer.Color) {
	vector.DrawFilledCircle(driver.screen, cx, cy, radius, c.NRGBA(), true)
}

func (driver *Screen) StrokeCircle(cx, cy, radius, strokeWidth float32, c renderer.Color) {
	vector.StrokeCircle(driver.screen, cx, cy, radius-strokeWidth/2, strokeWidth, c.NRGBA(), true)
}

func (driver *Screen) DrawText(str string, size float32, cx, cy float32, c renderer.Color) {
	if driver.fontSource == nil {
		return
	}
	face := &text.GoTextFace{
		Source: driver.fontSource,
		Size:   float64(size),
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(cx), float64(cy))
	op.ColorScale.ScaleWithColor(c.NRGBA())
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	text.Draw(driver.screen, str, face, op)
}

func (driver *Screen) Snapshot() (*image.RGBA, error) {
	bounds := driver.screen.Bounds()
	img := image.NewRGBA(bounds)
	// the screen is opaque so premultiplied alpha is the same as straight alpha
	driver.screen.ReadPixels(img.Pix)
	return img, nil
}
