// headless is the driver for running the game without a window or GPU, ie.
// on CI machines. Frames are still drawn into memory so screenshots work.
package headless

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/silbinarywolf/simple-game/internal/renderer"
)

// TickRate matches ebiten's default of 60 updates per second
const TickRate = time.Second / 60

var _ renderer.App = new(App)

type App struct {
	width, height int
	font          *opentype.Font
}

func (app *App) SetRunnableOnUnfocused(v bool) {
	// n/a for headless
}

func (app *App) SetWindowSize(width, height int) {
	app.width = width
	app.height = height
}

func (app *App) SetWindowTitle(title string) {
	// n/a for headless
}

func (app *App) SetFont(data []byte) error {
	if len(data) >= 4 && string(data[:4]) == "ttcf" {
		collection, err := opentype.ParseCollection(data)
		if err != nil {
			return errors.Wrap(err, "unable to parse font collection")
		}
		f, err := collection.Font(0)
		if err != nil {
			return errors.Wrap(err, "unable to get first font in collection")
		}
		app.font = f
		return nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return errors.Wrap(err, "unable to parse font")
	}
	app.font = f
	return nil
}

func (app *App) RunGame(game renderer.Game) error {
	screen := NewScreen(app.width, app.height, app.font)
	tick := time.NewTicker(TickRate)
	defer tick.Stop()
	for range tick.C {
		if err := game.Update(); err != nil {
			if errors.Is(err, renderer.ErrTermination) {
				return nil
			}
			return err
		}
		width, height := game.Layout(app.width, app.height)
		screen.Reset(width, height)
		game.Draw(screen)
	}
	return nil
}

// Screen draws into an in-memory RGBA image
type Screen struct {
	canvas     *image.RGBA
	rasterizer *vector.Rasterizer
	font       *opentype.Font
	faces      map[float32]font.Face
}

var _ renderer.Screen = new(Screen)

func NewScreen(width, height int, f *opentype.Font) *Screen {
	screen := &Screen{
		font:  f,
		faces: make(map[float32]font.Face),
	}
	screen.Reset(width, height)
	return screen
}

// Reset resizes the canvas if needed and clears it to transparent black,
// the same state ebiten gives each frame.
func (s *Screen) Reset(width, height int) {
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}
	if s.canvas == nil || s.canvas.Bounds().Dx() != width || s.canvas.Bounds().Dy() != height {
		s.canvas = image.NewRGBA(image.Rect(0, 0, width, height))
		s.rasterizer = vector.NewRasterizer(width, height)
		return
	}
	for i := range s.canvas.Pix {
		s.canvas.Pix[i] = 0
	}
}

// Image is the canvas drawn to so far
func (s *Screen) Image() *image.RGBA {
	return s.canvas
}

func (s *Screen) Fill(c renderer.Color) {
	draw.Draw(s.canvas, s.canvas.Bounds(), image.NewUniform(c.NRGBA()), image.Point{}, draw.Src)
}

func (s *Screen) FillRect(r renderer.Rect, c renderer.Color) {
	z := s.beginPath()
	addRect(z, r.X, r.Y, r.Width, r.Height, false)
	s.endPath(z, c)
}

func (s *Screen) StrokeRect(r renderer.Rect, strokeWidth float32, c renderer.Color) {
	z := s.beginPath()
	addRect(z, r.X, r.Y, r.Width, r.Height, false)
	addRect(z, r.X+strokeWidth, r.Y+strokeWidth, r.Width-strokeWidth*2, r.Height-strokeWidth*2, true)
	s.endPath(z, c)
}

func (s *Screen) FillCircle(cx, cy, radius float32, c renderer.Color) {
	z := s.beginPath()
	addCircle(z, cx, cy, radius, false)
	s.endPath(z, c)
}

func (s *Screen) StrokeCircle(cx, cy, radius, strokeWidth float32, c renderer.Color) {
	z := s.beginPath()
	addCircle(z, cx, cy, radius, false)
	addCircle(z, cx, cy, radius-strokeWidth, true)
	s.endPath(z, c)
}

func (s *Screen) DrawText(str string, size float32, cx, cy float32, c renderer.Color) {
	face := s.face(size)
	if face == nil {
		return
	}
	metrics := face.Metrics()
	d := &font.Drawer{
		Dst:  s.canvas,
		Src:  image.NewUniform(c.NRGBA()),
		Face: face,
	}
	width := d.MeasureString(str)
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(cx*64) - width/2,
		Y: fixed.Int26_6(cy*64) + (metrics.Ascent-metrics.Descent)/2,
	}
	d.DrawString(str)
}

func (s *Screen) Snapshot() (*image.RGBA, error) {
	img := image.NewRGBA(s.canvas.Bounds())
	copy(img.Pix, s.canvas.Pix)
	return img, nil
}

func (s *Screen) face(size float32) font.Face {
	if s.font == nil {
		return nil
	}
	if face, ok := s.faces[size]; ok {
		return face
	}
	face, err := opentype.NewFace(s.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}
	s.faces[size] = face
	return face
}

func (s *Screen) beginPath() *vector.Rasterizer {
	bounds := s.canvas.Bounds()
	s.rasterizer.Reset(bounds.Dx(), bounds.Dy())
	s.rasterizer.DrawOp = draw.Over
	return s.rasterizer
}

func (s *Screen) endPath(z *vector.Rasterizer, c renderer.Color) {
	z.Draw(s.canvas, s.canvas.Bounds(), image.NewUniform(color.Color(c.NRGBA())), image.Point{})
}

// addRect adds a closed rect, reverse winds it counter-clockwise to cut a hole
func addRect(z *vector.Rasterizer, x, y, w, h float32, reverse bool) {
	if w <= 0 || h <= 0 {
		return
	}
	if reverse {
		z.MoveTo(x, y)
		z.LineTo(x, y+h)
		z.LineTo(x+w, y+h)
		z.LineTo(x+w, y)
	} else {
		z.MoveTo(x, y)
		z.LineTo(x+w, y)
		z.LineTo(x+w, y+h)
		z.LineTo(x, y+h)
	}
	z.ClosePath()
}

// kappa places cubic bezier control points to approximate a quarter circle
const kappa = 0.5522847498

// addCircle adds a closed circle, reverse winds it counter-clockwise to cut a hole
func addCircle(z *vector.Rasterizer, cx, cy, r float32, reverse bool) {
	if r <= 0 {
		return
	}
	k := r * kappa
	if reverse {
		z.MoveTo(cx+r, cy)
		z.CubeTo(cx+r, cy-k, cx+k, cy-r, cx, cy-r)
		z.CubeTo(cx-k, cy-r, cx-r, cy-k, cx-r, cy)
		z.CubeTo(cx-r, cy+k, cx-k, cy+r, cx, cy+r)
		z.CubeTo(cx+k, cy+r, cx+r, cy+k, cx+r, cy)
	} else {
		z.MoveTo(cx+r, cy)
		z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
		z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
		z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
		z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	}
	z.ClosePath()
}
