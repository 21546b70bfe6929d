package rendereriface

import (
	"errors"
	"image"
	"image/color"
)

// ErrTermination is returned from Game.Update to stop RunGame without an error
var ErrTermination = errors.New("regular termination")

// Color is RGBA with each channel from 0 to 1
type Color struct {
	R, G, B, A float32
}

// RGB is an opaque color
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: channel(c.R),
		G: channel(c.G),
		B: channel(c.B),
		A: channel(c.A),
	}
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

type Rect struct {
	X, Y          float32
	Width, Height float32
}

func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.Width &&
		y >= r.Y && y < r.Y+r.Height
}

func (r Rect) Center() (float32, float32) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Game interface was copy-pasted out of Ebiten
type Game interface {
	Update() error
	Draw(screen Screen)
	Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int)
}

type App interface {
	SetRunnableOnUnfocused(v bool)
	SetWindowSize(screenWidth, screenHeight int)
	SetWindowTitle(title string)
	// SetFont sets the TTF/OTF/TTC data used by DrawText
	SetFont(data []byte) error
	RunGame(game Game) error
}

type Screen interface {
	Fill(c Color)
	FillRect(r Rect, c Color)
	StrokeRect(r Rect, strokeWidth float32, c Color)
	FillCircle(cx, cy, radius float32, c Color)
	StrokeCircle(cx, cy, radius, strokeWidth float32, c Color)
	// DrawText draws text centered on (cx, cy)
	DrawText(text string, size float32, cx, cy float32, c Color)
	// Snapshot copies what has been drawn so far this frame
	Snapshot() (*image.RGBA, error)
}
