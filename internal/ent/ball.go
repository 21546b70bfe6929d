package ent

import (
	"github.com/silbinarywolf/simple-game/internal/renderer"
)

const (
	BallTestID              = "ball"
	BallSize        float32 = 30
	ballBorderWidth float32 = 2
)

var (
	BallColor       = renderer.RGB(1, 0.3, 0.3)
	ballBorderColor = renderer.RGB(1, 1, 1)
)

type Ball struct {
	// X, Y is the top-left corner
	X, Y float32
}

func (self *Ball) Rect() renderer.Rect {
	return renderer.Rect{
		X:      self.X,
		Y:      self.Y,
		Width:  BallSize,
		Height: BallSize,
	}
}

func (self *Ball) Draw(screen renderer.Screen) {
	radius := BallSize / 2
	cx, cy := self.X+radius, self.Y+radius
	screen.FillCircle(cx, cy, radius, BallColor)
	screen.StrokeCircle(cx, cy, radius, ballBorderWidth, ballBorderColor)
}
