// renderer hides the drawing backend so the game can be built with ebiten
// or, with the "headless" build tag, without a window or GPU.
package renderer

import (
	"github.com/silbinarywolf/simple-game/internal/renderer/internal/rendereriface"
)

type Color = rendereriface.Color

type Rect = rendereriface.Rect

type Game = rendereriface.Game

type Screen = rendereriface.Screen

// App is implemented by each driver
type App = rendereriface.App

var ErrTermination = rendereriface.ErrTermination

func RGB(r, g, b float32) Color {
	return rendereriface.RGB(r, g, b)
}
