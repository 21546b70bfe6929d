//go:build !headless
// +build !headless

package app

import (
	"github.com/silbinarywolf/simple-game/internal/renderer"
	"github.com/silbinarywolf/simple-game/internal/renderer/ebiten"
)

func getRenderDriver() renderer.App {
	return new(ebiten.App)
}
