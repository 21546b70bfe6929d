//go:build headless
// +build headless

package app

import (
	"github.com/silbinarywolf/simple-game/internal/renderer"
	"github.com/silbinarywolf/simple-game/internal/renderer/headless"
)

func getRenderDriver() renderer.App {
	return new(headless.App)
}
