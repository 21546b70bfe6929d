//go:build !headless
// +build !headless

package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const hasPointer = true

func isKeyPressed(key Key) bool {
	switch key {
	case KeyEscape:
		return ebiten.IsKeyPressed(ebiten.KeyEscape)
	}
	return false
}

func isMouseButtonPressed(mouseButton MouseButton) bool {
	return ebiten.IsMouseButtonPressed(ebiten.MouseButton(mouseButton))
}

func isMouseButtonJustPressed(mouseButton MouseButton) bool {
	return inpututil.IsMouseButtonJustPressed(ebiten.MouseButton(mouseButton))
}

func mousePosition() (int, int) {
	x, y := ebiten.CursorPosition()
	return x, y
}

func touchIDs() []TouchID {
	touchIDs := ebiten.AppendTouchIDs(nil)
	if len(touchIDs) == 0 {
		return nil
	}
	r := make([]TouchID, len(touchIDs))
	for i, touchID := range touchIDs {
		r[i] = TouchID(touchID)
	}
	return r
}

func touchPosition(touchID TouchID) (int, int) {
	x, y := ebiten.TouchPosition(ebiten.TouchID(touchID))
	return x, y
}

func isTouchJustPressed(touchID TouchID) bool {
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		if TouchID(id) == touchID {
			return true
		}
	}
	return false
}
