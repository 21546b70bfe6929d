// input wraps ebiten's keyboard, mouse and touch state so the headless build
// doesn't link ebiten.
package input

// Key represents a keyboard key.
type Key int32

// Only defining keys used by this game, they are mapped to ebiten keys
// in input_noheadless.go so ebiten isn't included for headless builds
const (
	KeyEscape Key = iota + 1
)

func IsKeyPressed(key Key) bool {
	return isKeyPressed(key)
}

// MouseButton represents a mouse button (left, right or middle)
type MouseButton int32

// Define all mouse buttons as there are only 3.
//
// We indirectly use ebiten constants so that ebiten isn't included
// as a package for headless builds
const (
	MouseButtonLeft   = MouseButton(0)
	MouseButtonRight  = MouseButton(1)
	MouseButtonMiddle = MouseButton(2)
)

func IsMouseButtonPressed(mouseButton MouseButton) bool {
	return isMouseButtonPressed(mouseButton)
}

// IsMouseButtonJustPressed is true only on the frame the button went down
func IsMouseButtonJustPressed(mouseButton MouseButton) bool {
	return isMouseButtonJustPressed(mouseButton)
}

// MousePosition returns the mouse/cursor position
//
// For headless builds, this always returns (0,0)
func MousePosition() (int, int) {
	x, y := mousePosition()
	return x, y
}

type TouchID int

func TouchIDs() []TouchID {
	return touchIDs()
}

func TouchPosition(touchID TouchID) (int, int) {
	x, y := touchPosition(touchID)
	return x, y
}

// IsTouchJustPressed is true only on the frame the touch started
func IsTouchJustPressed(touchID TouchID) bool {
	return isTouchJustPressed(touchID)
}

// Pointer is the combined mouse and touch state for a frame
type Pointer struct {
	X, Y    int
	Pressed bool
	// JustPressed is only true on the frame the press started
	JustPressed bool
	// Present is false when nothing is pointing at the window, ie. headless
	Present bool
}

// CurrentPointer reads the pointer, the first touch wins over the mouse
func CurrentPointer() Pointer {
	for _, touchID := range TouchIDs() {
		x, y := TouchPosition(touchID)
		if x == 0 && y == 0 {
			// skip if not touching anything
			continue
		}
		return touchPointer(x, y, IsTouchJustPressed(touchID))
	}
	x, y := MousePosition()
	return Pointer{
		X:           x,
		Y:           y,
		Pressed:     IsMouseButtonPressed(MouseButtonLeft),
		JustPressed: IsMouseButtonJustPressed(MouseButtonLeft),
		Present:     hasPointer,
	}
}

// touchPointer is a touch seen as a held left mouse button
func touchPointer(x, y int, justPressed bool) Pointer {
	return Pointer{
		X:           x,
		Y:           y,
		Pressed:     true,
		JustPressed: justPressed,
		Present:     true,
	}
}
