// ent is the entity package
package ent

import (
	"github.com/silbinarywolf/simple-game/internal/renderer"
)

// Interaction is the pointer state of a button
type Interaction int

const (
	InteractionNone Interaction = iota
	InteractionHovered
	InteractionPressed
)

func (i Interaction) String() string {
	switch i {
	case InteractionNone:
		return "none"
	case InteractionHovered:
		return "hovered"
	case InteractionPressed:
		return "pressed"
	}
	return "unknown"
}

const (
	ButtonWidth       float32 = 200
	ButtonHeight      float32 = 80
	ButtonBorderWidth float32 = 3
	ButtonFontSize    float32 = 24
	buttonShadow      float32 = 4
)

var (
	ButtonColorNone    = renderer.RGB(0.4, 0.6, 0.8)
	ButtonColorHovered = renderer.RGB(0.5, 0.7, 0.9)
	ButtonColorPressed = renderer.RGB(0.3, 0.5, 0.7)

	buttonBorderColor = renderer.RGB(0.1, 0.1, 0.1)
	buttonShadowColor = renderer.Color{A: 0.3}
	buttonTextColor   = renderer.RGB(1, 1, 1)
)

type Button struct {
	// TestID is the stable name test runners look the button up by
	TestID string
	Label  string
	Rect   renderer.Rect
	Color  renderer.Color

	interaction Interaction
	// changed is set whenever interaction is assigned, even to the same
	// value, so a repeated click is still a click
	changed bool
}

// NewButton creates a button centered on (cx, cy)
func NewButton(testID, label string, cx, cy float32) *Button {
	return &Button{
		TestID: testID,
		Label:  label,
		Rect: renderer.Rect{
			X:      cx - ButtonWidth/2,
			Y:      cy - ButtonHeight/2,
			Width:  ButtonWidth,
			Height: ButtonHeight,
		},
		Color: ButtonColorNone,
	}
}

func (self *Button) Interaction() Interaction {
	return self.interaction
}

// SetInteraction marks the button as changed even if the value is the same
func (self *Button) SetInteraction(v Interaction) {
	self.interaction = v
	self.changed = true
}

// Changed reports if SetInteraction was called since the last ClearChanged
func (self *Button) Changed() bool {
	return self.changed
}

func (self *Button) ClearChanged() {
	self.changed = false
}

// UpdateColor sets the color for the current interaction
func (self *Button) UpdateColor() {
	switch self.interaction {
	case InteractionPressed:
		self.Color = ButtonColorPressed
	case InteractionHovered:
		self.Color = ButtonColorHovered
	default:
		self.Color = ButtonColorNone
	}
}

func (self *Button) Contains(x, y float32) bool {
	return self.Rect.Contains(x, y)
}

func (self *Button) Draw(screen renderer.Screen) {
	shadow := self.Rect
	shadow.X += buttonShadow
	shadow.Y += buttonShadow
	screen.FillRect(shadow, buttonShadowColor)
	screen.FillRect(self.Rect, self.Color)
	screen.StrokeRect(self.Rect, ButtonBorderWidth, buttonBorderColor)
	cx, cy := self.Rect.Center()
	screen.DrawText(self.Label, ButtonFontSize, cx, cy, buttonTextColor)
}
