package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/ent"
	"github.com/silbinarywolf/simple-game/internal/input"
	"github.com/silbinarywolf/simple-game/internal/logging"
	"github.com/silbinarywolf/simple-game/internal/renderer"
)

const (
	ScreenWidth  = 800
	ScreenHeight = 600

	MainButtonTestID = "main-button"
	MainButtonLabel  = "Click me"

	// ClickedMarker is logged with the test id whenever a button is pressed,
	// test runners grep the log for it
	ClickedMarker = "test-id-button-clicked: "
)

var backgroundColor = renderer.RGB(0.1, 0.1, 0.15)

type World struct {
	Buttons []*ent.Button
	Balls   []*ent.Ball

	log  *logging.Logger
	rand *rand.Rand

	lastPointer    input.Pointer
	hasLastPointer bool
}

func New(logger *logging.Logger, rng *rand.Rand) *World {
	if logger == nil {
		logger = logging.Discard()
	}
	return &World{
		log:  logger,
		rand: rng,
	}
}

// SetupUI creates the main button in the middle of the screen
func (world *World) SetupUI() {
	world.Buttons = append(world.Buttons, ent.NewButton(
		MainButtonTestID,
		MainButtonLabel,
		ScreenWidth/2,
		ScreenHeight/2,
	))
	world.log.Info("UI setup complete")
}

// HandleMessage applies a bridge message and replies. Screenshots are not
// handled here as they need the next drawn frame.
func (world *World) HandleMessage(req *bridge.Request) {
	switch msg := req.Message.(type) {
	case bridge.Hover:
		world.log.Info("hover received", "x", msg.X, "y", msg.Y)
		world.Hover(msg.X, msg.Y)
		req.ReplyOK(true)
	case bridge.Click:
		world.log.Info("click received", "x", msg.X, "y", msg.Y)
		world.Click(msg.X, msg.Y)
		req.ReplyOK(true)
	case bridge.QueryComponents:
		counts := world.CountComponents()
		world.log.Info(fmt.Sprintf("COMPONENT_COUNTS: Ball=%d, Button=%d", counts["Ball"], counts["Button"]))
		req.Reply(bridge.Reply{OK: true, Data: counts})
	case bridge.Locate:
		req.Reply(bridge.Reply{OK: true, Data: world.Locate(msg.TestID)})
	default:
		world.log.Warn("unhandled bridge message", "name", req.Message.Name())
		req.ReplyOK(false)
	}
}

// Hover makes buttons under (x, y) hovered and every other button not
func (world *World) Hover(x, y float32) {
	for _, button := range world.Buttons {
		if button.Contains(x, y) {
			button.SetInteraction(ent.InteractionHovered)
		} else {
			button.SetInteraction(ent.InteractionNone)
		}
	}
}

// Click presses buttons under (x, y)
func (world *World) Click(x, y float32) {
	for _, button := range world.Buttons {
		if button.Contains(x, y) {
			button.SetInteraction(ent.InteractionPressed)
		}
	}
}

// ApplyPointer updates buttons from the real mouse/touch, only when the
// pointer changed so interactions set over the bridge stick around.
func (world *World) ApplyPointer(pointer input.Pointer) {
	if !pointer.Present {
		return
	}
	if world.hasLastPointer && pointer == world.lastPointer {
		return
	}
	world.lastPointer = pointer
	world.hasLastPointer = true

	x, y := float32(pointer.X), float32(pointer.Y)
	for _, button := range world.Buttons {
		next := ent.InteractionNone
		if button.Contains(x, y) {
			next = ent.InteractionHovered
			if pointer.JustPressed ||
				(pointer.Pressed && button.Interaction() == ent.InteractionPressed) {
				next = ent.InteractionPressed
			}
		}
		if next != button.Interaction() {
			button.SetInteraction(next)
		}
	}
}

// Update handles button interaction changes then updates their visuals
func (world *World) Update() {
	for _, button := range world.Buttons {
		if !button.Changed() || button.Interaction() != ent.InteractionPressed {
			continue
		}
		world.log.Info(ClickedMarker + button.TestID)
		world.log.Info("button clicked!")
		ball := world.SpawnBall()
		world.log.Info(fmt.Sprintf("spawned a ball at (%.1f, %.1f)", ball.X-ScreenWidth/2, ball.Y-ScreenHeight/2))
	}
	for _, button := range world.Buttons {
		if !button.Changed() {
			continue
		}
		button.UpdateColor()
		switch button.Interaction() {
		case ent.InteractionPressed:
			world.log.Info("button visual: pressed")
		case ent.InteractionHovered:
			world.log.Info("button visual: hovered")
		}
		button.ClearChanged()
	}
}

// SpawnBall adds a ball at a random offset from the screen center,
// x in [-300, 300) and y in [-200, 200)
func (world *World) SpawnBall() *ent.Ball {
	x := world.rand.Float32()*600 - 300
	y := world.rand.Float32()*400 - 200
	ball := &ent.Ball{
		X: ScreenWidth/2 + x,
		Y: ScreenHeight/2 + y,
	}
	world.Balls = append(world.Balls, ball)
	return ball
}

// CountComponents returns the number of live entities per component type
func (world *World) CountComponents() map[string]int {
	return map[string]int{
		"Ball":   len(world.Balls),
		"Button": len(world.Buttons),
	}
}

// Locate finds the first entity with the test id
func (world *World) Locate(testID string) bridge.LocateResult {
	result := bridge.LocateResult{
		Known: world.testIDs(),
	}
	var (
		rect  renderer.Rect
		found bool
	)
	for _, button := range world.Buttons {
		if button.TestID == testID {
			rect, found = button.Rect, true
			break
		}
	}
	if !found && testID == ent.BallTestID && len(world.Balls) > 0 {
		rect, found = world.Balls[0].Rect(), true
	}
	if found {
		result.Found = true
		result.Bounds = bridge.NewBounds(rect.X, rect.Y, rect.Width, rect.Height)
	}
	return result
}

func (world *World) testIDs() []string {
	ids := make([]string, 0, len(world.Buttons)+1)
	for _, button := range world.Buttons {
		ids = append(ids, button.TestID)
	}
	if len(world.Balls) > 0 {
		ids = append(ids, ent.BallTestID)
	}
	sort.Strings(ids)
	return ids
}

func (world *World) Draw(screen renderer.Screen) {
	screen.Fill(backgroundColor)
	for _, ball := range world.Balls {
		ball.Draw(screen)
	}
	for _, button := range world.Buttons {
		button.Draw(screen)
	}
}
