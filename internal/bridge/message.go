package bridge

// Message is an instruction for the game loop
type Message interface {
	// Name is used for logging
	Name() string
}

// Hover moves the virtual pointer over (X, Y)
type Hover struct {
	X, Y float32
}

func (Hover) Name() string { return "hover" }

// Click presses the virtual pointer at (X, Y)
type Click struct {
	X, Y float32
}

func (Click) Name() string { return "click" }

// Screenshot saves the next rendered frame as a PNG at Path
type Screenshot struct {
	Path string
}

func (Screenshot) Name() string { return "screenshot" }

// QueryComponents asks for the amount of each component type in the world.
// The reply data is a map[string]int.
type QueryComponents struct{}

func (QueryComponents) Name() string { return "query_components" }

// Locate asks where the widget with the given test id is.
// The reply data is a LocateResult.
type Locate struct {
	TestID string
}

func (Locate) Name() string { return "locate" }

// Bounds is the screen-space rectangle of a widget
type Bounds struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Width   float32 `json:"width"`
	Height  float32 `json:"height"`
	CenterX float32 `json:"center_x"`
	CenterY float32 `json:"center_y"`
}

// NewBounds fills in the center point for you
func NewBounds(x, y, width, height float32) Bounds {
	return Bounds{
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		CenterX: x + width/2,
		CenterY: y + height/2,
	}
}

// LocateResult is the reply data for Locate
type LocateResult struct {
	Found  bool
	Bounds Bounds
	// Known are the test ids that do exist, used to suggest a fix for typos
	Known []string
}
