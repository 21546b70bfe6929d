package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/pkg/errors"

	"github.com/silbinarywolf/simple-game/internal/logging"
)

// Dispatcher turns commands into messages on the channel and waits on the
// game loop. It is safe to use from many goroutines.
type Dispatcher struct {
	channel *Channel
	log     *logging.Logger
	options DispatcherOptions
}

type DispatcherOptions struct {
	// CommandTimeout defaults to DefaultCommandTimeout
	CommandTimeout time.Duration
	// ScreenshotTimeout defaults to DefaultScreenshotTimeout
	ScreenshotTimeout time.Duration
}

func NewDispatcher(channel *Channel, logger *logging.Logger, options DispatcherOptions) *Dispatcher {
	if options.CommandTimeout <= 0 {
		options.CommandTimeout = DefaultCommandTimeout
	}
	if options.ScreenshotTimeout <= 0 {
		options.ScreenshotTimeout = DefaultScreenshotTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		channel: channel,
		log:     logger,
		options: options,
	}
}

func (d *Dispatcher) Hover(ctx context.Context, x, y float32) (bool, error) {
	d.log.Info("sending hover message", "x", x, "y", y)
	reply, err := d.channel.Send(ctx, Hover{X: x, Y: y}, d.options.CommandTimeout)
	return reply.OK, err
}

func (d *Dispatcher) Click(ctx context.Context, x, y float32) (bool, error) {
	d.log.Info("sending click message", "x", x, "y", y)
	reply, err := d.channel.Send(ctx, Click{X: x, Y: y}, d.options.CommandTimeout)
	return reply.OK, err
}

func (d *Dispatcher) Screenshot(ctx context.Context, path string) (bool, error) {
	d.log.Info("sending screenshot request", "path", path)
	reply, err := d.channel.Send(ctx, Screenshot{Path: path}, d.options.ScreenshotTimeout)
	return reply.OK, err
}

// QueryComponents returns the amount of each component type, ie. {"Ball": 1, "Button": 1}
func (d *Dispatcher) QueryComponents(ctx context.Context) (map[string]int, error) {
	reply, err := d.channel.Send(ctx, QueryComponents{}, d.options.CommandTimeout)
	if err != nil {
		return nil, err
	}
	counts, ok := reply.Data.(map[string]int)
	if !ok {
		return nil, errors.Errorf("unexpected reply data %T", reply.Data)
	}
	return counts, nil
}

func (d *Dispatcher) Locate(ctx context.Context, testID string) (LocateResult, error) {
	reply, err := d.channel.Send(ctx, Locate{TestID: testID}, d.options.CommandTimeout)
	if err != nil {
		return LocateResult{}, err
	}
	result, ok := reply.Data.(LocateResult)
	if !ok {
		return LocateResult{}, errors.Errorf("unexpected reply data %T", reply.Data)
	}
	return result, nil
}

// Handle executes a command and never fails, problems are reported in the Response
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) Response {
	d.log.Info("handling command", "action", cmd.Action)

	switch cmd.Action {
	case "health":
		return Response{Success: true, Message: "OK"}
	case "hover":
		return d.handleCoordinateCommand(ctx, cmd, "hover", d.Hover)
	case "click":
		return d.handleCoordinateCommand(ctx, cmd, "click", d.Click)
	case "screenshot":
		return d.handleScreenshot(ctx, cmd)
	case "query_components":
		return d.handleQueryComponents(ctx)
	case "locate":
		return d.handleLocate(ctx, cmd)
	default:
		return errorResponse("unknown command: " + cmd.Action)
	}
}

// HandleJSON decodes a Command and handles it, bad JSON gets a failed Response
func (d *Dispatcher) HandleJSON(ctx context.Context, data []byte) Response {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return errorResponse("invalid command: " + err.Error())
	}
	return d.Handle(ctx, cmd)
}

func (d *Dispatcher) handleCoordinateCommand(ctx context.Context, cmd Command, actionName string, send func(ctx context.Context, x, y float32) (bool, error)) Response {
	params, ok := cmd.params()
	if !ok {
		return errorResponse("missing params")
	}
	x, okX := params["x"].(float64)
	y, okY := params["y"].(float64)
	if !okX || !okY {
		return errorResponse("missing x, y coordinates")
	}
	ok, err := send(ctx, float32(x), float32(y))
	if err != nil {
		return errorResponse(actionName + ": " + err.Error())
	}
	if !ok {
		return errorResponse(actionName + " failed")
	}
	return Response{
		Success: true,
		Message: actionName + " completed",
	}
}

func (d *Dispatcher) handleScreenshot(ctx context.Context, cmd Command) Response {
	params, ok := cmd.params()
	if !ok {
		return errorResponse("missing params")
	}
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return errorResponse("missing path param")
	}
	ok, err := d.Screenshot(ctx, path)
	if err != nil {
		return errorResponse("screenshot: " + err.Error())
	}
	if !ok {
		return errorResponse("screenshot failed: " + path)
	}
	return Response{
		Success: true,
		Message: "screenshot completed: " + path,
	}
}

func (d *Dispatcher) handleQueryComponents(ctx context.Context) Response {
	counts, err := d.QueryComponents(ctx)
	switch {
	case errors.Is(err, ErrTimeout):
		return errorResponse("query timed out")
	case err != nil:
		return errorResponse("receive response failed")
	}
	return Response{
		Success: true,
		Message: "component query completed",
		Data:    counts,
	}
}

func (d *Dispatcher) handleLocate(ctx context.Context, cmd Command) Response {
	var testID string
	if params, ok := cmd.params(); ok {
		testID, _ = params["test_id"].(string)
	}
	if testID == "" && cmd.Selector != nil {
		testID = *cmd.Selector
	}
	if testID == "" {
		return errorResponse("missing test_id param")
	}
	result, err := d.Locate(ctx, testID)
	if err != nil {
		return errorResponse("locate: " + err.Error())
	}
	if !result.Found {
		message := fmt.Sprintf("unknown test id: %s", testID)
		if suggestion := closestTestID(testID, result.Known); suggestion != "" {
			message += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return Response{
			Success: false,
			Message: message,
			Data:    result.Known,
		}
	}
	return Response{
		Success: true,
		Message: "locate completed",
		Data:    result.Bounds,
	}
}

// closestTestID returns the known id closest to testID, or "" if none are close
func closestTestID(testID string, known []string) string {
	// sort so ties resolve the same way every time
	candidates := append([]string(nil), known...)
	sort.Strings(candidates)

	best := ""
	bestDistance := len(testID)/3 + 2
	for _, candidate := range candidates {
		if distance := levenshtein.ComputeDistance(testID, candidate); distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	return best
}
