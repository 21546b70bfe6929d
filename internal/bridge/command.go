package bridge

import (
	"bytes"
	"encoding/json"
)

// Command is what a test runner sends over the wire, ie.
//
//	{"action": "click", "params": {"x": 400, "y": 300}}
type Command struct {
	Action   string          `json:"action"`
	Selector *string         `json:"selector,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Response is sent back for every Command
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func errorResponse(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// params decodes Params as a JSON object, returns false if missing or not an object
func (cmd *Command) params() (map[string]interface{}, bool) {
	raw := bytes.TrimSpace(cmd.Params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, false
	}
	return params, true
}

// NewCommand builds a command, params is marshalled as JSON
func NewCommand(action string, params interface{}) (Command, error) {
	cmd := Command{
		Action: action,
	}
	if params == nil {
		return cmd, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return cmd, err
	}
	cmd.Params = data
	return cmd, nil
}
