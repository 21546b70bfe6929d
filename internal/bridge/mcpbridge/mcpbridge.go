// mcpbridge exposes bridge commands as MCP tools over SSE so agents can
// drive the game the same way the scenario runner does.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/silbinarywolf/simple-game/internal/bridge"
)

const (
	SSEPath     = "/sse"
	MessagePath = "/message"
)

type Server struct {
	dispatcher *bridge.Dispatcher
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
}

// New registers the game tools. baseURL is the externally visible address
// of the bridge server, ie. "http://127.0.0.1:9222".
func New(dispatcher *bridge.Dispatcher, name, version, baseURL string) *Server {
	s := &Server{
		dispatcher: dispatcher,
	}
	s.mcpServer = server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)
	s.mcpServer.AddTools(s.Tools()...)
	s.sseServer = server.NewSSEServer(
		s.mcpServer,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)
	return s
}

// Handler serves both the SSE stream and the message endpoint
func (s *Server) Handler() http.Handler {
	return s.sseServer
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.sseServer.Shutdown(ctx)
}

func (s *Server) Tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("hover",
				mcp.WithDescription("Move the pointer to a window coordinate"),
				mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate in window pixels")),
				mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate in window pixels")),
			),
			Handler: s.handleHover,
		},
		{
			Tool: mcp.NewTool("click",
				mcp.WithDescription("Press and release the left mouse button at a window coordinate"),
				mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate in window pixels")),
				mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate in window pixels")),
			),
			Handler: s.handleClick,
		},
		{
			Tool: mcp.NewTool("screenshot",
				mcp.WithDescription("Save the next rendered frame as a PNG"),
				mcp.WithString("path", mcp.Required(), mcp.Description("File path the PNG is written to")),
			),
			Handler: s.handleScreenshot,
		},
		{
			Tool: mcp.NewTool("query_components",
				mcp.WithDescription("Count live entities grouped by component type"),
			),
			Handler: s.handleQueryComponents,
		},
		{
			Tool: mcp.NewTool("locate",
				mcp.WithDescription("Get the on-screen bounds of an element by its test id"),
				mcp.WithString("test_id", mcp.Required(), mcp.Description("Test id of the element, ie. main-button")),
			),
			Handler: s.handleLocate,
		},
	}
}

func (s *Server) handleHover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handlePointer(ctx, "hover", request)
}

func (s *Server) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handlePointer(ctx, "click", request)
}

func (s *Server) handlePointer(ctx context.Context, action string, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, err := request.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError("x parameter is required"), nil
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError("y parameter is required"), nil
	}
	return s.run(ctx, action, map[string]interface{}{"x": x, "y": y})
}

func (s *Server) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required"), nil
	}
	return s.run(ctx, "screenshot", map[string]interface{}{"path": path})
}

func (s *Server) handleQueryComponents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, "query_components", nil)
}

func (s *Server) handleLocate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	testID, err := request.RequireString("test_id")
	if err != nil {
		return mcp.NewToolResultError("test_id parameter is required"), nil
	}
	return s.run(ctx, "locate", map[string]interface{}{"test_id": testID})
}

// run goes through the same command path as the websocket transport so
// every transport reports identical messages.
func (s *Server) run(ctx context.Context, action string, params map[string]interface{}) (*mcp.CallToolResult, error) {
	cmd, err := bridge.NewCommand(action, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build command: %v", err)), nil
	}
	resp := s.dispatcher.Handle(ctx, cmd)
	if !resp.Success {
		return mcp.NewToolResultError(resp.Message), nil
	}
	if resp.Data == nil {
		return mcp.NewToolResultText(resp.Message), nil
	}
	jsonData, err := json.Marshal(resp.Data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
