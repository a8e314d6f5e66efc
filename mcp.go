package pybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Re-export MCP SDK types used by the tool server surface.
type (
	// CallToolResult is the server's response to a tool call.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// McpTool represents an MCP tool definition from the official SDK.
	McpTool = mcp.Tool

	// McpToolHandler is the function signature for tool handlers.
	McpToolHandler = mcp.ToolHandler
)

// ToolServer exposes a module's contract methods as MCP tools, so agent
// hosts can call bridged interpreter code directly.
//
// Each declared method becomes one tool named <module>__<method> taking a
// single "args" array mirroring the method's positional arguments. Unary
// methods return their single value; stream methods return the full
// collected sequence.
type ToolServer struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*moduleTool
}

// moduleTool holds tool metadata and handler for the internal registry.
type moduleTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewToolServer creates a tool server exposing every declared method of
// the given modules.
func NewToolServer(name, version string, modules ...*Module) *ToolServer {
	s := &ToolServer{
		name:    name,
		version: version,
		tools:   make(map[string]*moduleTool, 8),
	}

	for _, module := range modules {
		s.AddModule(module)
	}

	return s
}

// Name returns the server name.
func (s *ToolServer) Name() string {
	return s.name
}

// Version returns the server version.
func (s *ToolServer) Version() string {
	return s.version
}

// AddModule registers one tool per method declared in the module's
// contract. Tool names are <module>__<method>.
func (s *ToolServer) AddModule(module *Module) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, methodName := range module.Contract().Methods() {
		toolName := module.Name() + "__" + methodName

		spec, _ := module.Contract().lookup(methodName)

		description := fmt.Sprintf("Invoke %s.%s in the bridged interpreter", module.Name(), methodName)
		if spec.stream {
			description += " (streams; the full sequence is returned)"
		}

		s.tools[toolName] = &moduleTool{
			tool: &mcp.Tool{
				Name:        toolName,
				Description: description,
				InputSchema: argsSchema(),
			},
			handler: methodHandler(module, methodName, spec.stream),
		}
	}
}

// Tools returns the registered tool definitions, for advertising via an
// MCP server transport.
func (s *ToolServer) Tools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t.tool)
	}

	return tools
}

// CallTool executes a registered tool by name.
func (s *ToolServer) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return errorResult("tool not found: " + name), nil
	}

	argBytes, err := json.Marshal(arguments)
	if err != nil {
		return errorResult("failed to marshal arguments: " + err.Error()), nil
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argBytes,
		},
	}

	return t.handler(ctx, req)
}

// argsSchema is the input schema every bridged tool shares: one "args"
// array mirroring the remote method's positional arguments.
func argsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"args": {
				Type:        "array",
				Description: "Positional arguments for the remote method",
			},
		},
	}
}

// methodHandler adapts one contract method to an mcp.ToolHandler.
func methodHandler(module *Module, methodName string, stream bool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := parseArgs(req)
		if err != nil {
			return errorResult("failed to parse arguments: " + err.Error()), nil
		}

		var result any

		if stream {
			var values []any

			for value, err := range module.Stream(ctx, methodName, args...) {
				if err != nil {
					return errorResult(err.Error()), nil
				}

				values = append(values, value)
			}

			result = values
		} else {
			result, err = module.Invoke(ctx, methodName, args...)
			if err != nil {
				return errorResult(err.Error()), nil
			}
		}

		data, err := json.Marshal(result)
		if err != nil {
			return errorResult("failed to marshal result: " + err.Error()), nil
		}

		return textResult(string(data)), nil
	}
}

// parseArgs extracts the positional "args" array from a tool request.
func parseArgs(req *mcp.CallToolRequest) ([]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil, nil
	}

	var input struct {
		Args []any `json:"args"`
	}

	if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}

	return input.Args, nil
}

// textResult creates a CallToolResult with text content.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errorResult creates a CallToolResult indicating an error.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
