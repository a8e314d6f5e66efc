package pybridge

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func toolText(t *testing.T, result *CallToolResult) string {
	t.Helper()

	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")

	return text.Text
}

func newToolServerModule(t *testing.T, transport *scriptedTransport) *Module {
	t.Helper()

	contract := mustContract(t, map[string]MethodSpec{
		"row_count": {},
		"scan_rows": {Stream: true},
	})

	return openTestModule(t, transport, contract)
}

func TestToolServerRegistersContractMethods(t *testing.T) {
	transport := newScriptedTransport()
	mod := newToolServerModule(t, transport)

	server := NewToolServer("reports", "1.0.0", mod)
	require.Equal(t, "reports", server.Name())
	require.Equal(t, "1.0.0", server.Version())

	tools := server.Tools()
	require.Len(t, tools, 2)

	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		names[tool.Name] = true
		require.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
	}

	require.True(t, names["app.worker__row_count"])
	require.True(t, names["app.worker__scan_rows"])
}

func TestToolServerCallsUnaryMethod(t *testing.T) {
	transport := newScriptedTransport()
	transport.respondWith(map[string][]any{"row_count": {42}})

	server := NewToolServer("reports", "1.0.0", newToolServerModule(t, transport))

	result, err := server.CallTool(context.Background(), "app.worker__row_count",
		map[string]any{"args": []any{"2026-08"}})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "42", toolText(t, result))

	sent := transport.sentRequests()
	require.Len(t, sent, 1)
	require.Equal(t, []any{"2026-08"}, sent[0].Args)
}

func TestToolServerCollectsStreamMethod(t *testing.T) {
	transport := newScriptedTransport()
	transport.respondWith(map[string][]any{"scan_rows": {"a", "b", "c"}})

	server := NewToolServer("reports", "1.0.0", newToolServerModule(t, transport))

	result, err := server.CallTool(context.Background(), "app.worker__scan_rows", nil)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.JSONEq(t, `["a","b","c"]`, toolText(t, result))
}

func TestToolServerReportsRemoteFailure(t *testing.T) {
	transport := newScriptedTransport()
	transport.respondWith(map[string][]any{}) // every method errors

	server := NewToolServer("reports", "1.0.0", newToolServerModule(t, transport))

	result, err := server.CallTool(context.Background(), "app.worker__row_count", nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, toolText(t, result), "AttributeError")
}

func TestToolServerUnknownTool(t *testing.T) {
	server := NewToolServer("reports", "1.0.0")

	result, err := server.CallTool(context.Background(), "nope__nothing", nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, toolText(t, result), "tool not found")
}
