package api

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/userpipe/internal/pipeline"
	"github.com/kalambet/userpipe/internal/storage"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_RunPipeline(t *testing.T) {
	deps, store := newTestDeps(t, fallbackOutcome())
	handler := mcpRunPipeline(deps)

	result, err := handler(context.Background(), makeCallToolRequest("run_pipeline", map[string]any{
		"email": "a@b.com",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var resp pipeline.Response
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if len(resp.Items) != 3 || !resp.NotificationSent {
		t.Errorf("resp = %+v", resp)
	}

	rows, err := store.ListResults(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(rows) != 3 || rows[0].Source != pipeline.DefaultSource {
		t.Errorf("rows = %+v", rows)
	}
}

func TestMCPTool_RunPipeline_MissingEmail(t *testing.T) {
	deps, store := newTestDeps(t, fallbackOutcome())
	handler := mcpRunPipeline(deps)

	result, err := handler(context.Background(), makeCallToolRequest("run_pipeline", map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if got := toolText(t, result); got != pipeline.MsgEmailRequired {
		t.Errorf("message = %q", got)
	}
	if n, _ := store.CountResults(context.Background()); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestMCPTool_ListResults(t *testing.T) {
	deps, _ := newTestDeps(t, fallbackOutcome())
	if _, err := mcpRunPipeline(deps)(context.Background(), makeCallToolRequest("run_pipeline", map[string]any{
		"email":  "a@b.com",
		"source": "crm",
	})); err != nil {
		t.Fatalf("run: %v", err)
	}

	result, err := mcpListResults(deps)(context.Background(), makeCallToolRequest("list_results", map[string]any{
		"limit": 2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var rows []storage.Result
	if err := json.Unmarshal([]byte(toolText(t, result)), &rows); err != nil {
		t.Fatalf("parsing rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Source != "crm" {
		t.Errorf("source = %q", rows[0].Source)
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps, _ := newTestDeps(t, fallbackOutcome())
	handler := mcpResourceRecent(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "results://recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.Text != "[]" {
		t.Errorf("text = %q, want []", tc.Text)
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestDeps(t, fallbackOutcome())
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
