package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/userpipe/internal/pipeline"
	"github.com/kalambet/userpipe/internal/storage"
)

const recentResultsLimit = 10

// NewMCPServer creates an MCP server exposing the pipeline as tools.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"userpipe",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("userpipe fetches user records, analyzes them, stores the results and sends a completion notification."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("run_pipeline",
			mcp.WithDescription("Run one pipeline batch and return the full report."),
			mcp.WithString("email", mcp.Description("Destination for the completion notification"), mcp.Required()),
			mcp.WithString("source", mcp.Description("Label stored with each result (default \""+pipeline.DefaultSource+"\")")),
		),
		mcpRunPipeline(deps),
	)

	s.AddTool(
		mcp.NewTool("list_results",
			mcp.WithDescription("List stored results, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10, max 100)")),
		),
		mcpListResults(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"results://recent",
			"Recent Results",
			mcp.WithResourceDescription("Last 10 stored results"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpRunPipeline(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		preq := pipeline.Request{
			Email:  req.GetString("email", ""),
			Source: req.GetString("source", pipeline.DefaultSource),
		}

		resp, err := deps.Pipeline.Run(ctx, preq)
		var ve *pipeline.ValidationError
		if errors.As(err, &ve) {
			return mcpError(ve.Message), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("pipeline failed: %v", err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListResults(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", recentResultsLimit)
		if limit <= 0 {
			limit = recentResultsLimit
		}
		if limit > 100 {
			limit = 100
		}

		results, err := deps.Results.ListResults(ctx, limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list results: %v", err)), nil
		}
		if results == nil {
			results = []storage.Result{}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		results, err := deps.Results.ListResults(ctx, recentResultsLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent results: %w", err)
		}
		if results == nil {
			results = []storage.Result{}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal results: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
