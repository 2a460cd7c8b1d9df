// Package mcpserver exposes the page-selection pipeline as an MCP tool so
// agents can call it over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pvdbleek/pagegrab/internal/fetch"
	"github.com/pvdbleek/pagegrab/internal/grab"
)

// Server wraps an MCP server with the pagegrab_select tool registered.
type Server struct {
	mcpServer *server.MCPServer
}

// New creates a Server advertising the given version.
func New(version string) *Server {
	mcpServer := server.NewMCPServer(
		"pagegrab",
		version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	selectTool := mcp.NewTool("pagegrab_select",
		mcp.WithDescription("Download a web page and extract content matching a CSS selector"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to download"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector to apply; omit to return the whole page body"),
		),
		mcp.WithString("attribute",
			mcp.Description("Return this attribute's value for each matched element"),
		),
		mcp.WithBoolean("text",
			mcp.Description("Return text content instead of HTML for matched elements"),
		),
		mcp.WithNumber("count",
			mcp.Description("Maximum number of results to return"),
		),
	)
	mcpServer.AddTool(selectTool, handleSelectRequest)

	return &Server{mcpServer: mcpServer}
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// handleSelectRequest handles pagegrab_select tool calls. Fetching is quiet:
// progress output has no place on an MCP transport.
func handleSelectRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetURL, ok := request.Params.Arguments["url"].(string)
	if !ok || targetURL == "" {
		return mcp.NewToolResultError("Missing or invalid target URL"), nil
	}

	req := grab.Request{URL: targetURL}
	if selector, ok := request.Params.Arguments["selector"].(string); ok {
		req.Selector = selector
	}
	if attribute, ok := request.Params.Arguments["attribute"].(string); ok {
		req.Attribute = attribute
	}
	if text, ok := request.Params.Arguments["text"].(bool); ok {
		req.TextMode = text
	}
	if count, ok := request.Params.Arguments["count"].(float64); ok {
		if count < 0 {
			return mcp.NewToolResultError("count must not be negative"), nil
		}
		req.Count = int(count)
	}

	grabber := grab.New(fetch.NewHTTPFetcher(fetch.Options{Quiet: true}))
	result, err := grabber.Grab(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error selecting from %s: %v", targetURL, err)), nil
	}

	if !result.Selected {
		return mcp.NewToolResultText(result.Body), nil
	}
	return mcp.NewToolResultText(strings.Join(result.Units, "\n")), nil
}
