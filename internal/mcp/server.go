package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oscillatelabsllc/nflpicker/internal/models"
	"github.com/oscillatelabsllc/nflpicker/internal/notebook"
	"github.com/oscillatelabsllc/nflpicker/internal/session"
	"github.com/rs/zerolog"
)

const version = "1.0.0"

// Server exposes the picking environment as MCP tools. Notebook tools act on
// the scratchpad of the configured identity.
type Server struct {
	env       *session.Environment
	notebooks *notebook.Store
	identity  string
	log       zerolog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server
func NewServer(env *session.Environment, notebooks *notebook.Store, identity string, log zerolog.Logger) *Server {
	s := &Server{
		env:       env,
		notebooks: notebooks,
		identity:  identity,
		log:       log.With().Str("component", "mcp").Logger(),
	}

	s.mcpServer = server.NewMCPServer(
		"NFL Picker",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(Instructions(notebooks.MaxTokens())),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "start_week",
		Description: "Start a picking session for an NFL week. Returns the games with consensus spreads, the unit budget and the search budget. Starting again discards the current session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"week": map[string]interface{}{
					"type":        "integer",
					"description": "NFL week number (1-18)",
				},
				"day": map[string]interface{}{
					"type":        "string",
					"description": "Optional weekday filter (e.g. 'sunday'). Omit to pick the whole week.",
				},
			},
			Required: []string{"week"},
		},
	}, s.handleStartWeek)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "search_web_exa",
		Description: "Search the web. Each successful search uses one unit of this week's search budget (3 per game, pooled). Failed searches are free.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"include_domains": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Only return results from these domains. Optional.",
				},
				"exclude_domains": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Never return results from these domains. Optional.",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Result category such as 'news'. Optional.",
				},
			},
			Required: []string{"query"},
		},
	}, s.handleSearchWeb)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "read_scratchpad",
		Description: "Read your persistent scratchpad. Empty until you write to it.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
			Required:   []string{},
		},
	}, s.handleReadScratchpad)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "write_scratchpad",
		Description: "Write to your persistent scratchpad. Appends by default; set append=false to replace everything. Writes that would exceed the token limit are rejected and change nothing.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Text to write",
				},
				"append": map[string]interface{}{
					"type":        "boolean",
					"description": "Append to existing notes (default: true)",
				},
				"week": map[string]interface{}{
					"type":        "integer",
					"description": "Current week number, recorded as the last week updated",
				},
			},
			Required: []string{"content"},
		},
	}, s.handleWriteScratchpad)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "search_scratchpad",
		Description: "Find a term in your scratchpad. Returns up to 3 matches with one line of context on each side.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Term to look for (case-insensitive)",
				},
			},
			Required: []string{"query"},
		},
	}, s.handleSearchScratchpad)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "scratchpad_stats",
		Description: "Token usage and last update week of your scratchpad",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
			Required:   []string{},
		},
	}, s.handleScratchpadStats)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_picks",
		Description: "Submit picks for every game at once. Units must total exactly 50 and each game needs at least 1 unit. Rejections explain what to fix; an accepted submission closes the session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"predictions": map[string]interface{}{
					"type":        "object",
					"description": "Map of game_id to {\"pick\": team name or 'home'/'away', \"units\": integer}",
					"additionalProperties": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"pick":  map[string]interface{}{"type": "string"},
							"units": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"pick", "units"},
					},
				},
			},
			Required: []string{"predictions"},
		},
	}, s.handleSubmitPicks)
}

// parseParams converts MCP request arguments to a struct
func parseParams(args interface{}, target interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handleStartWeek(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Week int    `json:"week"`
		Day  string `json:"day"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	sess, err := s.env.Start(ctx, params.Week, params.Day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]interface{}{
		"instructions": Instructions(s.notebooks.MaxTokens()),
		"session":      sess.Overview(),
	})
}

func (s *Server) handleSearchWeb(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req models.SearchRequest
	if err := parseParams(request.Params.Arguments, &req); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	return jsonResult(s.env.Search(ctx, req))
}

func (s *Server) handleReadScratchpad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := s.notebooks.Read(ctx, s.identity)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read scratchpad: %v", err)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) handleWriteScratchpad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Content string `json:"content"`
		Append  *bool  `json:"append"`
		Week    *int   `json:"week"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	appendMode := true
	if params.Append != nil {
		appendMode = *params.Append
	}

	result, err := s.notebooks.Write(ctx, s.identity, params.Content, appendMode, params.Week)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write scratchpad: %v", err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleSearchScratchpad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Query string `json:"query"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	found, err := s.notebooks.Search(ctx, s.identity, params.Query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search scratchpad: %v", err)), nil
	}
	return mcp.NewToolResultText(found), nil
}

func (s *Server) handleScratchpadStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.notebooks.Stats(ctx, s.identity)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read scratchpad stats: %v", err)), nil
	}
	return jsonResult(stats)
}

func (s *Server) handleSubmitPicks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Predictions models.Predictions `json:"predictions"`
	}

	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	result, err := s.env.Submit(ctx, params.Predictions)
	if errors.Is(err, session.ErrNoSession) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to record predictions")
		return mcp.NewToolResultError(fmt.Sprintf("failed to record predictions: %v", err)), nil
	}
	return jsonResult(result)
}

// Serve starts the MCP server with stdio transport
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// GetMCPServer returns the underlying MCP server for use with other transports (e.g., SSE)
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
