package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolCategory groups related tools.
type ToolCategory struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tools       []ToolInfo `json:"tools"`
}

// ToolInfo contains metadata about a tool.
type ToolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
	Optional    []string `json:"optional,omitempty"`
}

var toolCategories = []ToolCategory{
	{
		Name:        "resolve",
		Description: "Pick the one thing the user should do next",
		Tools: []ToolInfo{
			{Name: "resolve_next_action", Description: "Primary action from plan, personalization and current route", Optional: []string{"plan", "personalization", "current_route"}},
			{Name: "resolve_starter_action", Description: "Starter block action from the plan alone", Optional: []string{"plan"}},
			{Name: "compose_today", Description: "Full Today decision with session overlays", Optional: []string{"plan", "personalization", "signals", "current_route", "just_completed"}},
		},
	},
	{
		Name:        "visibility",
		Description: "Classify the user and decide which dashboard sections show",
		Tools: []ToolInfo{
			{Name: "resolve_user_state", Description: "User state from raw signals", Optional: []string{"signals"}},
			{Name: "get_today_visibility", Description: "Section flags for a user state", Optional: []string{"state", "signals"}},
		},
	},
	{
		Name:        "session",
		Description: "Session-scoped behavioral overlays",
		Tools: []ToolInfo{
			{Name: "momentum_event", Description: "Show or dismiss the momentum prompt", Required: []string{"event"}},
			{Name: "soft_landing_event", Description: "Enter or leave soft landing mode", Required: []string{"event"}, Optional: []string{"gap_hours"}},
			{Name: "get_session_state", Description: "Persisted overlays of this session"},
			{Name: "clear_session_state", Description: "Forget the session overlays"},
		},
	},
}

// toolHandlerFunc is the type for tool handler functions.
type toolHandlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func (s *Server) getToolHandlers() map[string]toolHandlerFunc {
	return map[string]toolHandlerFunc{
		"resolve_next_action":    s.handleResolveNextAction,
		"resolve_starter_action": s.handleResolveStarterAction,
		"compose_today":          s.handleComposeToday,
		"resolve_user_state":     s.handleResolveUserState,
		"get_today_visibility":   s.handleGetTodayVisibility,
		"momentum_event":         s.handleMomentumEvent,
		"soft_landing_event":     s.handleSoftLandingEvent,
		"get_session_state":      s.handleGetSessionState,
		"clear_session_state":    s.handleClearSessionState,
	}
}

// handleRoute dispatches route(tool, params) to the named handler.
func (s *Server) handleRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName := req.GetString("tool", "")
	if toolName == "" {
		return mcp.NewToolResultError("required parameter 'tool' is missing"), nil
	}

	handler, ok := s.getToolHandlers()[toolName]
	if !ok {
		if suggestions := s.findSimilarTools(toolName); len(suggestions) > 0 {
			return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s. Did you mean: %s?", toolName, strings.Join(suggestions, ", "))), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("unknown tool: %s. Use list_tools to see available tools", toolName)), nil
	}

	var params map[string]interface{}
	if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
		if p, ok := argsMap["params"].(map[string]interface{}); ok {
			params = p
		}
	}
	if params == nil {
		params = make(map[string]interface{})
	}

	return handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: params,
		},
	})
}

// handleListTools returns available tools, optionally filtered by category.
func (s *Server) handleListTools(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	verbose := req.GetBool("verbose", false)

	var result interface{}
	switch {
	case category != "":
		for _, cat := range toolCategories {
			if cat.Name == category {
				result = cat
				break
			}
		}
		if result == nil {
			cats := make([]string, len(toolCategories))
			for i, cat := range toolCategories {
				cats[i] = cat.Name
			}
			return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s. Available: %s", category, strings.Join(cats, ", "))), nil
		}
	case verbose:
		result = toolCategories
	default:
		summary := make([]map[string]interface{}, len(toolCategories))
		for i, cat := range toolCategories {
			names := make([]string, len(cat.Tools))
			for j, t := range cat.Tools {
				names[j] = t.Name
			}
			summary[i] = map[string]interface{}{
				"category":    cat.Name,
				"description": cat.Description,
				"tools":       names,
			}
		}
		result = summary
	}

	return jsonResult(result)
}

// toolKeywords drives suggest_tool. Matches are weighted by keyword length.
var toolKeywords = map[string][]string{
	"resolve_next_action":    {"next", "what should", "primary", "action", "do now"},
	"resolve_starter_action": {"starter", "start", "begin"},
	"compose_today":          {"today", "dashboard", "compose", "everything"},
	"resolve_user_state":     {"state", "classify", "returning", "first day"},
	"get_today_visibility":   {"visible", "visibility", "section", "hide", "show"},
	"momentum_event":         {"momentum", "completed", "celebrate", "prompt"},
	"soft_landing_event":     {"soft landing", "gap", "away", "reduced", "skip"},
	"get_session_state":      {"session", "overlay", "last visit"},
	"clear_session_state":    {"clear", "reset", "forget", "close"},
}

// handleSuggestTool suggests the best tools for a plain-language intent.
func (s *Server) handleSuggestTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	intent := strings.ToLower(req.GetString("intent", ""))
	if intent == "" {
		return mcp.NewToolResultError("required parameter 'intent' is missing"), nil
	}

	suggestions := suggestTools(intent, 3)
	if len(suggestions) == 0 {
		return jsonResult(map[string]interface{}{
			"suggestions": []interface{}{},
			"hint":        "No matching tools found. Use list_tools to see all available tools by category.",
		})
	}

	out := make([]map[string]interface{}, len(suggestions))
	for i, sc := range suggestions {
		entry := map[string]interface{}{
			"tool":        sc.info.Name,
			"confidence":  float64(sc.score) / 20.0,
			"description": sc.info.Description,
		}
		if len(sc.info.Required) > 0 {
			entry["required_params"] = sc.info.Required
		}
		if len(sc.info.Optional) > 0 {
			entry["optional_params"] = sc.info.Optional
		}
		out[i] = entry
	}
	return jsonResult(map[string]interface{}{"suggestions": out})
}

type toolScore struct {
	info  ToolInfo
	score int
}

// suggestTools scores every tool against intent and returns the best limit
// matches, highest score first.
func suggestTools(intent string, limit int) []toolScore {
	var scores []toolScore
	for name, keywords := range toolKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(intent, kw) {
				score += len(kw)
			}
		}
		if score == 0 {
			continue
		}
		info, _ := lookupTool(name)
		scores = append(scores, toolScore{info: info, score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].info.Name < scores[j].info.Name
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

func lookupTool(name string) (ToolInfo, bool) {
	for _, cat := range toolCategories {
		for _, t := range cat.Tools {
			if t.Name == name {
				return t, true
			}
		}
	}
	return ToolInfo{Name: name}, false
}

// findSimilarTools finds tools with similar names.
func (s *Server) findSimilarTools(name string) []string {
	var similar []string
	name = strings.ToLower(name)

	for _, cat := range toolCategories {
		for _, tool := range cat.Tools {
			toolLower := strings.ToLower(tool.Name)
			if strings.Contains(toolLower, name) || strings.Contains(name, toolLower) {
				similar = append(similar, tool.Name)
			} else if levenshteinDistance(name, toolLower) <= 3 {
				similar = append(similar, tool.Name)
			}
		}
	}

	if len(similar) > 3 {
		similar = similar[:3]
	}
	return similar
}

// levenshteinDistance calculates edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func (s *Server) registerRouterTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("route",
		mcp.WithDescription(`Call any tool by name. Useful for clients that only pin a few tools.

Usage: route(tool="<name>", params={...})

Examples:
• route(tool="momentum_event", params={"event": "completion"})
• route(tool="get_today_visibility", params={"state": "returning_after_gap"})`),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Tool name from list_tools output")),
		mcp.WithObject("params", mcp.Description("Tool parameters, see list_tools(verbose=true)")),
	), s.handleRoute)

	mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List tools by category. Call with verbose=true to see parameters."),
		mcp.WithString("category", mcp.Description("Filter by: resolve|visibility|session")),
		mcp.WithBoolean("verbose", mcp.Description("Include required/optional parameters")),
	), s.handleListTools)

	mcpServer.AddTool(mcp.NewTool("suggest_tool",
		mcp.WithDescription(`Describe your goal in plain language and get matching tools.

Examples:
• "what should the user do next" → resolve_next_action
• "user came back after a long gap" → soft_landing_event`),
		mcp.WithString("intent", mcp.Required(), mcp.Description("What you want to accomplish")),
	), s.handleSuggestTool)
}
