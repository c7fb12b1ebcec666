// Package mcptools exposes the routing engine as MCP tools for AI agents.
package mcptools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/routing"
)

// Server identity reported to MCP clients.
const (
	ServerName    = "triproute"
	ServerVersion = "0.1.0"
)

// alternativeSeparator divides plans in a multi-plan answer.
var alternativeSeparator = strings.Repeat("=", 50)

// ToolDefinition pairs an MCP tool with its handler.
type ToolDefinition struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Tools holds the routing tool handlers.
type Tools struct {
	service *routing.Service
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates the routing tools over service.
func New(service *routing.Service, logger zerolog.Logger) *Tools {
	return &Tools{
		service: service,
		logger:  logger.With().Str("component", "mcptools").Logger(),
		now:     time.Now,
	}
}

// Definitions returns every routing tool.
func (t *Tools) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{Tool: routePlanningTool(), Handler: t.HandleRoutePlanning},
		{Tool: searchPlacesTool(), Handler: t.HandleSearchPlaces},
		{Tool: multiPointRouteTool(), Handler: t.HandleMultiPointRoute},
		{Tool: recommendTravelModeTool(), Handler: t.HandleRecommendTravelMode},
	}
}

// NewServer creates an MCP server with every routing tool registered.
func NewServer(tools *Tools) *server.MCPServer {
	srv := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, def := range tools.Definitions() {
		srv.AddTool(def.Tool, def.Handler)
	}
	return srv
}

func routePlanningTool() mcp.Tool {
	return mcp.NewTool("route_planning",
		mcp.WithDescription("Plan a trip by driving, walking, bicycling, electrobike or transit"),
		mcp.WithString("origin",
			mcp.Required(),
			mcp.Description("Start: a \"lon,lat\" coordinate, place name, address or POI name"),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description("End: a \"lon,lat\" coordinate, place name, address or POI name"),
		),
		mcp.WithString("route_type",
			mcp.Description("Travel mode: driving, walking, bicycling, electrobike or transit"),
			mcp.DefaultString("driving"),
		),
		mcp.WithArray("waypoints",
			mcp.Description("Intermediate stops, driving only"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("city",
			mcp.Description("City used to resolve locations and scope transit, e.g. 上海市"),
		),
		mcp.WithString("strategy",
			mcp.Description("Driving strategy: 0 recommended, 1 avoid congestion, 2 highway first, 3 no highway, 4 less toll, 5 main road first, 6 fastest"),
		),
		mcp.WithNumber("alternative_routes",
			mcp.Description("Number of routes to return (1-3)"),
			mcp.DefaultNumber(1),
		),
	)
}

// HandleRoutePlanning plans a single-mode trip and renders the primary plan
// followed by its alternatives.
func (t *Tools) HandleRoutePlanning(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	origin := strings.TrimSpace(mcp.ParseString(req, "origin", ""))
	destination := strings.TrimSpace(mcp.ParseString(req, "destination", ""))
	if origin == "" || destination == "" {
		return mcp.NewToolResultError("origin and destination are required"), nil
	}

	mode, err := routing.ParseMode(mcp.ParseString(req, "route_type", "driving"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var strategy *routing.DrivingStrategy
	if raw := strings.TrimSpace(mcp.ParseString(req, "strategy", "")); raw != "" {
		n, err := strconv.Atoi(raw)
		s := routing.DrivingStrategy(n)
		if err != nil || !s.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("invalid strategy %q: must be 0-6", raw)), nil
		}
		strategy = &s
	}

	alternatives := int(mcp.ParseFloat64(req, "alternative_routes", 1))
	plan, err := t.service.Plan(ctx, mode, routing.PlanRequest{
		Origin:      origin,
		Destination: destination,
		Waypoints:   stringList(req, "waypoints"),
		Strategy:    strategy,
		City:        mcp.ParseString(req, "city", ""),
	}, alternatives)
	if err != nil {
		t.logger.Info().Err(err).Str("mode", string(mode)).Msg("route_planning failed")
		return mcp.NewToolResultError("route planning failed: " + routing.Describe(err)), nil
	}

	opts := routing.SummaryOptions{Now: t.now(), Location: t.service.Location()}
	var b strings.Builder
	b.WriteString(plan.Summary(opts))
	for i, alt := range plan.Alternatives {
		fmt.Fprintf(&b, "\n\n%s\nAlternative %d:\n", alternativeSeparator, i+2)
		b.WriteString(alt.Summary(opts))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func searchPlacesTool() mcp.Tool {
	return mcp.NewTool("search_places",
		mcp.WithDescription("Find a place by name, address or POI keyword"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search keywords, e.g. 外滩 or 苏州博物馆"),
		),
		mcp.WithString("city",
			mcp.Description("City to search in, e.g. 苏州市"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
			mcp.DefaultNumber(routing.DefaultPlaceLimit),
		),
	)
}

// HandleSearchPlaces geocodes the query, falling back to a POI list.
func (t *Tools) HandleSearchPlaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(mcp.ParseString(req, "query", ""))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := int(mcp.ParseFloat64(req, "limit", routing.DefaultPlaceLimit))

	result, err := t.service.SearchPlaces(ctx, query, mcp.ParseString(req, "city", ""), limit)
	if err != nil {
		return mcp.NewToolResultError("place search failed: " + routing.Describe(err)), nil
	}

	if loc := result.Geocoded; loc != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Found: %s\nCoordinates: %s", loc.Label(), loc.Coordinate)), nil
	}
	if len(result.Places) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No places found for '%s'", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for '%s':", query)
	for i, p := range result.Places {
		address := p.Address
		if address == "" {
			address = "no address"
		}
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, p.Name, address)
		if p.Coordinate != nil {
			fmt.Fprintf(&b, "\n   Coordinates: %s", p.Coordinate)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func multiPointRouteTool() mcp.Tool {
	return mcp.NewTool("multi_point_route",
		mcp.WithDescription("Plan a trip through an ordered list of stops"),
		mcp.WithArray("locations",
			mcp.Required(),
			mcp.Description("Stops in visiting order, at least two"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("route_type",
			mcp.Description("Travel mode for every leg"),
			mcp.DefaultString("driving"),
		),
		mcp.WithString("city",
			mcp.Description("City used to resolve locations"),
		),
	)
}

// HandleMultiPointRoute plans every consecutive pair of stops. Failed legs are
// listed in the answer rather than failing the call.
func (t *Tools) HandleMultiPointRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stops := stringList(req, "locations")
	if len(stops) < 2 {
		return mcp.NewToolResultError(routing.ErrTooFewStops.Error()), nil
	}

	mode, err := routing.ParseMode(mcp.ParseString(req, "route_type", "driving"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := t.service.Chain(ctx, stops, mode, mcp.ParseString(req, "city", ""))
	if err != nil {
		return mcp.NewToolResultError("multi-point planning failed: " + routing.Describe(err)), nil
	}
	if len(result.Failed()) == len(result.Legs) {
		return mcp.NewToolResultError(result.TextSummary()), nil
	}
	return mcp.NewToolResultText(result.TextSummary()), nil
}

func recommendTravelModeTool() mcp.Tool {
	return mcp.NewTool("recommend_travel_mode",
		mcp.WithDescription("Compare walking, transit and driving for one trip and recommend the fastest sensible option"),
		mcp.WithString("origin",
			mcp.Required(),
			mcp.Description("Start location"),
		),
		mcp.WithString("destination",
			mcp.Required(),
			mcp.Description("End location"),
		),
		mcp.WithString("city",
			mcp.Description("City used to resolve locations and scope transit"),
		),
	)
}

// HandleRecommendTravelMode ranks the travel methods for one trip.
func (t *Tools) HandleRecommendTravelMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	origin := strings.TrimSpace(mcp.ParseString(req, "origin", ""))
	destination := strings.TrimSpace(mcp.ParseString(req, "destination", ""))
	if origin == "" || destination == "" {
		return mcp.NewToolResultError("origin and destination are required"), nil
	}

	rec, err := t.service.Recommend(ctx, origin, destination, mcp.ParseString(req, "city", ""))
	if err != nil {
		t.logger.Info().Err(err).Msg("recommend_travel_mode failed")
		return mcp.NewToolResultError("no travel option available: " + routing.Describe(err)), nil
	}
	return mcp.NewToolResultText(rec.TextSummary()), nil
}

// stringList reads a string array argument, skipping blank and non-string items.
func stringList(req mcp.CallToolRequest, name string) []string {
	raw, ok := req.Params.Arguments[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
